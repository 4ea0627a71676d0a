// Package metrics defines the Prometheus metrics of the collector and the API.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

const (
	// Namespace is the namespace for all metrics.
	Namespace = "edu"

	subsystemCollector = "collector"
	subsystemAPI       = "api"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Collector metrics
	FetchTotal        *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	RecordsTotal      *prometheus.CounterVec
	RunRecords        *prometheus.GaugeVec
	SitemapURLs       prometheus.Gauge
	RunDuration       prometheus.Histogram
	RunQualityScore   prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge
	RunsTotal         *prometheus.CounterVec
	ScheduleSkipTotal prometheus.Counter

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
}

// New creates and registers all metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initCollectorMetrics(factory)
	m.initAPIMetrics(factory)

	return m
}

func (m *Metrics) initCollectorMetrics(factory promauto.Factory) {
	m.FetchTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "fetch_total",
			Help:      "Page fetches by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	m.FetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"category"},
	)

	m.RecordsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "records_total",
			Help:      "Records extracted by category",
		},
		[]string{"category"},
	)

	m.RunRecords = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "run_records",
			Help:      "Records per category in the last finished run",
		},
		[]string{"category"},
	)

	m.SitemapURLs = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "sitemap_urls",
			Help:      "URLs discovered from sitemaps in the last run",
		},
	)

	m.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "run_duration_seconds",
			Help:      "Duration of full collection runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
		},
	)

	m.RunQualityScore = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "run_quality_score",
			Help:      "Visited/attempted ratio of the last run",
		},
	)

	m.LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		},
	)

	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "runs_total",
			Help:      "Collection runs by status",
		},
		[]string{"status"},
	)

	m.ScheduleSkipTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemCollector,
			Name:      "schedule_skipped_total",
			Help:      "Scheduled runs skipped while backing off",
		},
	)
}

func (m *Metrics) initAPIMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystemAPI,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result",
		},
		[]string{"result"},
	)
}

// ObserveFetch records one attempted URL.
func (m *Metrics) ObserveFetch(category domain.Category, outcome string, duration time.Duration) {
	m.FetchTotal.WithLabelValues(string(category), outcome).Inc()
	if duration > 0 {
		m.FetchDuration.WithLabelValues(string(category)).Observe(duration.Seconds())
	}
}

// ObserveRecord records one extracted record.
func (m *Metrics) ObserveRecord(category domain.Category) {
	m.RecordsTotal.WithLabelValues(string(category)).Inc()
}

// ObserveRun records the summary of a finished run.
func (m *Metrics) ObserveRun(meta domain.Metadata, sitemapURLs int, duration time.Duration) {
	for _, c := range domain.Categories() {
		m.RunRecords.WithLabelValues(string(c)).Set(float64(meta.CountFor(c)))
	}
	m.SitemapURLs.Set(float64(sitemapURLs))
	m.RunDuration.Observe(duration.Seconds())
	m.RunQualityScore.Set(meta.QualityScore)
	m.LastRunTimestamp.SetToCurrentTime()
}

// ObserveScheduleSkip records a scheduled run that did not start.
func (m *Metrics) ObserveScheduleSkip() {
	m.ScheduleSkipTotal.Inc()
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// GinMiddleware records request count and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the scrape handler for gatherer; nil uses the default gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Push replaces the metrics of job on the Pushgateway at url with everything
// gatherer collects.
func Push(ctx context.Context, url, job string, gatherer prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
