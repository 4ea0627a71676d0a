package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
)

func TestNew_RegistersMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveFetch(domain.CategoryCourse, "visited", 120*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["edu_collector_fetch_total"])
	assert.True(t, names["edu_collector_fetch_duration_seconds"])
}

func TestObserveFetch_CountsByOutcome(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	m.ObserveFetch(domain.CategoryExam, "visited", 10*time.Millisecond)
	m.ObserveFetch(domain.CategoryExam, "visited", 20*time.Millisecond)
	m.ObserveFetch(domain.CategoryExam, "failed", 0)
	m.ObserveRecord(domain.CategoryExam)

	assert.InDelta(t, 2, testutil.ToFloat64(m.FetchTotal.WithLabelValues("exam", "visited")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchTotal.WithLabelValues("exam", "failed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("exam")), 1e-9)
}

func TestObserveRun_SetsGauges(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	meta := domain.Metadata{ExamsCount: 2, ExercisesCount: 3, QualityScore: 0.8}
	m.ObserveRun(meta, 7, 3*time.Second)
	m.ObserveScheduleSkip()

	assert.InDelta(t, 2, testutil.ToFloat64(m.RunRecords.WithLabelValues("exam")), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RunRecords.WithLabelValues("exercise")), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(m.RunRecords.WithLabelValues("course")), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(m.SitemapURLs), 1e-9)
	assert.InDelta(t, 0.8, testutil.ToFloat64(m.RunQualityScore), 1e-9)
	assert.Positive(t, testutil.ToFloat64(m.LastRunTimestamp))
	assert.InDelta(t, 1, testutil.ToFloat64(m.ScheduleSkipTotal), 1e-9)
}

func TestGinMiddleware_LabelsByRoute(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	m := metrics.New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/levels/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/levels/a", "/api/levels/b", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/levels/:id", "200")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")), 1e-9)
}

func TestHandler_ServesRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `edu_api_cache_lookups_total{result="miss"} 2`)
}

func TestPush_SendsRegistryToGateway(t *testing.T) {
	t.Parallel()

	type request struct {
		method, path string
		body         []byte
	}
	received := make(chan request, 1)
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- request{method: r.Method, path: r.URL.Path, body: body}
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RunsTotal.WithLabelValues("succeeded").Inc()

	require.NoError(t, metrics.Push(context.Background(), gateway.URL, "edu_collect", reg))

	got := <-received
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/metrics/job/edu_collect", got.path)
	assert.Contains(t, string(got.body), "edu_collector_runs_total")
}

func TestPush_GatewayError(t *testing.T) {
	t.Parallel()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	reg := prometheus.NewRegistry()
	metrics.New(reg)

	require.Error(t, metrics.Push(context.Background(), gateway.URL, "edu_collect", reg))
}
