package common

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/K11E3R/moroccan-education-API/internal/config"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/metrics"
	"github.com/K11E3R/moroccan-education-API/internal/server"
)

const pushTimeout = 10 * time.Second

// NewMetricsServer returns a server exposing gatherer at /metrics and a
// liveness probe at /health, listening on addr (host:port).
func NewMetricsServer(addr string, gatherer prometheus.Gatherer, log logger.Interface) (*server.Server, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("metrics address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("metrics address %q: invalid port", addr)
	}

	handler := metrics.Handler(gatherer)
	return server.New(&server.Config{
		Host:        host,
		Port:        port,
		ServiceName: "edu-schedule-metrics",
	}, log, func(r *gin.Engine) {
		r.GET("/metrics", gin.WrapH(handler))
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": server.HealthStatusHealthy})
		})
	}), nil
}

// PushMetrics sends gatherer to the configured Pushgateway. It is a no-op
// when no push URL is set. Failures are logged, never returned.
func PushMetrics(ctx context.Context, cfg config.MetricsConfig, gatherer prometheus.Gatherer, log logger.Interface) {
	if cfg.PushURL == "" {
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := metrics.Push(pushCtx, cfg.PushURL, cfg.Job, gatherer); err != nil {
		log.Warn("Failed to push metrics", "url", cfg.PushURL, "error", err)
		return
	}
	log.Debug("Metrics pushed", "url", cfg.PushURL, "job", cfg.Job)
}
