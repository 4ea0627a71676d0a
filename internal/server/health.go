package server

import (
	"context"
	"time"
)

// HealthStatus represents the status of a health check.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) CheckResult

// PingChecker adapts a ping function. A failed ping reports degraded.
func PingChecker(ping func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		err := ping(ctx)
		latency := time.Since(start).String()
		if err != nil {
			return CheckResult{Status: HealthStatusDegraded, Message: err.Error(), Latency: latency}
		}
		return CheckResult{Status: HealthStatusHealthy, Latency: latency}
	}
}

// RunChecks runs every check and folds them into an overall status.
func RunChecks(ctx context.Context, checks map[string]HealthChecker) (HealthStatus, map[string]CheckResult) {
	status := HealthStatusHealthy
	if len(checks) == 0 {
		return status, nil
	}

	results := make(map[string]CheckResult, len(checks))
	for name, check := range checks {
		result := check(ctx)
		results[name] = result

		switch result.Status {
		case HealthStatusUnhealthy:
			status = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if status == HealthStatusHealthy {
				status = HealthStatusDegraded
			}
		case HealthStatusHealthy:
		}
	}
	return status, results
}
