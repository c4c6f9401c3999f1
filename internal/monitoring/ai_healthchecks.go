package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TIMER = 15

// HealthChecker is anything that can report whether a backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// MonitorClassifierHealth polls checker until ctx ends and mirrors the
// result into healthy and the classifier_healthy gauge.
func MonitorClassifierHealth(ctx context.Context, checker HealthChecker, healthy *atomic.Bool) {
	monitorHealth(ctx, checker, healthy, time.Second*HEALTHCHECK_TIMER)
}

func monitorHealth(ctx context.Context, checker HealthChecker, healthy *atomic.Bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			isHealthy := checker.HealthCheck(ctx)
			healthy.Store(isHealthy)
			if isHealthy {
				ClassifierHealthy.Set(1)
			} else {
				ClassifierHealthy.Set(0)
				slog.Warn("[HealthCheck] Sentiment classifier is unhealthy")
			}
		}
	}
}
