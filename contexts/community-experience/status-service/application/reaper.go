package application

import (
	"context"
	"log/slog"
	"time"
)

// Reaper soft-deletes expired statuses on a fixed interval. It is run from
// the worker process; read paths filter by expiry independently so the sweep
// only reclaims rows.
type Reaper struct {
	Statuses StatusService
	Interval time.Duration
	Logger   *slog.Logger
}

// Run sweeps until the context is cancelled. One sweep failure is logged and
// the loop continues.
func (r Reaper) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := resolveLogger(r.Logger)
	logger.Info("status expiry reaper started",
		"event", "status_reaper_started",
		"module", "community-experience/status-service",
		"layer", "application",
		"interval", interval.String(),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info("status expiry reaper stopped",
				"event", "status_reaper_stopped",
				"module", "community-experience/status-service",
				"layer", "application",
			)
			return
		case <-ticker.C:
			if _, err := r.Statuses.ReapExpired(ctx); err != nil {
				logger.Error("status expiry sweep failed",
					"event", "status_reaper_sweep_failed",
					"module", "community-experience/status-service",
					"layer", "application",
					"error", err,
				)
			}
		}
	}
}
