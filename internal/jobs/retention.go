package jobs

import (
	"context"
	"log/slog"
	"time"

	"tubegrab/internal/config"
	"tubegrab/internal/metrics"
)

// StartSweeper launches a background loop that periodically evicts
// terminal jobs older than the retention window so that the registry
// does not grow without bound. It returns immediately; the loop exits
// when ctx is cancelled.
func StartSweeper(ctx context.Context, cfg *config.Config, reg *Registry, logger *slog.Logger) {
	if !cfg.Retention.Enabled {
		return
	}

	interval := time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ttl := time.Duration(cfg.Retention.JobTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			cutoff := time.Now().UTC().Add(-ttl)
			if n := reg.Sweep(cutoff); n > 0 {
				metrics.RecordRetentionJobs(int64(n))
				if logger != nil {
					logger.Info("retention_sweep", "evicted", n, "remaining", reg.Len())
				}
			}
		}
	}()
}
