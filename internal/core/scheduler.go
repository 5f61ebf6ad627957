package core

// scheduler.go runs periodic history maintenance. Records older than the
// retention window are purged once at start and then every interval until
// the context ends. A failed purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PurgeConfig controls the history purge job.
type PurgeConfig struct {
	Retention time.Duration // Records older than this are deleted
	Interval  time.Duration // Time between runs
}

// StartPurgeScheduler blocks running purge jobs until ctx is cancelled.
// It returns immediately when the service has no history store.
func (s *Service) StartPurgeScheduler(ctx context.Context, cfg PurgeConfig) {
	if s.history == nil || cfg.Retention <= 0 || cfg.Interval <= 0 {
		return
	}

	slog.Info("history purge scheduler started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.runPurgeJob(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurgeJob(ctx, cfg.Retention)
		}
	}
}

func (s *Service) runPurgeJob(ctx context.Context, retention time.Duration) {
	start := time.Now()
	cutoff := s.now().Add(-retention)

	purged, err := s.history.Purge(ctx, cutoff)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return
	}

	slog.Info("history purge completed",
		"records_purged", purged,
		"cutoff", cutoff,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
