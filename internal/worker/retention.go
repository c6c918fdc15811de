package worker

import (
	"context"
	"time"

	"leaderboard_miniapp/pkg/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	DefaultRetention     = 7 * 24 * time.Hour
	DefaultPruneInterval = time.Hour
)

type CallPruner interface {
	PruneCalls(ctx context.Context, before time.Time) (int64, error)
}

// RetentionWorker periodically deletes journaled backend calls older than
// Retention.
type RetentionWorker struct {
	Journal   CallPruner
	Retention time.Duration
	Interval  time.Duration

	clock clock.Clock
}

func NewRetentionWorker(journal CallPruner, retention, interval time.Duration, c clock.Clock) *RetentionWorker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if c == nil {
		c = clock.New()
	}

	return &RetentionWorker{
		Journal:   journal,
		Retention: retention,
		Interval:  interval,
		clock:     c,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) {
	log := logger.Named("retention")

	ticker := w.clock.Ticker(w.Interval)
	defer ticker.Stop()

	log.Info("retention worker started",
		zap.Duration("interval", w.Interval),
		zap.Duration("retention", w.Retention))

	for {
		select {
		case <-ctx.Done():
			log.Info("retention worker stopped")
			return
		case <-ticker.C:
			w.Prune(ctx)
		}
	}
}

// Prune runs one retention pass and returns how many rows were removed.
func (w *RetentionWorker) Prune(ctx context.Context) int64 {
	log := logger.Named("retention")

	cutoff := w.clock.Now().Add(-w.Retention)
	n, err := w.Journal.PruneCalls(ctx, cutoff)
	if err != nil {
		log.Error("failed to prune backend calls", zap.Time("before", cutoff), zap.Error(err))
		return 0
	}
	if n > 0 {
		log.Info("pruned backend calls", zap.Int64("count", n), zap.Time("before", cutoff))
	}

	return n
}
