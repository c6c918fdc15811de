package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (p *fakePruner) PruneCalls(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cutoffs = append(p.cutoffs, before)
	return p.removed, p.err
}

func (p *fakePruner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestRetentionWorker_Prune(t *testing.T) {
	tests := []struct {
		name     string
		pruner   *fakePruner
		expected int64
	}{
		{name: "Removes old rows", pruner: &fakePruner{removed: 3}, expected: 3},
		{name: "Nothing to remove", pruner: &fakePruner{}, expected: 0},
		{name: "Journal error", pruner: &fakePruner{removed: 9, err: errors.New("db down")}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClock := clock.NewMock()
			mockClock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
			w := NewRetentionWorker(tt.pruner, 24*time.Hour, time.Minute, mockClock)

			assert.Equal(t, tt.expected, w.Prune(context.Background()))
			assert.Equal(t, []time.Time{time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)}, tt.pruner.cutoffs)
		})
	}
}

func TestNewRetentionWorker_Defaults(t *testing.T) {
	w := NewRetentionWorker(&fakePruner{}, 0, 0, nil)

	assert.Equal(t, DefaultRetention, w.Retention)
	assert.Equal(t, DefaultPruneInterval, w.Interval)
}

func TestRetentionWorker_Run(t *testing.T) {
	pruner := &fakePruner{}
	mockClock := clock.NewMock()
	w := NewRetentionWorker(pruner, time.Hour, time.Minute, mockClock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mockClock.Add(time.Minute)
		return pruner.calls() >= 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
