package service

import (
	"context"
	"sync"
	"time"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/pkg/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const ClaimResultTTL = 3000 * time.Millisecond

// DetailState is the friend detail screen. Selected is nil on the list screen.
type DetailState struct {
	Selected *model.User
	Result   *model.ClaimResult
}

// ClaimFlow switches between the friend list and one friend's detail and
// runs point claims for the selected friend. A claim banner clears itself
// after ClaimResultTTL; any transition that supersedes it stops the timer.
type ClaimFlow struct {
	backend   UserBackend
	reload    func(ctx context.Context)
	announcer ClaimAnnouncer
	clock     clock.Clock
	onChange  func()

	mu        sync.Mutex
	selected  *model.User
	result    *model.ClaimResult
	timer     *clock.Timer
	selection uint64
	resultGen uint64
	closed    bool
}

type ClaimOption func(*ClaimFlow)

func WithClock(c clock.Clock) ClaimOption {
	return func(f *ClaimFlow) {
		f.clock = c
	}
}

func WithAnnouncer(a ClaimAnnouncer) ClaimOption {
	return func(f *ClaimFlow) {
		f.announcer = a
	}
}

func WithClaimOnChange(fn func()) ClaimOption {
	return func(f *ClaimFlow) {
		f.onChange = fn
	}
}

// NewClaimFlow builds the flow. reload is called after every successful
// claim so the underlying list shows the new point totals.
func NewClaimFlow(backend UserBackend, reload func(ctx context.Context), opts ...ClaimOption) *ClaimFlow {
	f := &ClaimFlow{
		backend: backend,
		reload:  reload,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *ClaimFlow) Select(user model.User) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.selected = &user
	f.selection++
	f.clearResultLocked()
	f.mu.Unlock()

	f.notify()
}

func (f *ClaimFlow) Back() {
	f.mu.Lock()
	f.selected = nil
	f.selection++
	f.clearResultLocked()
	f.mu.Unlock()

	f.notify()
}

// Claim asks the backend to grant points to the selected user.
func (f *ClaimFlow) Claim(ctx context.Context) error {
	log := logger.Named("claim")

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.selected == nil {
		f.mu.Unlock()
		return ErrNothingSelected
	}
	user := *f.selected
	selection := f.selection
	f.clearResultLocked()
	f.mu.Unlock()
	f.notify()

	// The caller going away must not turn a granted claim into a failure banner.
	ctx = context.WithoutCancel(ctx)

	claim, err := f.backend.ClaimPoints(ctx, user.ID)
	if err != nil {
		log.Error("failed to claim points", zap.String("user_id", user.ID), zap.Error(err))
		f.setResult(selection, &model.ClaimResult{Success: false, Message: ClaimFailed})
		return nil
	}

	log.Info("points claimed",
		zap.String("user_id", user.ID),
		zap.Int("points", claim.Points))

	f.setResult(selection, &model.ClaimResult{
		Success: true,
		Points:  claim.Points,
		Message: claim.Message,
	})

	if f.reload != nil {
		f.reload(ctx)
	}

	if f.announcer != nil {
		if err := f.announcer.AnnounceClaim(ctx, user, *claim); err != nil {
			log.Warn("failed to announce claim", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return nil
}

// Refresh replaces the selected user with a fresher copy from a reloaded page.
func (f *ClaimFlow) Refresh(users []model.User) {
	f.mu.Lock()
	if f.selected == nil {
		f.mu.Unlock()
		return
	}

	updated := false
	for _, u := range users {
		if u.ID == f.selected.ID {
			fresh := u
			if fresh.Rank == nil {
				fresh.Rank = f.selected.Rank
			}
			f.selected = &fresh
			updated = true
			break
		}
	}
	f.mu.Unlock()

	if updated {
		f.notify()
	}
}

func (f *ClaimFlow) State() DetailState {
	f.mu.Lock()
	defer f.mu.Unlock()

	var state DetailState
	if f.selected != nil {
		u := *f.selected
		state.Selected = &u
	}
	if f.result != nil {
		r := *f.result
		state.Result = &r
	}

	return state
}

// Close stops the banner timer. Later claim answers are ignored.
func (f *ClaimFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.selection++
	f.clearResultLocked()
}

func (f *ClaimFlow) setResult(selection uint64, result *model.ClaimResult) {
	f.mu.Lock()
	if f.closed || selection != f.selection {
		f.mu.Unlock()
		return
	}

	f.clearResultLocked()
	f.result = result
	gen := f.resultGen
	f.timer = f.clock.AfterFunc(ClaimResultTTL, func() {
		f.expire(gen)
	})
	f.mu.Unlock()

	f.notify()
}

func (f *ClaimFlow) expire(gen uint64) {
	f.mu.Lock()
	if gen != f.resultGen || f.result == nil {
		f.mu.Unlock()
		return
	}
	f.result = nil
	f.timer = nil
	f.mu.Unlock()

	f.notify()
}

// clearResultLocked drops the banner and invalidates its timer.
func (f *ClaimFlow) clearResultLocked() {
	f.resultGen++
	f.result = nil
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *ClaimFlow) notify() {
	if f.onChange != nil {
		f.onChange()
	}
}
