package service

import (
	"context"
	"strings"
	"sync"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/pkg/logger"

	"go.uber.org/zap"
)

type CreateState struct {
	Open           bool
	Name           string
	ProfilePicture string
	Submitting     bool
	Error          string
}

// CreateFlow backs the "new user" modal of the friends view.
type CreateFlow struct {
	backend  UserBackend
	reload   func(ctx context.Context)
	onChange func()

	mu         sync.Mutex
	open       bool
	name       string
	picture    string
	submitting bool
	err        string
}

func NewCreateFlow(backend UserBackend, reload func(ctx context.Context), onChange func()) *CreateFlow {
	return &CreateFlow{
		backend:  backend,
		reload:   reload,
		onChange: onChange,
	}
}

func (f *CreateFlow) Open() {
	f.mu.Lock()
	f.open = true
	f.err = ""
	f.mu.Unlock()

	f.notify()
}

// Cancel closes the modal and forgets the draft.
func (f *CreateFlow) Cancel() {
	f.mu.Lock()
	f.resetLocked()
	f.mu.Unlock()

	f.notify()
}

func (f *CreateFlow) SetName(name string) {
	f.mu.Lock()
	f.name = name
	f.mu.Unlock()

	f.notify()
}

// SetPicture stores an already encoded image (URL or data URL).
func (f *CreateFlow) SetPicture(picture string) {
	f.mu.Lock()
	f.picture = picture
	f.mu.Unlock()

	f.notify()
}

// Submit creates the drafted user. A blank name fails with ErrNameRequired
// before any request is made. A backend failure keeps the modal open and
// exposes the failure in State().Error.
func (f *CreateFlow) Submit(ctx context.Context) error {
	log := logger.Named("create")

	f.mu.Lock()
	name := strings.TrimSpace(f.name)
	if name == "" {
		f.mu.Unlock()
		return ErrNameRequired
	}
	draft := model.NewUser{
		Name:           name,
		ProfilePicture: f.picture,
	}
	f.submitting = true
	f.err = ""
	f.mu.Unlock()
	f.notify()

	ctx = context.WithoutCancel(ctx)

	user, err := f.backend.CreateUser(ctx, draft)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.err = CreateFailed
		f.mu.Unlock()
		f.notify()

		log.Error("failed to create user", zap.String("name", name), zap.Error(err))
		return nil
	}
	f.resetLocked()
	f.mu.Unlock()
	f.notify()

	log.Info("user created", zap.String("user_id", user.ID), zap.String("name", user.Name))

	if f.reload != nil {
		f.reload(ctx)
	}

	return nil
}

func (f *CreateFlow) State() CreateState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return CreateState{
		Open:           f.open,
		Name:           f.name,
		ProfilePicture: f.picture,
		Submitting:     f.submitting,
		Error:          f.err,
	}
}

func (f *CreateFlow) resetLocked() {
	f.open = false
	f.name = ""
	f.picture = ""
	f.err = ""
}

func (f *CreateFlow) notify() {
	if f.onChange != nil {
		f.onChange()
	}
}
