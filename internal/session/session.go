package session

import (
	"context"
	"sync"
	"time"

	"leaderboard_miniapp/internal/service"

	"github.com/google/uuid"
)

// Session holds what one viewer currently has on screen. Exactly one view
// is mounted at a time; navigating closes the previous one, so its page
// cursor and any pending banner timer die with it.
type Session struct {
	ViewerID int64

	deps service.ViewDeps
	now  func() time.Time

	mu       sync.Mutex
	view     service.View
	lastSeen time.Time
	closed   bool

	subsMu sync.Mutex
	subs   map[uuid.UUID]chan struct{}
}

func newSession(viewerID int64, deps service.ViewDeps, now func() time.Time) *Session {
	s := &Session{
		ViewerID: viewerID,
		now:      now,
		lastSeen: now(),
		subs:     make(map[uuid.UUID]chan struct{}),
	}
	deps.OnChange = s.publish
	s.deps = deps

	return s
}

// Navigate unmounts the current view and mounts a fresh instance of name.
func (s *Session) Navigate(ctx context.Context, name service.ViewName) (service.View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, service.ErrClosed
	}
	if s.view != nil {
		s.view.Close()
	}
	view := service.NewView(name, s.deps)
	s.view = view
	s.lastSeen = s.now()
	s.mu.Unlock()

	s.publish()
	view.Mount(ctx)

	return view, nil
}

// Current returns the mounted view, or nil before the first navigation.
func (s *Session) Current() service.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
	return s.view
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Subscribe returns a channel signalled after every state change. Signals
// coalesce: a slow reader sees one pending signal, not a backlog.
func (s *Session) Subscribe() (uuid.UUID, <-chan struct{}) {
	id := uuid.New()
	ch := make(chan struct{}, 1)

	s.subsMu.Lock()
	s.subs[id] = ch
	s.subsMu.Unlock()

	return id, ch
}

func (s *Session) Unsubscribe(id uuid.UUID) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// Close unmounts the view and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.view != nil {
		s.view.Close()
		s.view = nil
	}
	s.mu.Unlock()

	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

func (s *Session) publish() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
