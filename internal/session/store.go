package session

import (
	"context"
	"sync"
	"time"

	"leaderboard_miniapp/internal/service"
	"leaderboard_miniapp/pkg/logger"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Config struct {
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Store keeps one Session per viewer.
type Store struct {
	deps  service.ViewDeps
	cfg   Config
	clock clock.Clock

	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewStore(deps service.ViewDeps, cfg Config) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := deps.Clock
	if c == nil {
		c = clock.New()
		deps.Clock = c
	}

	return &Store{
		deps:     deps,
		cfg:      cfg,
		clock:    c,
		sessions: make(map[int64]*Session),
	}
}

// Get returns the viewer's session, creating it on first use.
func (s *Store) Get(viewerID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[viewerID]
	if !ok {
		sess = newSession(viewerID, s.deps, s.clock.Now)
		s.sessions[viewerID] = sess
	} else {
		sess.touch()
	}

	return sess
}

func (s *Store) Lookup(viewerID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[viewerID]
	return sess, ok
}

// Drop closes and forgets the viewer's session.
func (s *Store) Drop(viewerID int64) bool {
	s.mu.Lock()
	sess, ok := s.sessions[viewerID]
	delete(s.sessions, viewerID)
	s.mu.Unlock()

	if ok {
		sess.Close()
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict closes sessions idle for longer than the configured timeout.
// Sessions with a live websocket are kept.
func (s *Store) Evict() int {
	cutoff := s.clock.Now().Add(-s.cfg.IdleTimeout)

	var stale []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.Subscribers() > 0 || sess.LastSeen().After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		stale = append(stale, sess)
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}

	return len(stale)
}

// RunJanitor evicts idle sessions until ctx is done.
func (s *Store) RunJanitor(ctx context.Context) {
	log := logger.Named("session")

	ticker := s.clock.Ticker(s.cfg.SweepInterval)
	defer ticker.Stop()

	log.Info("session janitor started", zap.Duration("interval", s.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			log.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				log.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

// CloseAll drops every session.
func (s *Store) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[int64]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}
