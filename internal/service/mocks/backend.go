package mocks

import (
	"context"
	"sync"

	"leaderboard_miniapp/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock of service.Backend that also keeps an
// ordered log of the calls it received.
type MockBackend struct {
	mock.Mock

	logMu sync.Mutex
	log   []string
}

func (m *MockBackend) CallLog() []string {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	return append([]string(nil), m.log...)
}

func (m *MockBackend) logCall(name string) {
	m.logMu.Lock()
	m.log = append(m.log, name)
	m.logMu.Unlock()
}

func (m *MockBackend) ListUsers(ctx context.Context, page, limit int) ([]model.User, error) {
	m.logCall("ListUsers")
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockBackend) CreateUser(ctx context.Context, draft model.NewUser) (*model.User, error) {
	m.logCall("CreateUser")
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockBackend) ClaimPoints(ctx context.Context, userID string) (*model.Claim, error) {
	m.logCall("ClaimPoints")
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Claim), args.Error(1)
}

func (m *MockBackend) ListHistory(ctx context.Context, page, limit int) ([]model.HistoryRecord, error) {
	m.logCall("ListHistory")
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryRecord), args.Error(1)
}

func (m *MockBackend) ListRankedUsers(ctx context.Context, page, limit int) ([]model.User, error) {
	m.logCall("ListRankedUsers")
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockBackend) RecomputeRanks(ctx context.Context) error {
	m.logCall("RecomputeRanks")
	args := m.Called(ctx)
	return args.Error(0)
}

type MockAnnouncer struct {
	mock.Mock
}

func (m *MockAnnouncer) AnnounceClaim(ctx context.Context, user model.User, claim model.Claim) error {
	args := m.Called(ctx, user, claim)
	return args.Error(0)
}
