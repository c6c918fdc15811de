package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/internal/service/mocks"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type claimFixture struct {
	backend *mocks.MockBackend
	clock   *clock.Mock
	reloads atomic.Int32
	flow    *ClaimFlow
}

func newClaimFixture(opts ...ClaimOption) *claimFixture {
	fx := &claimFixture{
		backend: &mocks.MockBackend{},
		clock:   clock.NewMock(),
	}
	opts = append([]ClaimOption{WithClock(fx.clock)}, opts...)
	fx.flow = NewClaimFlow(fx.backend, func(context.Context) { fx.reloads.Add(1) }, opts...)
	return fx
}

func (fx *claimFixture) resultCleared() func() bool {
	return func() bool {
		return fx.flow.State().Result == nil
	}
}

func TestClaimFlow_SelectAndBack(t *testing.T) {
	fx := newClaimFixture()

	assert.Nil(t, fx.flow.State().Selected)

	fx.flow.Select(model.User{ID: "u1", Name: "Ann", Points: 10})
	require.NotNil(t, fx.flow.State().Selected)
	assert.Equal(t, "u1", fx.flow.State().Selected.ID)

	fx.flow.Back()
	assert.Nil(t, fx.flow.State().Selected)
	assert.Nil(t, fx.flow.State().Result)
}

func TestClaimFlow_Claim(t *testing.T) {
	tests := []struct {
		name            string
		setupMocks      func(m *mocks.MockBackend)
		expectedResult  *model.ClaimResult
		expectedReloads int32
	}{
		{
			name: "Successful claim",
			setupMocks: func(m *mocks.MockBackend) {
				m.On("ClaimPoints", mock.Anything, "u1").
					Return(&model.Claim{Points: 50, Message: "+50!"}, nil)
			},
			expectedResult:  &model.ClaimResult{Success: true, Points: 50, Message: "+50!"},
			expectedReloads: 1,
		},
		{
			name: "Backend rejects claim",
			setupMocks: func(m *mocks.MockBackend) {
				m.On("ClaimPoints", mock.Anything, "u1").
					Return(nil, errors.New("too early"))
			},
			expectedResult:  &model.ClaimResult{Success: false, Message: ClaimFailed},
			expectedReloads: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newClaimFixture()
			tt.setupMocks(fx.backend)

			fx.flow.Select(model.User{ID: "u1", Name: "Ann"})
			require.NoError(t, fx.flow.Claim(context.Background()))

			assert.Equal(t, tt.expectedResult, fx.flow.State().Result)
			assert.Equal(t, tt.expectedReloads, fx.reloads.Load())
			fx.backend.AssertExpectations(t)
		})
	}
}

func TestClaimFlow_ClaimWithoutSelection(t *testing.T) {
	fx := newClaimFixture()

	err := fx.flow.Claim(context.Background())

	assert.ErrorIs(t, err, ErrNothingSelected)
	fx.backend.AssertNotCalled(t, "ClaimPoints", mock.Anything, mock.Anything)
}

// claim "u1" -> {points:50, message:"+50!"}; banner is gone after 3000ms.
func TestClaimFlow_ResultExpires(t *testing.T) {
	fx := newClaimFixture()
	fx.backend.On("ClaimPoints", mock.Anything, "u1").
		Return(&model.Claim{Points: 50, Message: "+50!"}, nil)

	fx.flow.Select(model.User{ID: "u1"})
	require.NoError(t, fx.flow.Claim(context.Background()))

	result := fx.flow.State().Result
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, 50, result.Points)

	fx.clock.Add(ClaimResultTTL - time.Millisecond)
	assert.NotNil(t, fx.flow.State().Result)

	fx.clock.Add(time.Millisecond)
	assert.Eventually(t, fx.resultCleared(), time.Second, 5*time.Millisecond)
}

func TestClaimFlow_NewClaimRearmsTimer(t *testing.T) {
	fx := newClaimFixture()
	fx.backend.On("ClaimPoints", mock.Anything, "u1").
		Return(&model.Claim{Points: 5}, nil)

	fx.flow.Select(model.User{ID: "u1"})
	require.NoError(t, fx.flow.Claim(context.Background()))

	fx.clock.Add(2 * time.Second)
	require.NoError(t, fx.flow.Claim(context.Background()))

	fx.clock.Add(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.NotNil(t, fx.flow.State().Result, "first timer must not clear the second banner")

	fx.clock.Add(time.Second)
	assert.Eventually(t, fx.resultCleared(), time.Second, 5*time.Millisecond)
}

func TestClaimFlow_SelectionClearsResult(t *testing.T) {
	fx := newClaimFixture()
	fx.backend.On("ClaimPoints", mock.Anything, "u1").
		Return(&model.Claim{Points: 5}, nil)

	fx.flow.Select(model.User{ID: "u1"})
	require.NoError(t, fx.flow.Claim(context.Background()))
	require.NotNil(t, fx.flow.State().Result)

	fx.flow.Select(model.User{ID: "u2"})
	assert.Nil(t, fx.flow.State().Result)

	fx.clock.Add(ClaimResultTTL)
	assert.Equal(t, "u2", fx.flow.State().Selected.ID)
}

func TestClaimFlow_LateAnswerAfterBack(t *testing.T) {
	fx := newClaimFixture()
	fx.backend.On("ClaimPoints", mock.Anything, "u1").
		Run(func(mock.Arguments) { fx.flow.Back() }).
		Return(&model.Claim{Points: 5}, nil)

	fx.flow.Select(model.User{ID: "u1"})
	require.NoError(t, fx.flow.Claim(context.Background()))

	assert.Nil(t, fx.flow.State().Result)
	assert.Nil(t, fx.flow.State().Selected)
	assert.Equal(t, int32(1), fx.reloads.Load(), "the list still reflects the granted points")
}

func TestClaimFlow_Close(t *testing.T) {
	fx := newClaimFixture()
	fx.backend.On("ClaimPoints", mock.Anything, "u1").
		Return(&model.Claim{Points: 5}, nil)

	fx.flow.Select(model.User{ID: "u1"})
	require.NoError(t, fx.flow.Claim(context.Background()))

	fx.flow.Close()
	assert.Nil(t, fx.flow.State().Result)

	fx.clock.Add(ClaimResultTTL)
	assert.ErrorIs(t, fx.flow.Claim(context.Background()), ErrClosed)
}

func TestClaimFlow_Announcer(t *testing.T) {
	announcer := &mocks.MockAnnouncer{}
	fx := newClaimFixture(WithAnnouncer(announcer))

	user := model.User{ID: "u1", Name: "Ann"}
	claim := model.Claim{Points: 50, Message: "+50!"}
	fx.backend.On("ClaimPoints", mock.Anything, "u1").Return(&claim, nil)
	announcer.On("AnnounceClaim", mock.Anything, user, claim).Return(errors.New("chat unreachable"))

	fx.flow.Select(user)
	require.NoError(t, fx.flow.Claim(context.Background()))

	assert.True(t, fx.flow.State().Result.Success, "announce failures are not shown")
	announcer.AssertExpectations(t)
}

func TestClaimFlow_Refresh(t *testing.T) {
	rank := 4
	fx := newClaimFixture()
	fx.flow.Select(model.User{ID: "u1", Points: 10, Rank: &rank})

	fx.flow.Refresh([]model.User{{ID: "u0"}, {ID: "u1", Points: 60}})

	selected := fx.flow.State().Selected
	require.NotNil(t, selected)
	assert.Equal(t, 60, selected.Points)
	require.NotNil(t, selected.Rank)
	assert.Equal(t, 4, *selected.Rank)
}
