package service

import (
	"context"
	"errors"

	"leaderboard_miniapp/internal/model"
)

const PageSize = 10

var (
	ErrNameRequired    = errors.New("name is required")
	ErrNothingSelected = errors.New("no user selected")
	ErrClosed          = errors.New("view is closed")
)

// User-facing messages.
const (
	UsersLoadFailed       = "Failed to load users."
	HistoryLoadFailed     = "Failed to load history."
	LeaderboardLoadFailed = "Failed to load leaderboard."
	NameRequired          = "Name is required."
	ClaimFailed           = "Failed to claim points"
	CreateFailed          = "Failed to create user."
)

// Backend is the set of calls the views make against the points service.
type Backend interface {
	UserBackend
	HistoryBackend
	RankBackend
}

type UserBackend interface {
	ListUsers(ctx context.Context, page, limit int) ([]model.User, error)
	CreateUser(ctx context.Context, draft model.NewUser) (*model.User, error)
	ClaimPoints(ctx context.Context, userID string) (*model.Claim, error)
}

type HistoryBackend interface {
	ListHistory(ctx context.Context, page, limit int) ([]model.HistoryRecord, error)
}

type RankBackend interface {
	ListRankedUsers(ctx context.Context, page, limit int) ([]model.User, error)
	RecomputeRanks(ctx context.Context) error
}

// ClaimAnnouncer is told about every successful claim.
type ClaimAnnouncer interface {
	AnnounceClaim(ctx context.Context, user model.User, claim model.Claim) error
}
