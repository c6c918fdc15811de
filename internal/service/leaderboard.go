package service

import (
	"context"
	"fmt"

	"leaderboard_miniapp/internal/model"
)

// RankedFetch loads a leaderboard page. Ranks are computed lazily by the
// backend, so every page load first asks for a recomputation and only then
// fetches the ranked users. A failed recomputation fails the whole load.
func RankedFetch(backend RankBackend) FetchFunc[model.User] {
	return func(ctx context.Context, page, limit int) ([]model.User, error) {
		if err := backend.RecomputeRanks(ctx); err != nil {
			return nil, fmt.Errorf("failed to recompute ranks: %w", err)
		}

		users, err := backend.ListRankedUsers(ctx, page, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list ranked users: %w", err)
		}

		return users, nil
	}
}
