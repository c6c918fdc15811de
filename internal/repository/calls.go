package repository

import (
	"context"
	"fmt"
	"time"

	"leaderboard_miniapp/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type backendCall struct {
	ID         uuid.UUID `db:"id"`
	Method     string    `db:"method"`
	Path       string    `db:"path"`
	Status     int       `db:"status"`
	DurationMS int64     `db:"duration_ms"`
	Error      string    `db:"error"`
	CalledAt   int64     `db:"called_at"`
}

func (c backendCall) toModel() *model.BackendCall {
	return &model.BackendCall{
		ID:       c.ID,
		Method:   c.Method,
		Path:     c.Path,
		Status:   c.Status,
		Duration: time.Duration(c.DurationMS) * time.Millisecond,
		Error:    c.Error,
		At:       time.UnixMilli(c.CalledAt).UTC(),
	}
}

func (r *Repository) RecordCall(ctx context.Context, call *model.BackendCall) error {
	if call.ID == uuid.Nil {
		call.ID = uuid.New()
	}

	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sq.
			Insert("backend_calls").
			SetMap(map[string]interface{}{
				"id":          call.ID,
				"method":      call.Method,
				"path":        call.Path,
				"status":      call.Status,
				"duration_ms": call.Duration.Milliseconds(),
				"error":       call.Error,
				"called_at":   call.At.UnixMilli(),
			}).
			PlaceholderFormat(r.ph).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build backend call insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert backend call: %w", err)
		}

		return nil
	})
}

// RecentCalls returns the newest journal entries first.
func (r *Repository) RecentCalls(ctx context.Context, limit int) ([]*model.BackendCall, error) {
	query, args, err := sq.
		Select("id", "method", "path", "status", "duration_ms", "error", "called_at").
		From("backend_calls").
		OrderBy("called_at DESC", "id").
		Limit(uint64(limit)).
		PlaceholderFormat(r.ph).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build backend calls query: %w", err)
	}

	var rows []backendCall
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select backend calls: %w", err)
	}

	calls := make([]*model.BackendCall, 0, len(rows))
	for _, row := range rows {
		calls = append(calls, row.toModel())
	}

	return calls, nil
}

// PruneCalls deletes entries recorded before the cutoff.
func (r *Repository) PruneCalls(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := sq.
		Delete("backend_calls").
		Where(sq.Lt{"called_at": before.UnixMilli()}).
		PlaceholderFormat(r.ph).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build backend calls delete query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune backend calls: %w", err)
	}

	return res.RowsAffected()
}
