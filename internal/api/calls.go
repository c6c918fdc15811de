package api

import (
	"context"
	"net/http"
	"time"

	"leaderboard_miniapp/internal/model"
	"leaderboard_miniapp/pkg/auth"
	"leaderboard_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

const (
	defaultCallsLimit = 50
	maxCallsLimit     = 500
)

// CallJournal is the read side of the backend call log.
type CallJournal interface {
	RecentCalls(ctx context.Context, limit int) ([]*model.BackendCall, error)
}

type callRoutes struct {
	journal CallJournal
}

func NewCallRoutes(handler *gin.RouterGroup, journal CallJournal, a *auth.TelegramAuth) {
	r := &callRoutes{journal: journal}
	h := handler.Group("/calls")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("", r.GetRecentCalls)
	}
}

type CallsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type CallResponse struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

func (r *callRoutes) GetRecentCalls(c *gin.Context) {
	log := logger.Logger()

	var query CallsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		log.Info("invalid calls query", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	limit := defaultCallsLimit
	if query.Limit > 0 {
		limit = min(query.Limit, maxCallsLimit)
	}

	calls, err := r.journal.RecentCalls(c.Request.Context(), limit)
	if err != nil {
		log.Error("failed to list backend calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	resp := make([]CallResponse, 0, len(calls))
	for _, call := range calls {
		resp = append(resp, CallResponse{
			ID:         call.ID.String(),
			Method:     call.Method,
			Path:       call.Path,
			Status:     call.Status,
			DurationMs: call.Duration.Milliseconds(),
			Error:      call.Error,
			At:         call.At,
		})
	}

	c.JSON(http.StatusOK, gin.H{"calls": resp})
}
