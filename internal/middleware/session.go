package middleware

import (
	"net/http"

	"leaderboard_miniapp/internal/session"
	"leaderboard_miniapp/pkg/auth"
	"leaderboard_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKey = "session"

type Sessions struct {
	store *session.Store
}

func NewSessions(store *session.Store) *Sessions {
	return &Sessions{
		store: store,
	}
}

// Attach resolves the authenticated viewer's session. It must run after
// the Telegram auth middleware.
func (s *Sessions) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		viewer, err := auth.ViewerFromContext(c)
		if err != nil {
			log.Error("viewer not resolved before session lookup", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(sessionKey, s.store.Get(viewer.ID))
		c.Next()
	}
}

func SessionFromContext(c *gin.Context) (*session.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sess, ok := v.(*session.Session)
	return sess, ok
}
