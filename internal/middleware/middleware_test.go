package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"leaderboard_miniapp/internal/service"
	"leaderboard_miniapp/internal/service/mocks"
	"leaderboard_miniapp/internal/session"
	"leaderboard_miniapp/pkg/auth"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newStore() *session.Store {
	return session.NewStore(service.ViewDeps{Backend: &mocks.MockBackend{}, Clock: clock.NewMock()}, session.Config{})
}

func TestSessions_Attach(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newStore()

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/who",
		auth.NewTelegramAuth("", true).TelegramAuthMiddleware(),
		NewSessions(store).Attach(),
		func(c *gin.Context) {
			sess, ok := SessionFromContext(c)
			if !ok {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"viewer": sess.ViewerID})
		})

	values := url.Values{}
	values.Set("user", `{"id":77}`)
	values.Set("auth_date", "1700000000")

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Telegram "+values.Encode())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"viewer":77}`, w.Body.String())

	_, ok := store.Lookup(77)
	assert.True(t, ok)
}

func TestSessions_AttachWithoutViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/who", NewSessions(newStore()).Attach(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionFromContext_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := SessionFromContext(c)
	assert.False(t, ok)
}
