package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"leaderboard_miniapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimAnnouncement(t *testing.T) {
	assert.Equal(t, "Ann claimed +50 points (+50!)",
		ClaimAnnouncement(model.User{Name: "Ann"}, model.Claim{Points: 50, Message: "+50!"}))
	assert.Equal(t, "Bob claimed +5 points",
		ClaimAnnouncement(model.User{Name: "Bob"}, model.Claim{Points: 5}))
}

func TestTelegramAnnouncer_AnnounceClaim(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"points","username":"points_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			_ = r.ParseForm()
			mu.Lock()
			sent = append(sent, r.PostForm.Get("chat_id")+"|"+r.PostForm.Get("text"))
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"group"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("token", srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	announcer := NewTelegramAnnouncerWithBot(bot, 42, false)
	err = announcer.AnnounceClaim(context.Background(), model.User{Name: "Ann"}, model.Claim{Points: 50})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"42|Ann claimed +50 points"}, sent)
}
