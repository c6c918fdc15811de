package api

import (
	"net/http"
	"time"

	"leaderboard_miniapp/internal/middleware"
	"leaderboard_miniapp/internal/session"
	"leaderboard_miniapp/pkg/auth"
	"leaderboard_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	MessageViewState = "view_state"
	MessageRefresh   = "refresh"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string    `json:"type"`
	Payload *Snapshot `json:"payload,omitempty"`
}

type streamRoutes struct{}

// NewStreamRoutes registers the websocket that pushes a fresh snapshot of
// the viewer's mounted view after every state change.
func NewStreamRoutes(handler *gin.RouterGroup, store *session.Store, a *auth.TelegramAuth) {
	r := &streamRoutes{}
	sessions := middleware.NewSessions(store)

	h := handler.Group("/ws")
	h.Use(a.TelegramAuthMiddleware(), sessions.Attach())
	h.GET("", r.handleWebSocket)
}

func (sr *streamRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Named("ws")

	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	id, changes := sess.Subscribe()
	log.Info("viewer subscribed", zap.Int64("viewer_id", sess.ViewerID), zap.String("subscription", id.String()))

	refresh := make(chan struct{}, 1)
	done := make(chan struct{})
	go readLoop(conn, refresh, done)

	defer func() {
		sess.Unsubscribe(id)
		conn.Close()
		log.Info("viewer unsubscribed", zap.Int64("viewer_id", sess.ViewerID), zap.String("subscription", id.String()))
	}()

	if err := sendSnapshot(conn, sess); err != nil {
		log.Error("failed to send snapshot", zap.Int64("viewer_id", sess.ViewerID), zap.Error(err))
		return
	}

	for {
		select {
		case <-done:
			return
		case _, open := <-changes:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeWait))
				return
			}
		case <-refresh:
		}

		if err := sendSnapshot(conn, sess); err != nil {
			log.Error("failed to send snapshot", zap.Int64("viewer_id", sess.ViewerID), zap.Error(err))
			return
		}
	}
}

// readLoop drains client frames. A "refresh" message asks for the current
// snapshot; anything else is ignored.
func readLoop(conn *websocket.Conn, refresh chan<- struct{}, done chan<- struct{}) {
	log := logger.Named("ws")
	defer close(done)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("websocket unexpected close", zap.Error(err))
			}
			return
		}

		var message Message
		if err := json.Unmarshal(msg, &message); err != nil {
			log.Info("failed to unmarshal message", zap.Error(err))
			continue
		}

		if message.Type == MessageRefresh {
			select {
			case refresh <- struct{}{}:
			default:
			}
		}
	}
}

func sendSnapshot(conn *websocket.Conn, sess *session.Session) error {
	snapshot := BuildSnapshot(sess.Current())

	data, err := json.Marshal(Message{Type: MessageViewState, Payload: &snapshot})
	if err != nil {
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
