// Command wsclient connects to the view-state websocket and prints every
// snapshot it receives. Useful for watching a viewer's session while
// driving it with curl.
package main

import (
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"leaderboard_miniapp/internal/api"
	"leaderboard_miniapp/pkg/auth"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/api/v1/ws", "websocket endpoint")
	initData := flag.String("init-data", "", "Telegram init data (required)")
	refresh := flag.Duration("refresh", 0, "ask for a fresh snapshot at this interval, 0 to disable")
	flag.Parse()

	if *initData == "" {
		log.Fatal("--init-data is required")
	}

	u, err := url.Parse(*addr)
	if err != nil {
		log.Fatalf("invalid addr: %v", err)
	}
	q := u.Query()
	q.Set(auth.InitDataQueryParam, *initData)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	messageQueue := make(chan api.Message)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			var msg api.Message
			if err := json.Unmarshal(p, &msg); err != nil {
				log.Println("json unmarshal error:", err)
				continue
			}
			messageQueue <- msg
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	var tick <-chan time.Time
	if *refresh > 0 {
		ticker := time.NewTicker(*refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case msg, ok := <-messageQueue:
			if !ok {
				return
			}
			out, err := json.MarshalIndent(msg.Payload, "", "  ")
			if err != nil {
				color.Red("[ERROR] json marshal: %v", err)
				continue
			}
			color.Cyan("[%s] %s", time.Now().Format(time.TimeOnly), msg.Type)
			log.Printf("%s\n", out)

		case <-tick:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"`+api.MessageRefresh+`"}`)); err != nil {
				color.Red("[ERROR] write: %v", err)
				return
			}
			color.Yellow("[%s] refresh requested", time.Now().Format(time.TimeOnly))

		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
