package realtime

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

var validChannels = map[Channel]bool{
	ChannelHabits:   true,
	ChannelStreaks:  true,
	ChannelInsights: true,
	ChannelScans:    true,
	ChannelPosts:    true,
}

// Upgrade gates the websocket handshake.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler streams one channel's events over a websocket connection.
// The subscription is torn down when the socket closes.
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ch := Channel(conn.Params("channel"))
		if !validChannels[ch] {
			conn.WriteJSON(fiber.Map{"error": "unknown channel: " + string(ch)})
			conn.Close()
			return
		}

		sub := hub.Subscribe(ch)
		defer sub.Unsubscribe()
		defer conn.Close()

		// Reader goroutine detects client disconnect.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					slog.Info("websocket write failed, closing", "channel", ch, "error", err)
					return
				}
			case <-ping.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}
