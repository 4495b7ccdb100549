package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the live ride websocket. Guards run on the upgrade
// request before the connection is accepted.
func RegisterRoutes(r fiber.Router, hub *Hub, guards ...fiber.Handler) {
	handlers := []fiber.Handler{requireUpgrade}
	handlers = append(handlers, guards...)
	handlers = append(handlers, websocket.New(func(c *websocket.Conn) {
		serve(c, hub, c.Params("sessionID"))
	}))
	r.Get("/ws/:sessionID", handlers...)
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func serve(c *websocket.Conn, hub *Hub, sessionID string) {
	client := hub.Register(sessionID)
	defer hub.Unregister(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// Inbound frames are ignored; reading only detects the client leaving.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	hub.Unregister(client)
	<-done
}
