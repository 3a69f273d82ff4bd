package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs handles a websocket connection after the JWT handshake succeeded.
func ServeWs(hub *Hub, c *websocket.Conn, userID uuid.UUID, username string) {
	client := &Client{Hub: hub, Conn: c, UserID: userID, Username: username, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
