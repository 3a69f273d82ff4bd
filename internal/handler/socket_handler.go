package handler

import (
	"context"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/service"
	internalWS "ai-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SocketHandler owns the /ws endpoint: JWT handshake, upgrade, and handing
// the connection to the hub.
type SocketHandler struct {
	hub         *internalWS.Hub
	userService service.IUserService
	logger      logger.ILogger
}

func NewSocketHandler(hub *internalWS.Hub, userService service.IUserService, log logger.ILogger) *SocketHandler {
	return &SocketHandler{
		hub:         hub,
		userService: userService,
		logger:      log,
	}
}

func (h *SocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

// ServeWs validates the token before the upgrade; a bad handshake is a plain
// 401, never an upgraded-then-closed socket.
func (h *SocketHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers pass the token as a query param; tooling uses the header.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	userID, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("SocketHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	username, err := h.userService.Username(context.Background(), userID)
	if err != nil {
		username = ""
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			internalWS.ServeWs(h.hub, conn, userID, username)
		})(c)
	}

	return fiber.ErrUpgradeRequired
}
