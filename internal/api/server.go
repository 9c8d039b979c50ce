package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"github.com/KhanMaytok/pixl-interview/internal/auth"
	"github.com/KhanMaytok/pixl-interview/internal/presence"
	"github.com/KhanMaytok/pixl-interview/internal/service"
	"github.com/KhanMaytok/pixl-interview/internal/ws"
)

func NewServer(svc *service.MessageService, wsrv *ws.Server, pres *presence.Store, jv *auth.Validator) *fiber.App {
	app := fiber.New()
	app.Use(logger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	h := NewHandlers(svc, wsrv, pres)

	api := app.Group("/api/v1", authMiddleware(jv))

	api.Post("/messages/chat", h.createMessage)
	api.Post("/messages/fetch", h.fetchMessages)
	api.Patch("/messages/:msg_id", h.editMessage)
	api.Delete("/messages/:msg_id", h.deleteMessage)
	api.Delete("/chats", h.deleteConversation)
	api.Get("/chats/:other_id/last-message", h.lastMessage)
	api.Get("/presence/:user_id", h.getPresence)

	app.Use("/ws", authMiddleware(jv), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsrv.HandleWS))

	return app
}

// authMiddleware accepts the token from the Authorization header or, for
// browser websocket clients that cannot set headers, from the token query
// parameter. The authenticated user id lands in Locals and survives the
// websocket upgrade.
func authMiddleware(jv *auth.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		hdr := c.Get("Authorization")
		const pref = "Bearer "
		if len(hdr) > len(pref) && hdr[:len(pref)] == pref {
			token = hdr[len(pref):]
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing auth"})
		}
		userID, err := jv.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}
