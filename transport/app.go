package transport

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp assembles the fiber application: public auth routes, the
// protected REST surface and the websocket endpoint.
func NewApp(handlers *HTTPHandlers, gateway *WSGateway) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat-relay",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	api := app.Group("/api")
	api.Post("/register", handlers.Register)
	api.Post("/login", handlers.Login)

	protected := api.Group("", handlers.RequireAuth)
	protected.Get("/me", handlers.GetProfile)
	protected.Patch("/me", handlers.UpdateProfile)
	protected.Post("/conversations/one-to-one", handlers.CreateOneToOne)
	protected.Post("/conversations/group", handlers.CreateGroup)
	protected.Get("/conversations", handlers.ListConversations)
	protected.Get("/conversations/:id", handlers.GetConversation)
	protected.Get("/conversations/:id/messages", handlers.GetMessages)
	protected.Post("/messages", handlers.SendMessage)
	protected.Patch("/conversations/:id/name", handlers.RenameConversation)
	protected.Post("/conversations/:id/members", handlers.AddMember)
	protected.Delete("/conversations/:id/members/:member", handlers.RemoveMember)
	protected.Get("/search/users", handlers.SearchUsers)
	protected.Get("/search/messages", handlers.SearchMessages)
	protected.Get("/metrics", handlers.Metrics)

	app.Use("/ws", gateway.Upgrade)
	app.Get("/ws", gateway.Handler())

	return app
}
