package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborlane/authcore/internal/domain/auth"
	"github.com/harborlane/authcore/internal/domain/token"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, authHandler *auth.Handler, authMiddleware fiber.Handler, keyStore *token.KeyStore) {
	app.Get("/.well-known/jwks.json", func(c *fiber.Ctx) error {
		keys, err := keyStore.Keys(c.UserContext())
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.Status(fiber.StatusOK).JSON(keys)
	})

	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/refresh", authHandler.Refresh)

	authed := api.Group("", authMiddleware)
	authed.Post("/auth/logout", authHandler.Logout)
	authed.Post("/auth/logout-all", authHandler.LogoutAll)
	authed.Get("/auth/sessions", authHandler.Sessions)
	authed.Get("/auth/step-up", authHandler.StepUp)
	authed.Post("/auth/step-up/verify", authHandler.StepUpVerify)
}
