package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Users.Signup)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/token", cfg.Users.TokenPair)
	authGroup.Post("/token/refresh", cfg.Users.Refresh)
	authGroup.Post("/token/verify", cfg.Users.Verify)
	authGroup.Post("/token/revoke", cfg.Users.Revoke)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	app.Get("/users", cfg.Users.ListActive)

	protected := app.Group("/users", cfg.AuthMiddleware.Handle)
	protected.Put("/:username/password", cfg.Users.ChangePassword)
	protected.Delete("/:username", cfg.Users.DeleteAccount)

	app.Get("/admin/models", cfg.Admin.ListModels)
}
