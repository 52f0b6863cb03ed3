package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/admin"
)

// AdminHandler exposes the compile-time admin registry.
type AdminHandler struct{}

// NewAdminHandler constructs handler.
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// ListModels handles GET /admin/models.
func (h *AdminHandler) ListModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": admin.Registrations()})
}
