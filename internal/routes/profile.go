package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/estate-link/estate_link/internal/identity"
)

// RegisterProfileRoutes wires the bearer-protected profile endpoints.
func RegisterProfileRoutes(r fiber.Router, h *identity.Handler, bearer fiber.Handler) {
	user := r.Group("/user", bearer)
	user.Get("/profile", h.Profile)
	user.Put("/profile", h.UpdateProfile)
}
