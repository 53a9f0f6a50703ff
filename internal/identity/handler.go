package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/estate-link/estate_link/internal/apiclient"
)

// LocalUserID is the fiber local holding the authenticated account id.
const LocalUserID = "user_id"

// Handler exposes the profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a profile HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type profileResponse struct {
	Success bool           `json:"success"`
	User    apiclient.User `json:"user"`
	Message string         `json:"message,omitempty"`
}

// Profile returns the caller's profile.
func (h *Handler) Profile(c *fiber.Ctx) error {
	uid, _ := c.Locals(LocalUserID).(string)
	account, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return c.Status(http.StatusOK).JSON(profileResponse{Success: true, User: account.Public()})
}

// UpdateProfile applies a partial update to the caller's profile.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	uid, _ := c.Locals(LocalUserID).(string)
	var patch apiclient.ProfilePatch
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&patch); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	account, err := h.service.UpdateProfile(c.UserContext(), uid, patch)
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	case errors.Is(err, ErrInvalidProfile):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(profileResponse{Success: true, User: account.Public(), Message: "Profile updated successfully"})
}
