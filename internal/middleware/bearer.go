package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/estate-link/estate_link/internal/identity"
)

// TokenVerifier resolves a bearer token to its account.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (identity.Account, error)
}

// Bearer rejects requests without a valid, unrevoked access token and stores
// the account id in the identity.LocalUserID local.
func Bearer(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		account, err := verifier.Authenticate(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(identity.LocalUserID, account.ID)
		return c.Next()
	}
}
