package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nusaledger/nusa_ledger/internal/auth"
)

const (
	apiKeyHeader = "X-API-Key"
	identityKey  = "identity"
)

// Authenticate resolves the caller's identity from the X-API-Key header and
// stores it in the request locals. Role checks happen later, per operation.
func Authenticate(keyring *auth.Keyring) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := c.Get(apiKeyHeader)
		if credential == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing api key")
		}

		identity, err := keyring.Verify(c.UserContext(), credential)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid api key")
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// Identity returns the authenticated caller identity set by Authenticate,
// or an empty string when the request is unauthenticated.
func Identity(c *fiber.Ctx) string {
	identity, _ := c.Locals(identityKey).(string)
	return identity
}
