package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/apperr"
	"github.com/example/storefront/internal/models"
)

const callerContextKey = "caller"

// AccessCookie is the cookie holding the access token.
const AccessCookie = "token"

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(accessToken string) (models.Caller, error)
}

// AuthMiddleware verifies the access token from the Authorization header or
// the token cookie and stores the caller in the request locals.
func AuthMiddleware(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(AccessCookie)
		if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return apperr.Unauthorized("invalid authorization header")
			}
			token = parts[1]
		}
		if token == "" {
			return apperr.Unauthorized("missing access token")
		}

		caller, err := auth.Authenticate(token)
		if err != nil {
			return err
		}

		c.Locals(callerContextKey, caller)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the ADMIN role. It must run after
// AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := GetCaller(c)
		if !ok {
			return apperr.Unauthorized("authentication required")
		}
		if !caller.IsAdmin() {
			return apperr.Forbidden("admin access required")
		}
		return c.Next()
	}
}

// GetCaller extracts the authenticated caller from context.
func GetCaller(c *fiber.Ctx) (models.Caller, bool) {
	caller, ok := c.Locals(callerContextKey).(models.Caller)
	return caller, ok
}
