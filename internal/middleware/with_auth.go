package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codearena-api/internal/utils"
)

// Auth role constants used by WithAuth.
const (
	AuthRoleAny   = "any"
	AuthRoleAdmin = "admin"
)

// AuthOptions configures WithAuth.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role guards. Any role other than AuthRoleAny
// implies RequireUser.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}
	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(LocalUserID).(string)
		if requireUser && strings.TrimSpace(userID) == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role != AuthRoleAny {
			currentRole, _ := c.Locals(LocalUserRole).(string)
			if strings.ToLower(strings.TrimSpace(currentRole)) != role {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}

		return handler(c)
	}
}
