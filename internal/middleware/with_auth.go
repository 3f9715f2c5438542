package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coursework-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = "admin"
	AuthRoleStaff   = "staff"
	AuthRoleStudent = "student"
)

const codeForbidden = "FORBIDDEN"

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with basic authentication/authorization guards.
// Course ownership is checked further down by the service policy.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if !requireUser && role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id")
		if requireUser && userID == nil {
			return utils.SendErrorCode(c, fiber.StatusUnauthorized, codeUnauthorized, "authentication required")
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := normalizeRoleValue(c.Locals("user_role"))
		allowed := false
		switch role {
		case AuthRoleStaff:
			allowed = currentRole == "admin" || currentRole == "teacher"
		default:
			allowed = currentRole == role
		}
		if !allowed {
			return utils.SendErrorCode(c, fiber.StatusForbidden, codeForbidden, "insufficient permissions")
		}

		return handler(c)
	}
}
