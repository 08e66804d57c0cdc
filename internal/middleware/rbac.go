package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/asset-review-api/internal/utils"
)

// RequireRole ensures the authenticated caller holds one of the allowed roles.
// Requests that never passed JWTProtected are rejected as unauthenticated.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			if c.Locals("user_id") == nil {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
			}
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
