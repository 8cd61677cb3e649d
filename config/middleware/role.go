package middleware

import (
	"github.com/gofiber/fiber/v2"

	"attendance-tracker/models"
)

// RequireRoles allows the request through only when the authenticated
// caller holds one of the given roles. Must run after AuthMiddleware.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*models.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated or corrupted session data"})
		}

		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied. Insufficient role privileges"})
	}
}
