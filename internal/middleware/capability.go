package middleware

import (
	"context"

	"go-reporting/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// CapabilityChecker resolves whether a subject's workspace role grants an action.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, userID, workspaceID, action string) (bool, error)
}

// RequireCapability checks the caller's workspace membership for an action
// (read, write, delete, manage) before letting the request through.
func RequireCapability(checker CapabilityChecker, skipAuth bool, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			return c.Next()
		}

		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		allowed, err := checker.HasCapability(c.Context(), claims.UserID, claims.WorkspaceID, action)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}

		if !allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Insufficient permissions",
			})
		}

		return c.Next()
	}
}
