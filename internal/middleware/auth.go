package middleware

import (
	"strings"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(skipAuth bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if skipAuth {
			c.Locals(utils.UserClaimsKey, &utils.UserClaims{
				UserID: "dev-admin-id",
				OrgID:  "dev-org",
				Roles:  []string{"admin"},
			})
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Authorization header required")
		}

		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || token == "" {
			return unauthorized(c, "Invalid authorization header format")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		c.Locals(utils.UserClaimsKey, claims)
		return c.Next()
	}
}

// Claims returns the caller set by AuthMiddleware, or nil.
func Claims(c *fiber.Ctx) *utils.UserClaims {
	claims, _ := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	return claims
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.Response{
		Code:    models.CodeUnauthorized,
		Message: message,
	})
}
