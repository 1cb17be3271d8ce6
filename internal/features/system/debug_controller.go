package system

import (
	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DebugController struct{}

func NewDebugController() *DebugController {
	return &DebugController{}
}

// GetCurrentUser echoes the caller's token claims, which is what report
// requests are scoped by.
func (c *DebugController) GetCurrentUser(ctx *fiber.Ctx) error {
	claims := middleware.Claims(ctx)
	if claims == nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(models.Response{Code: models.CodeUnauthorized, Message: "Unauthorized"})
	}

	return ctx.JSON(models.Response{
		Code: models.CodeOK,
		Content: fiber.Map{
			"user_id": claims.UserID,
			"org_id":  claims.OrgID,
			"roles":   claims.Roles,
		},
	})
}
