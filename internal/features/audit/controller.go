package audit

import (
	"strconv"

	common_models "go-crm-reports/internal/common/models"
	"go-crm-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs returns the change history of the caller's reports, newest first.
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(common_models.Response{Code: common_models.CodeUnauthorized, Message: "Unauthorized"})
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filters := map[string]string{
		"module":    c.Query("module"),
		"record_id": c.Query("record_id"),
		"action":    c.Query("action"),
	}

	logs, err := ctrl.Service.ListLogs(c.UserContext(), claims.OrgID, filters, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(common_models.Response{
			Code:    common_models.CodeInternal,
			Message: "Failed to load audit logs",
		})
	}

	return c.JSON(common_models.Response{Code: common_models.CodeOK, Content: logs})
}
