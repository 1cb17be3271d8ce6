package report

import (
	"errors"
	"fmt"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReportController struct {
	ReportService ReportService
	log           *zap.Logger
}

func NewReportController(reportService ReportService, log *zap.Logger) *ReportController {
	return &ReportController{ReportService: reportService, log: log}
}

func caller(ctx *fiber.Ctx) (Caller, bool) {
	claims := middleware.Claims(ctx)
	if claims == nil || claims.OrgID == "" {
		return Caller{}, false
	}
	return Caller{OrgID: claims.OrgID, UserID: claims.UserID}, true
}

func ok(ctx *fiber.Ctx, status int, content any) error {
	return ctx.Status(status).JSON(models.Response{Code: models.CodeOK, Content: content})
}

// fail renders err as an envelope. Internal errors are logged and hidden.
func (c *ReportController) fail(ctx *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(models.Response{Code: models.CodeNotFound, Message: "Report not found"})
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrDefaultReadOnly):
		return ctx.Status(fiber.StatusBadRequest).JSON(models.Response{Code: models.CodeInvalid, Message: err.Error()})
	}
	c.log.Error(fallback, zap.String("path", ctx.Path()), zap.Error(err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(models.Response{Code: models.CodeInternal, Message: fallback})
}

func (c *ReportController) withCaller(handler func(*fiber.Ctx, Caller) error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		who, found := caller(ctx)
		if !found {
			return ctx.Status(fiber.StatusUnauthorized).JSON(models.Response{Code: models.CodeUnauthorized, Message: "Unauthorized"})
		}
		return handler(ctx, who)
	}
}

func parseConfig(ctx *fiber.Ctx) (*models.ReportConfig, error) {
	var report models.ReportConfig
	if err := ctx.BodyParser(&report); err != nil {
		return nil, invalid("invalid request body: %v", err)
	}
	return &report, nil
}

func (c *ReportController) List(ctx *fiber.Ctx, who Caller) error {
	reports, err := c.ReportService.ListReports(ctx.UserContext(), who)
	if err != nil {
		return c.fail(ctx, err, "Failed to list reports")
	}
	return ok(ctx, fiber.StatusOK, reports)
}

func (c *ReportController) Get(ctx *fiber.Ctx, who Caller) error {
	report, err := c.ReportService.GetReport(ctx.UserContext(), who, ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err, "Failed to load report")
	}
	return ok(ctx, fiber.StatusOK, report)
}

func (c *ReportController) Create(ctx *fiber.Ctx, who Caller) error {
	report, err := parseConfig(ctx)
	if err != nil {
		return c.fail(ctx, err, "")
	}
	id, err := c.ReportService.CreateReport(ctx.UserContext(), who, report)
	if err != nil {
		return c.fail(ctx, err, "Failed to create report")
	}
	return ok(ctx, fiber.StatusCreated, fiber.Map{"id": id})
}

func (c *ReportController) Update(ctx *fiber.Ctx, who Caller) error {
	report, err := parseConfig(ctx)
	if err != nil {
		return c.fail(ctx, err, "")
	}
	if err := c.ReportService.UpdateReport(ctx.UserContext(), who, ctx.Params("id"), report); err != nil {
		return c.fail(ctx, err, "Failed to save report")
	}
	return ok(ctx, fiber.StatusOK, nil)
}

func (c *ReportController) Delete(ctx *fiber.Ctx, who Caller) error {
	if err := c.ReportService.DeleteReport(ctx.UserContext(), who, ctx.Params("id")); err != nil {
		return c.fail(ctx, err, "Failed to delete report")
	}
	return ok(ctx, fiber.StatusOK, nil)
}

// Preview answers with the rows as content and the card data as metadata.
func (c *ReportController) Preview(ctx *fiber.Ctx, who Caller) error {
	report, err := parseConfig(ctx)
	if err != nil {
		return c.fail(ctx, err, "")
	}
	res, err := c.ReportService.Preview(ctx.UserContext(), who, report)
	if err != nil {
		return c.fail(ctx, err, "Failed to load report data")
	}
	return ctx.JSON(models.Response{Code: models.CodeOK, Content: res.Rows, Metadata: res.Metadata})
}

func (c *ReportController) Export(ctx *fiber.Ctx, who Caller) error {
	report, err := parseConfig(ctx)
	if err != nil {
		return c.fail(ctx, err, "")
	}
	data, filename, err := c.ReportService.ExportPreview(ctx.UserContext(), who, report)
	if err != nil {
		return c.fail(ctx, err, "Failed to export report")
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(data)
}
