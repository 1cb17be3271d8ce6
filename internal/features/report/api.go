package report

import (
	"go-crm-reports/internal/config"
	"go-crm-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	ReportController *ReportController
	Config           *config.Config
}

func NewReportApi(reportController *ReportController, config *config.Config) *ReportApi {
	return &ReportApi{
		ReportController: reportController,
		Config:           config,
	}
}

func (api *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports", middleware.AuthMiddleware(api.Config.SkipAuth))
	ctrl := api.ReportController

	// Static paths first so they are not taken for a report id.
	group.Post("/preview", ctrl.withCaller(ctrl.Preview))
	group.Post("/preview/export", ctrl.withCaller(ctrl.Export))

	group.Get("/", ctrl.withCaller(ctrl.List))
	group.Post("/", ctrl.withCaller(ctrl.Create))
	group.Get("/:id", ctrl.withCaller(ctrl.Get))
	group.Put("/:id", ctrl.withCaller(ctrl.Update))
	group.Delete("/:id", ctrl.withCaller(ctrl.Delete))
}
