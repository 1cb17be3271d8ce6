package system

import (
	"go-crm-reports/internal/config"
	"go-crm-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SystemApi serves the operational routes: an open liveness probe and an
// authenticated echo of the caller's claims.
type SystemApi struct {
	health *HealthController
	debug  *DebugController
	config *config.Config
}

func NewSystemApi(health *HealthController, debug *DebugController, cfg *config.Config) *SystemApi {
	return &SystemApi{health: health, debug: debug, config: cfg}
}

func (h *SystemApi) Setup(app *fiber.App) {
	app.Get("/health", h.health.Health)

	debug := app.Group("/api/debug", middleware.AuthMiddleware(h.config.SkipAuth))
	debug.Get("/me", h.debug.GetCurrentUser)
}
