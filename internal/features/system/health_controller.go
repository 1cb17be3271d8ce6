package system

import (
	"context"
	"time"

	"go-crm-reports/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

// Pinger is satisfied by *database.MongodbDB.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db      Pinger
	started time.Time
}

func NewHealthController(db Pinger) *HealthController {
	return &HealthController{db: db, started: time.Now()}
}

// Health reports whether the API and its database are reachable.
func (c *HealthController) Health(ctx *fiber.Ctx) error {
	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.Map{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(c.started).Round(time.Second).String(),
	}
	if err := c.db.Ping(pingCtx); err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(models.Response{
			Code:    models.CodeInternal,
			Content: status,
			Message: "database unreachable",
		})
	}
	return ctx.JSON(models.Response{Code: models.CodeOK, Content: status})
}
