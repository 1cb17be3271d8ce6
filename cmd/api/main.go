package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_api "go-crm-reports/internal/common/api"
	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/config"
	"go-crm-reports/internal/database"
	"go-crm-reports/internal/features/audit"
	"go-crm-reports/internal/features/report"
	"go-crm-reports/internal/features/system"
	"go-crm-reports/internal/logger"
	"go-crm-reports/internal/middleware"
	"go-crm-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(models.Response{
				Code:    models.CodeInternal,
				Message: err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.AllowOrigins))
	app.Use(middleware.RequestLogger(log))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup on every route in the "routes" group.
func RegisterAllRoutes(app *fiber.App, log *zap.Logger, routes []common_api.Route) {
	for _, route := range routes {
		log.Debug("setting up route", zap.String("api", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	log.Info("routes registered", zap.Int("count", len(routes)))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, ``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("report api listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Error("server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, reportRepo report.ReportRepository, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := reportRepo.EnsureIndexes(ctx); err != nil {
					log.Warn("ensuring report indexes failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			database.NewDatabase,
			logger.NewLogger,
			NewFiberServer,

			report.NewReportRepository,
			report.NewRecordRepository,
			audit.NewAuditRepository,

			audit.NewAuditService,
			report.NewReportService,

			func(db *database.MongodbDB) system.Pinger { return db },

			report.NewReportController,
			audit.NewAuditController,
			system.NewHealthController,
			system.NewDebugController,

			AsRoute(report.NewReportApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(system.NewSystemApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
		),
	)

	app.Run()
}
