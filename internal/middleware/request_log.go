package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger writes one line per request. Server errors are logged at
// error level so they also reach the logs collection.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if claims := Claims(c); claims != nil {
			fields = append(fields, zap.String("org_id", claims.OrgID))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Debug("request", fields...)
		}
		return err
	}
}
