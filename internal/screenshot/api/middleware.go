package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
)

// RequestLogger logs every request; failures at error level, the rest at debug.
func RequestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		fields := []logging.Field{
			logging.String("method", c.Method()),
			logging.String("path", c.Path()),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
		}

		if err != nil || status >= fiber.StatusBadRequest {
			logger.Error("HTTP request", err, fields...)
		} else {
			logger.Debug("HTTP request", fields...)
		}

		return err
	}
}
