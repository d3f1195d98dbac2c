package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"invest-bot/internal/metrics"
)

// Metrics records request counts and latency by route pattern, not raw path.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.RequestStarted()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		m.RequestFinished(c.Method(), route, status, time.Since(start))
		return err
	}
}
