package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()
	db := probe(ctx, h.dbCheck)
	redis := probe(ctx, h.redisCheck)

	status, code := "OK", fiber.StatusOK
	if db.Status == "disconnected" {
		status, code = "ERROR", fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"timestamp":   h.now().UTC().Format(time.RFC3339),
		"uptime":      h.uptime().Seconds(),
		"environment": h.server.Env,
		"services": fiber.Map{
			"database": db,
			"redis":    redis,
		},
	})
}

func (h *Handler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "🚀 Invest Bot API",
		"version": version,
		"status":  "Running",
		"endpoints": fiber.Map{
			"auth":         "/api/auth",
			"users":        "/api/users",
			"packages":     "/api/packages",
			"transactions": "/api/transactions",
			"admin":        "/api/admin",
			"upload":       "/api/upload",
			"health":       "/health",
		},
	})
}

func (h *Handler) NotFound(c *fiber.Ctx) error {
	return fail(c, fiber.StatusNotFound, "Endpoint not found", "Route "+c.OriginalURL()+" does not exist")
}
