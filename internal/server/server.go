// Package server assembles the fiber application: middleware chain, routes and error envelope.
package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"invest-bot/internal/config"
	"invest-bot/internal/handler"
	"invest-bot/internal/metrics"
	"invest-bot/internal/middleware"
	"invest-bot/internal/storage"
)

const bodyLimit = 10 * 1024 * 1024

type Options struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Tokens  middleware.TokenParser

	// Accounts re-checks the operator behind each token.
	Accounts middleware.AccountFinder

	// LimiterStorage backs the /api rate limit. Nil keeps counters in memory.
	LimiterStorage fiber.Storage
}

func New(cfg config.Config, h *handler.Handler, opts Options) *fiber.App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:      "Invest Bot API",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(cfg.Server, log),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.Server.IsDevelopment()}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(log))
	if opts.Metrics != nil {
		app.Use(middleware.Metrics(opts.Metrics))
	}
	app.Use(helmet.New(helmet.Config{
		// Uploaded images are embedded by the dashboard from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(cors.New(corsConfig(cfg.CORS)))
	app.Use("/api", middleware.RateLimit(cfg.RateLimit, opts.LimiterStorage))

	if cfg.Upload.Driver == "" || cfg.Upload.Driver == storage.DriverLocal {
		app.Static(storage.PublicPrefix, cfg.Upload.Dir)
	}
	if opts.Metrics != nil {
		app.Get("/metrics",
			middleware.AllowCIDRs(cfg.Metrics.AllowedCIDRs, log),
			adaptor.HTTPHandler(opts.Metrics.Handler()),
		)
	}

	var guard fiber.Handler
	if cfg.Auth.Enabled && opts.Tokens != nil && opts.Accounts != nil {
		guard = middleware.RequireAdmin(opts.Tokens, opts.Accounts)
	} else {
		log.Warn("API authentication is disabled")
	}

	h.Register(app, guard)
	app.Use(h.NotFound)
	return app
}

func corsConfig(cfg config.CORS) cors.Config {
	c := cors.Config{
		AllowOrigins:     strings.Join(cfg.Origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}
	// fiber refuses credentials with a wildcard origin.
	if slices.Contains(cfg.Origins, "*") {
		c.AllowOrigins = "*"
		c.AllowCredentials = false
	}
	return c
}

// ErrorHandler turns errors that escape a handler into the error envelope.
func ErrorHandler(srv config.Server, log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Something went wrong"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		body := fiber.Map{
			"error":   http.StatusText(code),
			"message": message,
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
			if srv.IsDevelopment() {
				body["details"] = err.Error()
			}
		}
		return c.Status(code).JSON(body)
	}
}
