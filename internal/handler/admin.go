package handler

import (
	"context"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"

	"invest-bot/internal/repository"
	"invest-bot/internal/validation"
)

const (
	recentActivityWindow = 7 * 24 * time.Hour
	recentActivityLimit  = 10
	checkTimeout         = 2 * time.Second
)

var periods = []string{
	string(repository.PeriodToday),
	string(repository.PeriodWeek),
	string(repository.PeriodMonth),
	string(repository.PeriodYear),
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	now := h.now()

	stats, err := h.admin.DashboardStats(ctx, now)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve dashboard statistics")
	}
	activity, err := h.admin.RecentActivity(ctx, now.Add(-recentActivityWindow), recentActivityLimit)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve dashboard statistics")
	}

	return ok(c, "Dashboard statistics retrieved successfully", fiber.Map{
		"users":             stats.Users,
		"packages":          stats.Packages,
		"transactions":      stats.Transactions,
		"recent_activities": activity,
	})
}

func (h *Handler) AdminUsers(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	p := paging(q)
	filter := userFilter(q)
	filter.IsAdmin = q.Bool("is_admin", "Is admin must be a boolean")
	filter.SearchEmail = true
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}

	users, page, err := h.users.FindAll(c.UserContext(), filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve admin users data")
	}
	return paged(c, "Admin users data retrieved successfully", users, page)
}

func (h *Handler) AdminPackages(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	p := paging(q)
	filter := packageFilter(q)
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}

	ctx := c.UserContext()
	packages, page, err := h.packages.FindAll(ctx, filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve admin packages data")
	}
	stats, err := h.packages.Stats(ctx)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve admin packages data")
	}

	return paged(c, "Admin packages data retrieved successfully", fiber.Map{
		"packages": packages,
		"stats":    stats,
	}, page)
}

func (h *Handler) Analytics(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	period := repository.Period(q.Enum("period", periods, "Invalid period"))
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}
	if period == "" {
		period = repository.PeriodMonth
	}

	analytics, err := h.admin.Analytics(c.UserContext(), period, h.now())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve analytics data")
	}
	return ok(c, "Analytics data retrieved successfully", analytics)
}

type serviceStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// probe runs check with a short deadline. A nil check is reported as disabled.
func probe(ctx context.Context, check Check) serviceStatus {
	if check == nil {
		return serviceStatus{Status: "disabled"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	if err := check(ctx); err != nil {
		return serviceStatus{Status: "disconnected", Error: err.Error()}
	}
	return serviceStatus{Status: "connected", Latency: time.Since(start).Round(time.Microsecond).String()}
}

func (h *Handler) System(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	db := fiber.Map{"status": probe(ctx, h.dbCheck)}
	if h.dbStats != nil {
		s := h.dbStats()
		db["pool"] = fiber.Map{
			"max_open_connections": s.MaxOpenConnections,
			"open_connections":     s.OpenConnections,
			"in_use":               s.InUse,
			"idle":                 s.Idle,
			"wait_count":           s.WaitCount,
			"wait_duration":        s.WaitDuration.String(),
		}
	}

	bot := "disabled"
	if h.botEnabled {
		bot = "enabled"
	}

	return ok(c, "System information retrieved successfully", fiber.Map{
		"server": fiber.Map{
			"go_version":  runtime.Version(),
			"os":          runtime.GOOS,
			"arch":        runtime.GOARCH,
			"goroutines":  runtime.NumGoroutine(),
			"uptime":      h.uptime().String(),
			"environment": h.server.Env,
			"memory": fiber.Map{
				"alloc":       mem.Alloc,
				"total_alloc": mem.TotalAlloc,
				"sys":         mem.Sys,
				"num_gc":      mem.NumGC,
			},
		},
		"database":  db,
		"redis":     probe(ctx, h.redisCheck),
		"bot":       bot,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) uptime() time.Duration {
	return h.now().Sub(h.started).Round(time.Second)
}
