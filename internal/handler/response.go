package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"invest-bot/internal/database"
	"invest-bot/internal/repository"
	"invest-bot/internal/validation"
)

type response struct {
	Message    string           `json:"message"`
	Data       any              `json:"data"`
	Pagination *repository.Page `json:"pagination,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.JSON(response{Message: message, Data: data})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(response{Message: message, Data: data})
}

func paged(c *fiber.Ctx, message string, data any, page repository.Page) error {
	return c.JSON(response{Message: message, Data: data, Pagination: &page})
}

func fail(c *fiber.Ctx, status int, name, message string) error {
	return c.Status(status).JSON(errorResponse{Error: name, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, "Bad Request", message)
}

func notFound(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusNotFound, "Not Found", message)
}

func invalid(c *fiber.Ctx, errs validation.Errors) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
		Error:   "Validation Error",
		Message: "Invalid request data",
		Details: errs,
	})
}

// serverError logs err and answers 503 when the database is unreachable,
// 500 otherwise. The error text is only exposed in development.
func (h *Handler) serverError(c *fiber.Ctx, err error, message string) error {
	if database.IsUnavailable(err) {
		h.log.Error("Database unavailable", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, fiber.StatusServiceUnavailable, "Service Unavailable",
			"Database connection failed. Please try again later.")
	}

	h.log.Error(message, zap.String("path", c.Path()), zap.Error(err))
	body := errorResponse{Error: "Internal Server Error", Message: message}
	if h.server.IsDevelopment() {
		body.Details = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// duplicate answers 400 for unique index conflicts and reports whether it did.
func duplicate(c *fiber.Ctx, err error) (bool, error) {
	switch {
	case errors.Is(err, repository.ErrDuplicateTelegramID):
		return true, badRequest(c, "User with this Telegram ID already exists")
	case errors.Is(err, repository.ErrDuplicateReferralCode):
		return true, badRequest(c, "User with this referral code already exists")
	case errors.Is(err, repository.ErrDuplicate):
		return true, badRequest(c, "A record with these values already exists")
	}
	return false, nil
}

// bind decodes the JSON body into dst and validates it, collecting decode
// and rule violations together.
func bind(c *fiber.Ctx, dst any) validation.Errors {
	return validation.Body(dst, c.BodyParser(dst))
}

// idParam parses a positive numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx, field string) error {
	return invalid(c, validation.Errors{{Field: field, Message: "ID must be a positive integer"}})
}

// paging reads page and limit, collecting bad values into q.
func paging(q *validation.Query) repository.Pagination {
	p := repository.Pagination{Page: repository.DefaultPage, Limit: repository.DefaultLimit}
	if page := q.Int("page", 1, 0, "Page must be a positive integer"); page != nil {
		p.Page = *page
	}
	if limit := q.Int("limit", 1, repository.MaxLimit, "Limit must be between 1 and 100"); limit != nil {
		p.Limit = *limit
	}
	return p
}
