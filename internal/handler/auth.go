package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"invest-bot/internal/auth"
	"invest-bot/internal/middleware"
	"invest-bot/internal/models"
)

type loginRequest struct {
	Username string `json:"username" validate:"required" msg:"Username is required"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

type refreshRequest struct {
	Token string `json:"token"`
}

func accountSummary(u *models.User) fiber.Map {
	return fiber.Map{
		"id":         u.ID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_admin":   u.IsAdmin,
	}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	user, err := h.accounts.FindAdminByUsername(c.UserContext(), req.Username)
	if err != nil {
		return h.serverError(c, err, "Login failed")
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.log.Warn("Rejected login", zap.String("username", req.Username), zap.String("ip", c.IP()))
		return fail(c, fiber.StatusUnauthorized, "Authentication Failed", "Invalid username or password")
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		return h.serverError(c, err, "Login failed")
	}

	h.log.Info("Operator logged in", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"user":      accountSummary(user),
		"token":     token,
		"expiresIn": h.tokens.ExpiresIn(),
	})
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return badRequest(c, "Token is required")
	}

	user, err := h.accountFromToken(c, req.Token)
	if err != nil {
		return h.serverError(c, err, "Token refresh failed")
	}
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		return h.serverError(c, err, "Token refresh failed")
	}
	return c.JSON(fiber.Map{
		"message":   "Token refreshed successfully",
		"token":     token,
		"expiresIn": h.tokens.ExpiresIn(),
	})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	raw, found := middleware.BearerToken(c)
	if !found {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized", "Bearer token required")
	}

	user, err := h.accountFromToken(c, raw)
	if err != nil {
		return h.serverError(c, err, "Failed to get user info")
	}
	if user == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":            user.ID,
			"username":      user.Username,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"email":         user.Email,
			"phone":         user.Phone,
			"is_admin":      user.IsAdmin,
			"balance":       user.Balance,
			"referral_code": user.ReferralCode,
			"created_at":    user.CreatedAt,
			"updated_at":    user.UpdatedAt,
		},
	})
}

// accountFromToken verifies raw and loads the active account it names.
// A bad token or a missing account yields nil without an error.
func (h *Handler) accountFromToken(c *fiber.Ctx, raw string) (*models.User, error) {
	claims, err := h.tokens.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return h.accounts.FindActiveByID(c.UserContext(), claims.UserID)
}
