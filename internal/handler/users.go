package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"invest-bot/internal/auth"
	"invest-bot/internal/models"
	"invest-bot/internal/repository"
	"invest-bot/internal/validation"
)

type createUserRequest struct {
	TelegramID    validation.Int   `json:"telegram_id" validate:"required,min=1" msg:"Telegram ID must be a positive integer"`
	Username      string           `json:"username" validate:"max=255"`
	FirstName     string           `json:"first_name" validate:"required,max=255" msg:"First name is required"`
	LastName      string           `json:"last_name" validate:"max=255"`
	Phone         string           `json:"phone" validate:"required,max=50" msg:"Phone is required"`
	Email         string           `json:"email" validate:"required,email" msg:"Email is required and must be valid"`
	Balance       *decimal.Decimal `json:"balance" validate:"omitempty,gte=0" msg:"Balance must be a positive number"`
	TotalProfit   *decimal.Decimal `json:"total_profit" validate:"omitempty,gte=0" msg:"Total profit must be a positive number"`
	ReferralCode  string           `json:"referral_code" validate:"omitempty,max=20" msg:"Referral code must be at most 20 characters"`
	ReferredBy    string           `json:"referred_by" validate:"omitempty,max=20" msg:"Referred by must be a string"`
	ReferralBonus *decimal.Decimal `json:"referral_bonus" validate:"omitempty,gte=0" msg:"Referral bonus must be a positive number"`
	IsActive      *bool            `json:"is_active" msg:"Is active must be a boolean"`
}

type updateUserRequest struct {
	Username      *string          `json:"username" validate:"omitempty,max=255"`
	FirstName     *string          `json:"first_name" validate:"omitempty,min=1,max=255" msg:"First name cannot be empty"`
	LastName      *string          `json:"last_name" validate:"omitempty,max=255"`
	Phone         *string          `json:"phone" validate:"omitempty,max=50"`
	Email         *string          `json:"email" validate:"omitempty,email" msg:"Invalid email format"`
	Balance       *decimal.Decimal `json:"balance" validate:"omitempty,gte=0" msg:"Balance must be a positive number"`
	TotalProfit   *decimal.Decimal `json:"total_profit" validate:"omitempty,gte=0" msg:"Total profit must be a positive number"`
	ReferredBy    *string          `json:"referred_by" validate:"omitempty,max=20" msg:"Referred by must be a string"`
	ReferralBonus *decimal.Decimal `json:"referral_bonus" validate:"omitempty,gte=0" msg:"Referral bonus must be a positive number"`
	IsActive      *bool            `json:"is_active" msg:"Is active must be a boolean"`
	IsAdmin       *bool            `json:"is_admin" msg:"Is admin must be a boolean"`
	Password      *string          `json:"password" validate:"omitempty,min=6" msg:"Password must be at least 6 characters"`
}

// fields lists only the columns present in the request.
func (r updateUserRequest) fields() (map[string]any, error) {
	out := make(map[string]any)
	setString(out, "username", r.Username)
	setString(out, "first_name", r.FirstName)
	setString(out, "last_name", r.LastName)
	setString(out, "phone", r.Phone)
	setString(out, "email", r.Email)
	setString(out, "referred_by", r.ReferredBy)
	setDecimal(out, "balance", r.Balance)
	setDecimal(out, "total_profit", r.TotalProfit)
	setDecimal(out, "referral_bonus", r.ReferralBonus)
	setBool(out, "is_active", r.IsActive)
	setBool(out, "is_admin", r.IsAdmin)

	if r.Password != nil {
		hash, err := auth.HashPassword(*r.Password)
		if err != nil {
			return nil, err
		}
		out["password_hash"] = hash
	}
	return out, nil
}

func userFilter(q *validation.Query) repository.UserFilter {
	return repository.UserFilter{
		Search:   q.String("search"),
		IsActive: q.Bool("is_active", "Is active must be a boolean"),
	}
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	p := paging(q)
	filter := userFilter(q)
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}

	users, page, err := h.users.FindAll(c.UserContext(), filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve users")
	}
	return paged(c, "Users retrieved successfully", users, page)
}

func (h *Handler) UserStats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext(), h.now())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user statistics")
	}
	return ok(c, "User statistics retrieved successfully", stats)
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	user, err := h.users.FindByID(c.UserContext(), id)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user")
	}
	if user == nil {
		return notFound(c, "User not found")
	}
	return ok(c, "User retrieved successfully", user)
}

func (h *Handler) GetUserByTelegramID(c *fiber.Ctx) error {
	telegramID, err := strconv.ParseInt(c.Params("telegramId"), 10, 64)
	if err != nil || telegramID < 1 {
		return invalid(c, validation.Errors{{Field: "telegramId", Message: "Telegram ID must be a positive integer"}})
	}

	user, err := h.users.FindByTelegramID(c.UserContext(), telegramID)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user")
	}
	if user == nil {
		return notFound(c, "User not found")
	}
	return ok(c, "User retrieved successfully", user)
}

func (h *Handler) GetUserByReferralCode(c *fiber.Ctx) error {
	user, err := h.users.FindByReferralCode(c.UserContext(), c.Params("referralCode"))
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user")
	}
	if user == nil {
		return notFound(c, "User not found")
	}
	return ok(c, "User retrieved successfully", user)
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	ctx := c.UserContext()
	existing, err := h.users.FindByTelegramID(ctx, req.TelegramID.Int64())
	if err != nil {
		return h.serverError(c, err, "Failed to create user")
	}
	if existing != nil {
		return badRequest(c, "User with this Telegram ID already exists")
	}

	telegramID := req.TelegramID.Int64()
	user := &models.User{
		TelegramID:    &telegramID,
		Username:      req.Username,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Email:         req.Email,
		Balance:       orZero(req.Balance),
		TotalProfit:   orZero(req.TotalProfit),
		ReferralCode:  req.ReferralCode,
		ReferredBy:    req.ReferredBy,
		ReferralBonus: orZero(req.ReferralBonus),
		IsActive:      req.IsActive == nil || *req.IsActive,
	}

	if err := h.users.Create(ctx, user); err != nil {
		if handled, resp := duplicate(c, err); handled {
			return resp
		}
		return h.serverError(c, err, "Failed to create user")
	}
	return created(c, "User created successfully", user)
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	var req updateUserRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	ctx := c.UserContext()
	existing, err := h.users.FindByID(ctx, id)
	if err != nil {
		return h.serverError(c, err, "Failed to update user")
	}
	if existing == nil {
		return notFound(c, "User not found")
	}

	fields, err := req.fields()
	if err != nil {
		return h.serverError(c, err, "Failed to update user")
	}

	user, err := h.users.Update(ctx, id, fields)
	if err != nil {
		if handled, resp := duplicate(c, err); handled {
			return resp
		}
		return h.serverError(c, err, "Failed to update user")
	}
	if user == nil {
		return notFound(c, "User not found")
	}
	return ok(c, "User updated successfully", user)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	err := h.users.Delete(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "User not found")
	}
	if err != nil {
		return h.serverError(c, err, "Failed to delete user")
	}
	return ok(c, "User deleted successfully", fiber.Map{"id": id, "deleted": true})
}

func (h *Handler) RestoreUser(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	user, err := h.users.Restore(c.UserContext(), id)
	if err != nil {
		if handled, resp := duplicate(c, err); handled {
			return resp
		}
		return h.serverError(c, err, "Failed to restore user")
	}
	if user == nil {
		return notFound(c, "User not found")
	}
	return ok(c, "User restored successfully", user)
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func setString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func setDecimal(m map[string]any, key string, v *decimal.Decimal) {
	if v != nil {
		m[key] = *v
	}
}

func setBool(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}

func setInt(m map[string]any, key string, v *int) {
	if v != nil {
		m[key] = *v
	}
}
