package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"invest-bot/internal/models"
	"invest-bot/internal/repository"
	"invest-bot/internal/validation"
)

type createPackageRequest struct {
	Name              string           `json:"name" validate:"required,max=255" msg:"Package name is required"`
	Description       string           `json:"description"`
	Price             *decimal.Decimal `json:"price" validate:"required,gte=0" msg:"Price must be a positive number"`
	DurationDays      int              `json:"duration_days" validate:"required,min=1" msg:"Duration must be at least 1 day"`
	DailyReturnAmount *decimal.Decimal `json:"daily_return_amount" validate:"required,gte=0" msg:"Daily return amount must be a positive number"`
	ImageURL          string           `json:"image_url" validate:"omitempty,imageref" msg:"Image URL must be a valid URL"`
	IsActive          *bool            `json:"is_active" msg:"Is active must be a boolean"`
	MaxPurchases      *int             `json:"max_purchases" validate:"omitempty,min=1" msg:"Max purchases must be a positive integer"`
	Unlimited         *bool            `json:"unlimited" msg:"Unlimited must be a boolean"`
}

type updatePackageRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=255" msg:"Package name cannot be empty"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price" validate:"omitempty,gte=0" msg:"Price must be a positive number"`
	DurationDays      *int             `json:"duration_days" validate:"omitempty,min=1" msg:"Duration must be at least 1 day"`
	DailyReturnAmount *decimal.Decimal `json:"daily_return_amount" validate:"omitempty,gte=0" msg:"Daily return amount must be a positive number"`
	ImageURL          *string          `json:"image_url" validate:"omitempty,imageref" msg:"Image URL must be a valid URL"`
	IsActive          *bool            `json:"is_active" msg:"Is active must be a boolean"`
	MaxPurchases      *int             `json:"max_purchases" validate:"omitempty,min=1" msg:"Max purchases must be a positive integer"`
}

func (r updatePackageRequest) fields() map[string]any {
	out := make(map[string]any)
	setString(out, "name", r.Name)
	setString(out, "description", r.Description)
	setString(out, "image_url", r.ImageURL)
	setDecimal(out, "price", r.Price)
	setDecimal(out, "daily_return_amount", r.DailyReturnAmount)
	setInt(out, "duration_days", r.DurationDays)
	setInt(out, "max_purchases", r.MaxPurchases)
	setBool(out, "is_active", r.IsActive)
	// unlimited wins over max_purchases and stores NULL.
	if r.Unlimited != nil && *r.Unlimited {
		out["max_purchases"] = nil
	}
	return out
}

func packageFilter(q *validation.Query) repository.PackageFilter {
	return repository.PackageFilter{
		Search:      q.String("search"),
		IsActive:    q.Bool("is_active", "Is active must be a boolean"),
		MinPrice:    q.Decimal("min_price", "Min price must be a positive number"),
		MaxPrice:    q.Decimal("max_price", "Max price must be a positive number"),
		MinDuration: q.Int("min_duration", 1, 0, "Min duration must be at least 1 day"),
		MaxDuration: q.Int("max_duration", 1, 0, "Max duration must be at least 1 day"),
	}
}

func (h *Handler) ListPackages(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	p := paging(q)
	filter := packageFilter(q)
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}

	packages, page, err := h.packages.FindAll(c.UserContext(), filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve packages")
	}
	return paged(c, "Packages retrieved successfully", packages, page)
}

func (h *Handler) ActivePackages(c *fiber.Ctx) error {
	packages, err := h.packages.FindActive(c.UserContext())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve active packages")
	}
	return ok(c, "Active packages retrieved successfully", packages)
}

func (h *Handler) AvailablePackages(c *fiber.Ctx) error {
	packages, err := h.packages.FindAvailable(c.UserContext())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve available packages")
	}
	return ok(c, "Available packages retrieved successfully", packages)
}

func (h *Handler) PackageStats(c *fiber.Ctx) error {
	stats, err := h.packages.Stats(c.UserContext())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve package statistics")
	}
	return ok(c, "Package statistics retrieved successfully", stats)
}

func (h *Handler) GetPackage(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	pkg, err := h.packages.FindByID(c.UserContext(), id)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve package")
	}
	if pkg == nil {
		return notFound(c, "Package not found")
	}
	return ok(c, "Package retrieved successfully", pkg)
}

func (h *Handler) CreatePackage(c *fiber.Ctx) error {
	var req createPackageRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	pkg := &models.Package{
		Name:              req.Name,
		Description:       req.Description,
		Price:             *req.Price,
		DurationDays:      req.DurationDays,
		DailyReturnAmount: *req.DailyReturnAmount,
		ImageURL:          req.ImageURL,
		IsActive:          req.IsActive == nil || *req.IsActive,
		MaxPurchases:      req.MaxPurchases,
	}

	if err := h.packages.Create(c.UserContext(), pkg); err != nil {
		return h.serverError(c, err, "Failed to create package")
	}
	return created(c, "Package created successfully", pkg)
}

func (h *Handler) UpdatePackage(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	var req updatePackageRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	pkg, err := h.packages.Update(c.UserContext(), id, req.fields())
	if err != nil {
		return h.serverError(c, err, "Failed to update package")
	}
	if pkg == nil {
		return notFound(c, "Package not found")
	}
	return ok(c, "Package updated successfully", pkg)
}

func (h *Handler) TogglePackage(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	pkg, err := h.packages.Toggle(c.UserContext(), id)
	if err != nil {
		return h.serverError(c, err, "Failed to toggle package status")
	}
	if pkg == nil {
		return notFound(c, "Package not found")
	}

	message := "Package deactivated successfully"
	if pkg.IsActive {
		message = "Package activated successfully"
	}
	return ok(c, message, fiber.Map{"id": pkg.ID, "is_active": pkg.IsActive})
}

func (h *Handler) DeletePackage(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	err := h.packages.Delete(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(c, "Package not found")
	}
	if err != nil {
		return h.serverError(c, err, "Failed to delete package")
	}
	return ok(c, "Package deleted successfully", fiber.Map{"id": id, "deleted": true})
}

func (h *Handler) RestorePackage(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	pkg, err := h.packages.Restore(c.UserContext(), id)
	if err != nil {
		return h.serverError(c, err, "Failed to restore package")
	}
	if pkg == nil {
		return notFound(c, "Package not found")
	}
	return ok(c, "Package restored successfully", pkg)
}
