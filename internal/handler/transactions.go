package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"invest-bot/internal/models"
	"invest-bot/internal/repository"
	"invest-bot/internal/validation"
)

var (
	transactionTypes = []string{
		string(models.TransactionInvestment),
		string(models.TransactionClaim),
		string(models.TransactionReferral),
		string(models.TransactionDeposit),
		string(models.TransactionWithdrawal),
	}
	transactionStatuses = []string{
		string(models.StatusPending),
		string(models.StatusCompleted),
		string(models.StatusFailed),
		string(models.StatusCancelled),
	}
)

type createTransactionRequest struct {
	UserID      validation.Int   `json:"user_id" validate:"required,min=1" msg:"User ID must be a positive integer"`
	PackageID   *uint            `json:"package_id" validate:"omitempty,min=1" msg:"Package ID must be a positive integer"`
	Type        string           `json:"type" validate:"required,oneof=investment claim referral deposit withdrawal" msg:"Invalid transaction type"`
	Amount      *decimal.Decimal `json:"amount" validate:"required,gte=0" msg:"Amount must be a positive number"`
	Status      string           `json:"status" validate:"omitempty,oneof=pending completed failed cancelled" msg:"Invalid status"`
	Description string           `json:"description" validate:"required" msg:"Description is required"`
}

type updateTransactionRequest struct {
	Status      string  `json:"status" validate:"required,oneof=pending completed failed cancelled" msg:"Invalid status"`
	Description *string `json:"description" validate:"omitempty,min=1" msg:"Description cannot be empty"`
}

func transactionFilter(q *validation.Query) repository.TransactionFilter {
	return repository.TransactionFilter{
		UserID:    q.Uint("user_id", "User ID must be a positive integer"),
		PackageID: q.Uint("package_id", "Package ID must be a positive integer"),
		Type:      models.TransactionType(q.Enum("type", transactionTypes, "Invalid transaction type")),
		Status:    models.TransactionStatus(q.Enum("status", transactionStatuses, "Invalid status")),
		From:      q.Date("start_date", false, "Start date must be a valid ISO date"),
		To:        q.Date("end_date", true, "End date must be a valid ISO date"),
	}
}

func (h *Handler) ListTransactions(c *fiber.Ctx) error {
	q := validation.NewQuery(c)
	p := paging(q)
	filter := transactionFilter(q)
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}

	txs, page, err := h.transactions.FindAll(c.UserContext(), filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve transactions")
	}
	return paged(c, "Transactions retrieved successfully", txs, page)
}

func (h *Handler) TransactionSummary(c *fiber.Ctx) error {
	summary, err := h.transactions.Summary(c.UserContext(), h.now())
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve transaction statistics")
	}
	return ok(c, "Transaction statistics retrieved successfully", summary)
}

func (h *Handler) UserTransactions(c *fiber.Ctx) error {
	userID, valid := idParam(c, "userId")
	if !valid {
		return invalidID(c, "userId")
	}

	q := validation.NewQuery(c)
	p := paging(q)
	filter := transactionFilter(q)
	if errs := q.Errors(); len(errs) > 0 {
		return invalid(c, errs)
	}
	filter.UserID = &userID

	ctx := c.UserContext()
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user transactions")
	}
	if user == nil {
		return notFound(c, "User not found")
	}

	txs, page, err := h.transactions.FindAll(ctx, filter, p)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve user transactions")
	}
	return paged(c, "User transactions retrieved successfully", txs, page)
}

func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	tx, err := h.transactions.FindByID(c.UserContext(), id)
	if err != nil {
		return h.serverError(c, err, "Failed to retrieve transaction")
	}
	if tx == nil {
		return notFound(c, "Transaction not found")
	}
	return ok(c, "Transaction retrieved successfully", tx)
}

func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	var req createTransactionRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	ctx := c.UserContext()
	userID := uint(req.UserID.Int64())
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return h.serverError(c, err, "Failed to create transaction")
	}
	if user == nil {
		return notFound(c, "User not found")
	}

	if req.PackageID != nil {
		pkg, err := h.packages.FindByID(ctx, *req.PackageID)
		if err != nil {
			return h.serverError(c, err, "Failed to create transaction")
		}
		if pkg == nil {
			return notFound(c, "Package not found")
		}
	}

	tx := &models.Transaction{
		UserID:      userID,
		PackageID:   req.PackageID,
		Type:        models.TransactionType(req.Type),
		Amount:      *req.Amount,
		Status:      models.TransactionStatus(req.Status),
		Description: req.Description,
	}

	err = h.transactions.Create(ctx, tx)
	if errors.Is(err, repository.ErrPackageUnavailable) {
		return badRequest(c, "Package is not available for purchase")
	}
	if err != nil {
		return h.serverError(c, err, "Failed to create transaction")
	}
	return created(c, "Transaction created successfully", tx)
}

func (h *Handler) UpdateTransaction(c *fiber.Ctx) error {
	id, valid := idParam(c, "id")
	if !valid {
		return invalidID(c, "id")
	}

	var req updateTransactionRequest
	if errs := bind(c, &req); len(errs) > 0 {
		return invalid(c, errs)
	}

	fields := map[string]any{"status": req.Status}
	setString(fields, "description", req.Description)

	tx, err := h.transactions.Update(c.UserContext(), id, fields)
	if errors.Is(err, repository.ErrPackageUnavailable) {
		return badRequest(c, "Package is not available for purchase")
	}
	if err != nil {
		return h.serverError(c, err, "Failed to update transaction")
	}
	if tx == nil {
		return notFound(c, "Transaction not found")
	}
	return ok(c, "Transaction updated successfully", tx)
}
