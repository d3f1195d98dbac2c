package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invest-bot/internal/models"
)

type TransactionFilter struct {
	UserID    *uint
	PackageID *uint
	Type      models.TransactionType
	Status    models.TransactionStatus
	From      *time.Time
	To        *time.Time
}

type TransactionSummary struct {
	TotalTransactions     int64           `json:"total_transactions"`
	TotalInvestments      decimal.Decimal `json:"total_investments"`
	TotalClaims           decimal.Decimal `json:"total_claims"`
	TotalReferrals        decimal.Decimal `json:"total_referrals"`
	TotalDeposits         decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals      decimal.Decimal `json:"total_withdrawals"`
	PendingTransactions   int64           `json:"pending_transactions"`
	CompletedTransactions int64           `json:"completed_transactions"`
	FailedTransactions    int64           `json:"failed_transactions"`
	CancelledTransactions int64           `json:"cancelled_transactions"`
	TodayTransactions     int64           `json:"today_transactions"`
	ThisWeekTransactions  int64           `json:"this_week_transactions"`
	ThisMonthTransactions int64           `json:"this_month_transactions"`
}

// Ledger aggregates a user's completed transactions.
type Ledger struct {
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalClaimed      decimal.Decimal `json:"total_claimed"`
	TotalReferral     decimal.Decimal `json:"total_referral"`
	ActiveInvestments int64           `json:"active_investments"`
	DailyReturn       decimal.Decimal `json:"daily_return"`
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) FindAll(ctx context.Context, filter TransactionFilter, p Pagination) ([]models.Transaction, Page, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.PackageID != nil {
		query = query.Where("package_id = ?", *filter.PackageID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	txs, page, err := paginate[models.Transaction](query, p, "created_at DESC")
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to find transactions: %w", err)
	}
	return txs, page, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).First(&tx, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

// Create records a transaction with status pending unless set. A live
// investment in a package also takes one purchase slot; when none is left
// nothing is written and ErrPackageUnavailable is returned.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}

	if !reservesSlot(tx) {
		if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := reserveSlot(db, *tx.PackageID); err != nil {
			return err
		}
		if err := db.Create(tx).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		return nil
	})
}

// Purchase buys one slot of a package with the user's balance. The balance
// debit, the slot and the completed investment row are written together or
// not at all.
func (r *TransactionRepository) Purchase(ctx context.Context, userID, packageID uint) (*models.Transaction, error) {
	var bought *models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var pkg models.Package
		err := db.First(&pkg, packageID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPackageUnavailable
		}
		if err != nil {
			return fmt.Errorf("failed to find package: %w", err)
		}

		res := db.Model(&models.User{}).
			Where("id = ? AND is_active = ? AND balance >= ?", userID, true, pkg.Price).
			UpdateColumn("balance", gorm.Expr("balance - ?", pkg.Price))
		if res.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		if err := reserveSlot(db, pkg.ID); err != nil {
			return err
		}

		tx := &models.Transaction{
			UserID:      userID,
			PackageID:   &pkg.ID,
			Type:        models.TransactionInvestment,
			Amount:      pkg.Price,
			Status:      models.StatusCompleted,
			Description: "Pembelian paket " + pkg.Name,
		}
		if err := db.Create(tx).Error; err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}
		bought = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bought, nil
}

func reservesSlot(tx *models.Transaction) bool {
	if tx.Type != models.TransactionInvestment || tx.PackageID == nil {
		return false
	}
	return tx.Status == models.StatusPending || tx.Status == models.StatusCompleted
}

// reserveSlot takes one purchase slot while the package is active and not
// sold out.
func reserveSlot(db *gorm.DB, packageID uint) error {
	res := db.Model(&models.Package{}).
		Where("id = ? AND is_active = ?", packageID, true).
		Where(availableCond).
		UpdateColumn("current_purchases", gorm.Expr("current_purchases + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve package: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPackageUnavailable
	}
	return nil
}

// releaseSlot gives a slot back, also for a package deleted since.
func releaseSlot(db *gorm.DB, packageID uint) error {
	err := db.Unscoped().Model(&models.Package{}).
		Where("id = ? AND current_purchases > 0", packageID).
		UpdateColumn("current_purchases", gorm.Expr("current_purchases - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to release package: %w", err)
	}
	return nil
}

// Update applies the given columns under a row lock. A status change that
// moves an investment in or out of pending/completed releases or re-takes its
// package slot; re-taking fails with ErrPackageUnavailable when none is left.
// Returns nil when the row does not exist.
func (r *TransactionRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Transaction, error) {
	fields = updatable(fields)
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}

	var updated *models.Transaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var current models.Transaction
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find transaction: %w", err)
		}

		next := current
		if status, ok := statusField(fields); ok {
			next.Status = status
		}
		switch held, holds := reservesSlot(&current), reservesSlot(&next); {
		case held && !holds:
			err = releaseSlot(db, *current.PackageID)
		case !held && holds:
			err = reserveSlot(db, *next.PackageID)
		}
		if err != nil {
			return err
		}

		if err := db.Model(&models.Transaction{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		var tx models.Transaction
		if err := db.First(&tx, id).Error; err != nil {
			return fmt.Errorf("failed to find transaction: %w", err)
		}
		updated = &tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func statusField(fields map[string]any) (models.TransactionStatus, bool) {
	switch v := fields["status"].(type) {
	case models.TransactionStatus:
		return v, true
	case string:
		return models.TransactionStatus(v), true
	}
	return "", false
}

func (r *TransactionRepository) Summary(ctx context.Context, now time.Time) (TransactionSummary, error) {
	var s TransactionSummary
	completed := models.StatusCompleted
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_transactions,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND status = ?), 0) AS total_investments,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND status = ?), 0) AS total_claims,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND status = ?), 0) AS total_referrals,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND status = ?), 0) AS total_deposits,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND status = ?), 0) AS total_withdrawals,
			COUNT(*) FILTER (WHERE status = ?) AS pending_transactions,
			COUNT(*) FILTER (WHERE status = ?) AS completed_transactions,
			COUNT(*) FILTER (WHERE status = ?) AS failed_transactions,
			COUNT(*) FILTER (WHERE status = ?) AS cancelled_transactions,
			COUNT(*) FILTER (WHERE created_at >= ?) AS today_transactions,
			COUNT(*) FILTER (WHERE created_at >= ?) AS this_week_transactions,
			COUNT(*) FILTER (WHERE created_at >= ?) AS this_month_transactions
		FROM transactions`,
		models.TransactionInvestment, completed,
		models.TransactionClaim, completed,
		models.TransactionReferral, completed,
		models.TransactionDeposit, completed,
		models.TransactionWithdrawal, completed,
		models.StatusPending, models.StatusCompleted, models.StatusFailed, models.StatusCancelled,
		startOfDay(now), startOfWeek(now), startOfMonth(now),
	).Scan(&s).Error
	if err != nil {
		return TransactionSummary{}, fmt.Errorf("failed to get transaction summary: %w", err)
	}
	return s, nil
}

// Ledger reads a user's totals. An investment counts as active until its
// package duration has elapsed since the transaction was recorded.
func (r *TransactionRepository) Ledger(ctx context.Context, userID uint, now time.Time) (Ledger, error) {
	var l Ledger
	completed := models.StatusCompleted

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = ?), 0) AS total_invested,
			COALESCE(SUM(amount) FILTER (WHERE type = ?), 0) AS total_claimed,
			COALESCE(SUM(amount) FILTER (WHERE type = ?), 0) AS total_referral
		FROM transactions
		WHERE user_id = ? AND status = ?`,
		models.TransactionInvestment, models.TransactionClaim, models.TransactionReferral,
		userID, completed,
	).Scan(&l).Error
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to get ledger totals: %w", err)
	}

	var active struct {
		ActiveInvestments int64
		DailyReturn       decimal.Decimal
	}
	err = r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS active_investments,
			COALESCE(SUM(p.daily_return_amount), 0) AS daily_return
		FROM transactions t
		JOIN packages p ON p.id = t.package_id
		WHERE t.user_id = ? AND t.type = ? AND t.status = ?
			AND t.created_at + make_interval(days => p.duration_days) > ?`,
		userID, models.TransactionInvestment, completed, now,
	).Scan(&active).Error
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to get active investments: %w", err)
	}

	l.ActiveInvestments = active.ActiveInvestments
	l.DailyReturn = active.DailyReturn
	return l, nil
}
