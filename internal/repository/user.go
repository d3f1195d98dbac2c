package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-bot/internal/models"
)

// maxReferralAttempts bounds regeneration after a referral_code collision.
const maxReferralAttempts = 5

type UserFilter struct {
	Search      string
	IsActive    *bool
	IsAdmin     *bool
	SearchEmail bool
	// ReferredBy keeps users who signed up with this referral code.
	ReferredBy string
}

type UserStats struct {
	TotalUsers    int64           `json:"total_users"`
	ActiveUsers   int64           `json:"active_users"`
	InactiveUsers int64           `json:"inactive_users"`
	AdminUsers    int64           `json:"admin_users"`
	NewToday      int64           `json:"new_today"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindAll(ctx context.Context, filter UserFilter, p Pagination) ([]models.User, Page, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if term := strings.TrimSpace(filter.Search); term != "" {
		like := likePattern(term)
		cond := "first_name ILIKE ? OR last_name ILIKE ? OR username ILIKE ? OR CAST(telegram_id AS TEXT) LIKE ?"
		args := []any{like, like, like, like}
		if filter.SearchEmail {
			cond += " OR email ILIKE ?"
			args = append(args, like)
		}
		query = query.Where("("+cond+")", args...)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsAdmin != nil {
		query = query.Where("is_admin = ?", *filter.IsAdmin)
	}
	if filter.ReferredBy != "" {
		query = query.Where("referred_by = ?", filter.ReferredBy)
	}

	users, page, err := paginate[models.User](query, p, "created_at DESC")
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to find users: %w", err)
	}
	return users, page, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.first(ctx, "telegram_id = ?", telegramID)
}

func (r *UserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.first(ctx, "referral_code = ?", code)
}

// first returns nil without an error when nothing matches.
func (r *UserRepository) first(ctx context.Context, cond string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(cond, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// Create inserts the user. A missing referral code is generated, and
// regenerated when it collides with an existing one.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	generated := user.ReferralCode == ""

	for attempt := 0; attempt < maxReferralAttempts; attempt++ {
		if generated {
			code, err := models.NewReferralCode()
			if err != nil {
				return err
			}
			user.ReferralCode = code
		}

		err := r.db.WithContext(ctx).Create(user).Error
		if err == nil {
			return nil
		}

		dup := conflict(err)
		if errors.Is(dup, ErrDuplicateReferralCode) && generated {
			continue
		}
		if dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return ErrReferralCodeExhausted
}

// Update applies the given columns. An empty set only re-reads the row.
// Returns nil when the row does not exist.
func (r *UserRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	fields = updatable(fields)
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if dup := conflict(res.Error); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("last_activity", at).Error
	if err != nil {
		return fmt.Errorf("failed to touch user activity: %w", err)
	}
	return nil
}

// Delete is a soft delete; the row keeps its unique keys.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore undoes Delete. Restoring a live user is a no-op.
func (r *UserRepository) Restore(ctx context.Context, id uint) (*models.User, error) {
	err := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) Stats(ctx context.Context, now time.Time) (UserStats, error) {
	var stats UserStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE is_active) AS active_users,
			COUNT(*) FILTER (WHERE NOT is_active) AS inactive_users,
			COUNT(*) FILTER (WHERE is_admin) AS admin_users,
			COUNT(*) FILTER (WHERE created_at >= ?) AS new_today,
			COALESCE(SUM(balance), 0) AS total_balance
		FROM users
		WHERE deleted_at IS NULL`, startOfDay(now)).Scan(&stats).Error
	if err != nil {
		return UserStats{}, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

func (r *UserRepository) CountReferred(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("referred_by = ?", code).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count referred users: %w", err)
	}
	return count, nil
}

// updatable copies fields without the server-managed columns and stamps updated_at.
func updatable(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		switch k {
		case "id", "created_at", "updated_at", "deleted_at":
			continue
		}
		out[k] = v
	}
	if len(out) > 0 {
		out["updated_at"] = time.Now()
	}
	return out
}
