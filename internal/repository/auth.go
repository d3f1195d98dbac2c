package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"invest-bot/internal/models"
)

// AuthRepository looks up operator accounts for the dashboard login.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) FindAdminByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ? AND is_admin = ? AND is_active = ?", username, true, true)
}

func (r *AuthRepository) FindActiveByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ? AND is_active = ?", id, true)
}

func (r *AuthRepository) first(ctx context.Context, cond string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(cond, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &user, nil
}
