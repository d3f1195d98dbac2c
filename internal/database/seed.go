package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"invest-bot/internal/models"
)

// EnsureAdmin creates the operator account, or promotes and re-keys the
// existing account with the same username.
func EnsureAdmin(ctx context.Context, db *gorm.DB, username, passwordHash string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		code, err := models.NewReferralCode()
		if err != nil {
			return nil, err
		}
		now := time.Now()
		user = models.User{
			Username:     username,
			FirstName:    username,
			IsActive:     true,
			IsAdmin:      true,
			PasswordHash: passwordHash,
			ReferralCode: code,
			LastActivity: &now,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create admin: %w", err)
		}
		return &user, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	if err := db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"is_admin":      true,
		"is_active":     true,
		"password_hash": passwordHash,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}
	user.IsAdmin, user.IsActive, user.PasswordHash = true, true, passwordHash
	return &user, nil
}
