package repository

import (
	"errors"

	"invest-bot/internal/database"
)

var (
	ErrNotFound              = errors.New("record not found")
	ErrDuplicateTelegramID   = errors.New("user with this telegram id already exists")
	ErrDuplicateReferralCode = errors.New("user with this referral code already exists")
	ErrDuplicate             = errors.New("duplicate record")
	ErrReferralCodeExhausted = errors.New("could not generate a unique referral code")
	ErrPackageUnavailable    = errors.New("package is not available")
	ErrInsufficientBalance   = errors.New("insufficient balance")
)

const (
	telegramIDIndex   = "idx_users_telegram_id"
	referralCodeIndex = "idx_users_referral_code"
)

// conflict maps a unique index violation to its sentinel, or returns nil.
func conflict(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case telegramIDIndex:
		return ErrDuplicateTelegramID
	case referralCodeIndex:
		return ErrDuplicateReferralCode
	default:
		return ErrDuplicate
	}
}
