package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a bot member or a dashboard operator. Operator accounts created by
// the admin bootstrap have no Telegram ID.
type User struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TelegramID    *int64          `gorm:"uniqueIndex:idx_users_telegram_id" json:"telegram_id"`
	Username      string          `gorm:"size:255;index" json:"username"`
	FirstName     string          `gorm:"size:255;not null" json:"first_name"`
	LastName      string          `gorm:"size:255" json:"last_name"`
	Phone         string          `gorm:"size:50" json:"phone"`
	Email         string          `gorm:"size:255" json:"email"`
	Balance       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	TotalProfit   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_profit"`
	ReferralCode  string          `gorm:"size:20;uniqueIndex:idx_users_referral_code" json:"referral_code"`
	ReferredBy    string          `gorm:"size:20;index" json:"referred_by"`
	ReferralBonus decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"referral_bonus"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	IsAdmin       bool            `gorm:"not null" json:"is_admin"`
	PasswordHash  string          `gorm:"size:255" json:"-"`
	LastActivity  *time.Time      `json:"last_activity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// FullName joins first and last name, skipping an empty last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
