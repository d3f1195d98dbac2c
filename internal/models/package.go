package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Package is an investment offer. The daily return is a fixed amount, not a rate.
type Package struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description"`
	Price             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	DurationDays      int             `gorm:"not null" json:"duration_days"`
	DailyReturnAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"daily_return_amount"`
	ImageURL          string          `gorm:"size:512" json:"image_url"`
	IsActive          bool            `gorm:"not null;index" json:"is_active"`
	MaxPurchases      *int            `json:"max_purchases"`
	CurrentPurchases  int             `gorm:"not null" json:"current_purchases"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsAvailable reports whether the package can still be bought.
func (p Package) IsAvailable() bool {
	if !p.IsActive {
		return false
	}
	return p.MaxPurchases == nil || p.CurrentPurchases < *p.MaxPurchases
}

// TotalReturn is the return paid over the whole duration.
func (p Package) TotalReturn() decimal.Decimal {
	return p.DailyReturnAmount.Mul(decimal.NewFromInt(int64(p.DurationDays)))
}

// DailyReturn returns the fixed daily payout for a package held for the given day count.
// Days outside the package duration earn nothing.
func (p Package) DailyReturn(day int) decimal.Decimal {
	if day < 1 || day > p.DurationDays {
		return decimal.Zero
	}
	return p.DailyReturnAmount
}
