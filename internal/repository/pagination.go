package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) normalized() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.normalized()
	return (p.Page - 1) * p.Limit
}

type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewPage(p Pagination, total int64) Page {
	p = p.normalized()
	return Page{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: int((total + int64(p.Limit) - 1) / int64(p.Limit)),
	}
}

// paginate counts the filtered query, then loads one ordered page of it.
// Pages past the end return an empty slice without a second round trip.
func paginate[T any](query *gorm.DB, p Pagination, order string) ([]T, Page, error) {
	query = query.Session(&gorm.Session{})
	p = p.normalized()

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Page{}, fmt.Errorf("failed to count rows: %w", err)
	}

	page := NewPage(p, total)
	items := make([]T, 0)
	if int64(p.Offset()) >= total {
		return items, page, nil
	}

	if err := query.Order(order).Limit(p.Limit).Offset(p.Offset()).Find(&items).Error; err != nil {
		return nil, Page{}, fmt.Errorf("failed to load rows: %w", err)
	}
	return items, page, nil
}

func likePattern(term string) string {
	return "%" + term + "%"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of the week containing t.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
