package validation

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QueryGetter is satisfied by *fiber.Ctx.
type QueryGetter interface {
	Query(key string, defaultValue ...string) string
}

// Query coerces query string values, collecting a FieldError for each bad one.
// Absent keys yield nil and no error.
type Query struct {
	src  QueryGetter
	errs Errors
}

func NewQuery(src QueryGetter) *Query {
	return &Query{src: src}
}

func (q *Query) Errors() Errors {
	return q.errs
}

func (q *Query) raw(key string) (string, bool) {
	v := strings.TrimSpace(q.src.Query(key))
	return v, v != ""
}

func (q *Query) String(key string) string {
	v, _ := q.raw(key)
	return v
}

// Int parses key as an integer in [min, max]. A max of zero means unbounded.
func (q *Query) Int(key string, min, max int, msg string) *int {
	v, ok := q.raw(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || (max > 0 && n > max) {
		q.errs.Add(key, msg)
		return nil
	}
	return &n
}

func (q *Query) Uint(key, msg string) *uint {
	n := q.Int(key, 1, 0, msg)
	if n == nil {
		return nil
	}
	u := uint(*n)
	return &u
}

func (q *Query) Bool(key, msg string) *bool {
	v, ok := q.raw(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.errs.Add(key, msg)
		return nil
	}
	return &b
}

// Decimal parses a non-negative amount.
func (q *Query) Decimal(key, msg string) *decimal.Decimal {
	v, ok := q.raw(key)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		q.errs.Add(key, msg)
		return nil
	}
	return &d
}

func (q *Query) Enum(key string, allowed []string, msg string) string {
	v, ok := q.raw(key)
	if !ok {
		return ""
	}
	if !slices.Contains(allowed, v) {
		q.errs.Add(key, msg)
		return ""
	}
	return v
}

// Date accepts RFC 3339 or YYYY-MM-DD. With endOfDay set, a bare date
// covers the whole day.
func (q *Query) Date(key string, endOfDay bool, msg string) *time.Time {
	v, ok := q.raw(key)
	if !ok {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		q.errs.Add(key, msg)
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}
