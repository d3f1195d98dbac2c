package handler

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"invest-bot/internal/auth"
	"invest-bot/internal/models"
	"invest-bot/internal/repository"
)

type fakeUsers struct {
	mu     sync.Mutex
	rows   map[uint]*models.User
	nextID uint
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{rows: make(map[uint]*models.User)}
}

func (f *fakeUsers) add(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.rows[u.ID] = &u
	return &u
}

func (f *fakeUsers) FindAll(_ context.Context, filter repository.UserFilter, p repository.Pagination) ([]models.User, repository.Page, error) {
	if f.err != nil {
		return nil, repository.Page{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.User, 0)
	for _, u := range f.rows {
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.IsAdmin != nil && u.IsAdmin != *filter.IsAdmin {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, repository.NewPage(p, int64(len(out))), nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.TelegramID != nil && *u.TelegramID == telegramID })
}

func (f *fakeUsers) FindByReferralCode(_ context.Context, code string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ReferralCode == code })
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.TelegramID != nil && user.TelegramID != nil && *u.TelegramID == *user.TelegramID {
			return repository.ErrDuplicateTelegramID
		}
		if user.ReferralCode != "" && u.ReferralCode == user.ReferralCode {
			return repository.ErrDuplicateReferralCode
		}
	}
	if user.ReferralCode == "" {
		code, err := models.NewReferralCode()
		if err != nil {
			return err
		}
		user.ReferralCode = code
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.rows[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(_ context.Context, id uint, fields map[string]any) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	for k, v := range fields {
		switch k {
		case "first_name":
			u.FirstName = v.(string)
		case "email":
			u.Email = v.(string)
		case "is_active":
			u.IsActive = v.(bool)
		case "is_admin":
			u.IsAdmin = v.(bool)
		case "password_hash":
			u.PasswordHash = v.(string)
		case "balance":
			u.Balance = v.(decimal.Decimal)
		}
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeUsers) Restore(ctx context.Context, id uint) (*models.User, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeUsers) Stats(context.Context, time.Time) (repository.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.UserStats{TotalUsers: int64(len(f.rows))}, f.err
}

type fakePackages struct {
	mu     sync.Mutex
	rows   map[uint]*models.Package
	nextID uint
}

func newFakePackages() *fakePackages {
	return &fakePackages{rows: make(map[uint]*models.Package)}
}

func (f *fakePackages) add(p models.Package) *models.Package {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.rows[p.ID] = &p
	return &p
}

func (f *fakePackages) list(keep func(*models.Package) bool) []models.Package {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Package, 0)
	for _, p := range f.rows {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out
}

func (f *fakePackages) FindAll(_ context.Context, filter repository.PackageFilter, p repository.Pagination) ([]models.Package, repository.Page, error) {
	out := f.list(func(pkg *models.Package) bool {
		return filter.IsActive == nil || pkg.IsActive == *filter.IsActive
	})
	return out, repository.NewPage(p, int64(len(out))), nil
}

func (f *fakePackages) FindActive(context.Context) ([]models.Package, error) {
	return f.list(func(p *models.Package) bool { return p.IsActive }), nil
}

func (f *fakePackages) FindAvailable(context.Context) ([]models.Package, error) {
	return f.list(func(p *models.Package) bool { return p.IsAvailable() }), nil
}

func (f *fakePackages) FindByID(_ context.Context, id uint) (*models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePackages) Create(_ context.Context, pkg *models.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	pkg.ID = f.nextID
	cp := *pkg
	f.rows[pkg.ID] = &cp
	return nil
}

func (f *fakePackages) Update(_ context.Context, id uint, fields map[string]any) (*models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name = v.(string)
		case "is_active":
			p.IsActive = v.(bool)
		case "price":
			p.Price = v.(decimal.Decimal)
		case "max_purchases":
			if v == nil {
				p.MaxPurchases = nil
				continue
			}
			n := v.(int)
			p.MaxPurchases = &n
		}
	}
	cp := *p
	return &cp, nil
}

func (f *fakePackages) Toggle(ctx context.Context, id uint) (*models.Package, error) {
	p, err := f.FindByID(ctx, id)
	if p == nil || err != nil {
		return nil, err
	}
	return f.Update(ctx, id, map[string]any{"is_active": !p.IsActive})
}

func (f *fakePackages) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePackages) Restore(ctx context.Context, id uint) (*models.Package, error) {
	return f.FindByID(ctx, id)
}

func (f *fakePackages) Stats(context.Context) (repository.PackageStats, error) {
	all := f.list(func(*models.Package) bool { return true })
	stats := repository.PackageStats{TotalPackages: int64(len(all))}
	for _, p := range all {
		if p.IsActive {
			stats.ActivePackages++
		}
		if p.IsAvailable() {
			stats.AvailablePackages++
		}
	}
	return stats, nil
}

type fakeTransactions struct {
	mu        sync.Mutex
	rows      map[uint]*models.Transaction
	nextID    uint
	createErr error
	updateErr error
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{rows: make(map[uint]*models.Transaction)}
}

func (f *fakeTransactions) FindAll(_ context.Context, filter repository.TransactionFilter, p repository.Pagination) ([]models.Transaction, repository.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Transaction, 0)
	for _, tx := range f.rows {
		if filter.UserID != nil && tx.UserID != *filter.UserID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, repository.NewPage(p, int64(len(out))), nil
}

func (f *fakeTransactions) FindByID(_ context.Context, id uint) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.rows[id]; ok {
		cp := *tx
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeTransactions) Create(_ context.Context, tx *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	f.nextID++
	tx.ID = f.nextID
	cp := *tx
	f.rows[tx.ID] = &cp
	return nil
}

func (f *fakeTransactions) Update(_ context.Context, id uint, fields map[string]any) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	tx, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	if s, ok := fields["status"].(string); ok {
		tx.Status = models.TransactionStatus(s)
	}
	if d, ok := fields["description"].(string); ok {
		tx.Description = d
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTransactions) Summary(context.Context, time.Time) (repository.TransactionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return repository.TransactionSummary{TotalTransactions: int64(len(f.rows))}, nil
}

type fakeAdmin struct {
	activities []repository.Activity
	period     repository.Period
}

func (f *fakeAdmin) DashboardStats(context.Context, time.Time) (repository.DashboardStats, error) {
	return repository.DashboardStats{Users: repository.UserStats{TotalUsers: 3}}, nil
}

func (f *fakeAdmin) RecentActivity(_ context.Context, _ time.Time, limit int) ([]repository.Activity, error) {
	if len(f.activities) > limit {
		return f.activities[:limit], nil
	}
	return f.activities, nil
}

func (f *fakeAdmin) Analytics(_ context.Context, period repository.Period, _ time.Time) (repository.Analytics, error) {
	f.period = period
	return repository.Analytics{Period: period}, nil
}

// fakeAccounts serves operator lookups from the user fake.
type fakeAccounts struct {
	users *fakeUsers
}

func (f fakeAccounts) FindAdminByUsername(_ context.Context, username string) (*models.User, error) {
	return f.users.find(func(u *models.User) bool {
		return u.Username == username && u.IsAdmin && u.IsActive
	})
}

func (f fakeAccounts) FindActiveByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := f.users.FindByID(ctx, id)
	if u == nil || err != nil || !u.IsActive {
		return nil, err
	}
	return u, nil
}

type savedObject struct {
	name        string
	contentType string
	body        []byte
}

type fakeStore struct {
	saved []savedObject
}

func (f *fakeStore) Save(_ context.Context, name, contentType string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, savedObject{name: name, contentType: contentType, body: data})
	return "/uploads/" + name, nil
}

var _ Tokens = (*auth.TokenManager)(nil)
