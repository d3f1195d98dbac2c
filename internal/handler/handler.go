package handler

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"invest-bot/internal/auth"
	"invest-bot/internal/config"
	"invest-bot/internal/models"
	"invest-bot/internal/repository"
	"invest-bot/internal/storage"
)

type UserStore interface {
	FindAll(ctx context.Context, filter repository.UserFilter, p repository.Pagination) ([]models.User, repository.Page, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) (*models.User, error)
	Delete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) (*models.User, error)
	Stats(ctx context.Context, now time.Time) (repository.UserStats, error)
}

type PackageStore interface {
	FindAll(ctx context.Context, filter repository.PackageFilter, p repository.Pagination) ([]models.Package, repository.Page, error)
	FindActive(ctx context.Context) ([]models.Package, error)
	FindAvailable(ctx context.Context) ([]models.Package, error)
	FindByID(ctx context.Context, id uint) (*models.Package, error)
	Create(ctx context.Context, pkg *models.Package) error
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Package, error)
	Toggle(ctx context.Context, id uint) (*models.Package, error)
	Delete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) (*models.Package, error)
	Stats(ctx context.Context) (repository.PackageStats, error)
}

type TransactionStore interface {
	FindAll(ctx context.Context, filter repository.TransactionFilter, p repository.Pagination) ([]models.Transaction, repository.Page, error)
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	Create(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Transaction, error)
	Summary(ctx context.Context, now time.Time) (repository.TransactionSummary, error)
}

type AdminStore interface {
	DashboardStats(ctx context.Context, now time.Time) (repository.DashboardStats, error)
	RecentActivity(ctx context.Context, since time.Time, limit int) ([]repository.Activity, error)
	Analytics(ctx context.Context, period repository.Period, now time.Time) (repository.Analytics, error)
}

type AccountStore interface {
	FindAdminByUsername(ctx context.Context, username string) (*models.User, error)
	FindActiveByID(ctx context.Context, id uint) (*models.User, error)
}

type Tokens interface {
	Issue(user *models.User) (string, error)
	Parse(raw string) (*auth.Claims, error)
	ExpiresIn() string
}

// Check probes a dependency for /health and the system report.
type Check func(ctx context.Context) error

type Deps struct {
	Users        UserStore
	Packages     PackageStore
	Transactions TransactionStore
	Admin        AdminStore
	Accounts     AccountStore
	Tokens       Tokens
	Storage      storage.Store
	Log          *zap.Logger

	Server config.Server
	Upload config.Upload

	// Optional. Nil checks report "disabled".
	DatabaseCheck Check
	RedisCheck    Check
	DBStats       func() sql.DBStats
	BotEnabled    bool
}

type Handler struct {
	users        UserStore
	packages     PackageStore
	transactions TransactionStore
	admin        AdminStore
	accounts     AccountStore
	tokens       Tokens
	storage      storage.Store
	log          *zap.Logger

	server config.Server
	upload config.Upload

	dbCheck    Check
	redisCheck Check
	dbStats    func() sql.DBStats
	botEnabled bool

	started time.Time
	now     func() time.Time
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		users:        d.Users,
		packages:     d.Packages,
		transactions: d.Transactions,
		admin:        d.Admin,
		accounts:     d.Accounts,
		tokens:       d.Tokens,
		storage:      d.Storage,
		log:          log,
		server:       d.Server,
		upload:       d.Upload,
		dbCheck:      d.DatabaseCheck,
		redisCheck:   d.RedisCheck,
		dbStats:      d.DBStats,
		botEnabled:   d.BotEnabled,
		started:      time.Now(),
		now:          time.Now,
	}
}
