package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-bot/internal/models"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Window returns the half-open interval [start, end) the period covers, ending at now.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	switch p {
	case PeriodToday:
		return startOfDay(now), now
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now
	case PeriodYear:
		return now.AddDate(-1, 0, 0), now
	default:
		return now.AddDate(0, 0, -30), now
	}
}

type DashboardStats struct {
	Users        UserStats          `json:"users"`
	Packages     PackageStats       `json:"packages"`
	Transactions TransactionSummary `json:"transactions"`
}

type Activity struct {
	Type        string           `json:"type"`
	ID          uint             `json:"id"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Analytics struct {
	Period           Period           `json:"period"`
	From             time.Time        `json:"from"`
	To               time.Time        `json:"to"`
	UserGrowth       UserGrowth       `json:"user_growth"`
	InvestmentTrends InvestmentTrends `json:"investment_trends"`
	RevenueAnalysis  RevenueAnalysis  `json:"revenue_analysis"`
	TopPackages      []TopPackage     `json:"top_packages"`
	UserEngagement   UserEngagement   `json:"user_engagement"`
}

type UserGrowth struct {
	Total            int64   `json:"total"`
	NewUsers         int64   `json:"new_users"`
	GrowthPercentage float64 `json:"growth_percentage"`
}

type InvestmentTrends struct {
	TotalInvested     decimal.Decimal `json:"total_invested"`
	Investments       int64           `json:"investments"`
	AverageInvestment decimal.Decimal `json:"average_investment"`
	GrowthPercentage  float64         `json:"growth_percentage"`
}

type RevenueAnalysis struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalClaimed  decimal.Decimal `json:"total_claimed"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type TopPackage struct {
	ID      uint            `json:"id"`
	Name    string          `json:"name"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type UserEngagement struct {
	ActiveUsers    int64   `json:"active_users"`
	EngagementRate float64 `json:"engagement_rate"`
}

// AdminRepository serves the dashboard reports. It reads through the same
// pool as the entity repositories.
type AdminRepository struct {
	db           *gorm.DB
	users        *UserRepository
	packages     *PackageRepository
	transactions *TransactionRepository
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{
		db:           db,
		users:        NewUserRepository(db),
		packages:     NewPackageRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

func (r *AdminRepository) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	users, err := r.users.Stats(ctx, now)
	if err != nil {
		return DashboardStats{}, err
	}
	packages, err := r.packages.Stats(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	txs, err := r.transactions.Summary(ctx, now)
	if err != nil {
		return DashboardStats{}, err
	}
	return DashboardStats{Users: users, Packages: packages, Transactions: txs}, nil
}

// RecentActivity merges new users and transactions since the given time, newest first.
func (r *AdminRepository) RecentActivity(ctx context.Context, since time.Time, limit int) ([]Activity, error) {
	if limit < 1 {
		limit = DefaultLimit
	}

	var users []models.User
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent users: %w", err)
	}

	var txs []models.Transaction
	err = r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}

	activities := make([]Activity, 0, len(users)+len(txs))
	for _, u := range users {
		activities = append(activities, Activity{
			Type:        "user_registered",
			ID:          u.ID,
			Description: "New user: " + u.FullName(),
			CreatedAt:   u.CreatedAt,
		})
	}
	for _, tx := range txs {
		amount := tx.Amount
		activities = append(activities, Activity{
			Type:        "transaction",
			ID:          tx.ID,
			Description: fmt.Sprintf("%s transaction by user #%d (%s)", tx.Type, tx.UserID, tx.Status),
			Amount:      &amount,
			CreatedAt:   tx.CreatedAt,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}

func (r *AdminRepository) Analytics(ctx context.Context, period Period, now time.Time) (Analytics, error) {
	from, to := period.Window(now)
	prevFrom := from.Add(-to.Sub(from))
	db := r.db.WithContext(ctx)

	out := Analytics{Period: period, From: from, To: to}

	var users struct {
		Total         int64
		CurrentCount  int64
		PreviousCount int64
		Engaged       int64
	}
	err := db.Raw(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE created_at >= ? AND created_at < ?) AS current_count,
			COUNT(*) FILTER (WHERE created_at >= ? AND created_at < ?) AS previous_count,
			COUNT(*) FILTER (WHERE last_activity >= ?) AS engaged
		FROM users
		WHERE deleted_at IS NULL`,
		from, to, prevFrom, from, from,
	).Scan(&users).Error
	if err != nil {
		return Analytics{}, fmt.Errorf("failed to get user analytics: %w", err)
	}

	var money struct {
		Invested     decimal.Decimal
		Investments  int64
		PrevInvested decimal.Decimal
		Claimed      decimal.Decimal
	}
	completed := models.StatusCompleted
	err = db.Raw(`
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND created_at >= ? AND created_at < ?), 0) AS invested,
			COUNT(*) FILTER (WHERE type = ? AND created_at >= ? AND created_at < ?) AS investments,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND created_at >= ? AND created_at < ?), 0) AS prev_invested,
			COALESCE(SUM(amount) FILTER (WHERE type = ? AND created_at >= ? AND created_at < ?), 0) AS claimed
		FROM transactions
		WHERE status = ?`,
		models.TransactionInvestment, from, to,
		models.TransactionInvestment, from, to,
		models.TransactionInvestment, prevFrom, from,
		models.TransactionClaim, from, to,
		completed,
	).Scan(&money).Error
	if err != nil {
		return Analytics{}, fmt.Errorf("failed to get investment analytics: %w", err)
	}

	top := make([]TopPackage, 0)
	err = db.Raw(`
		SELECT p.id, p.name, COUNT(t.id) AS sales, COALESCE(SUM(t.amount), 0) AS revenue
		FROM transactions t
		JOIN packages p ON p.id = t.package_id
		WHERE t.type = ? AND t.status = ? AND t.created_at >= ? AND t.created_at < ?
		GROUP BY p.id, p.name
		ORDER BY revenue DESC, sales DESC
		LIMIT 5`,
		models.TransactionInvestment, completed, from, to,
	).Scan(&top).Error
	if err != nil {
		return Analytics{}, fmt.Errorf("failed to get top packages: %w", err)
	}

	out.UserGrowth = UserGrowth{
		Total:            users.Total,
		NewUsers:         users.CurrentCount,
		GrowthPercentage: growth(decimal.NewFromInt(users.CurrentCount), decimal.NewFromInt(users.PreviousCount)),
	}

	average := decimal.Zero
	if money.Investments > 0 {
		average = money.Invested.Div(decimal.NewFromInt(money.Investments)).Round(2)
	}
	out.InvestmentTrends = InvestmentTrends{
		TotalInvested:     money.Invested,
		Investments:       money.Investments,
		AverageInvestment: average,
		GrowthPercentage:  growth(money.Invested, money.PrevInvested),
	}
	out.RevenueAnalysis = RevenueAnalysis{
		TotalInvested: money.Invested,
		TotalClaimed:  money.Claimed,
		TotalRevenue:  money.Invested.Sub(money.Claimed),
	}
	out.TopPackages = top
	out.UserEngagement = UserEngagement{
		ActiveUsers:    users.Engaged,
		EngagementRate: percent(users.Engaged, users.Total),
	}
	return out, nil
}

// growth is the change from previous to current in percent, one decimal.
// Growth from zero counts as 100% when anything happened.
func growth(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	pct := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	return pct.Round(1).InexactFloat64()
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
