package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invest-bot/internal/models"
)

const availableCond = "(max_purchases IS NULL OR current_purchases < max_purchases)"

type PackageFilter struct {
	Search      string
	IsActive    *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	MinDuration *int
	MaxDuration *int
}

type PackageStats struct {
	TotalPackages     int64 `json:"total_packages"`
	ActivePackages    int64 `json:"active_packages"`
	AvailablePackages int64 `json:"available_packages"`
}

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) FindAll(ctx context.Context, filter PackageFilter, p Pagination) ([]models.Package, Page, error) {
	query := r.db.WithContext(ctx).Model(&models.Package{})

	if term := strings.TrimSpace(filter.Search); term != "" {
		like := likePattern(term)
		query = query.Where("(name ILIKE ? OR description ILIKE ?)", like, like)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.MinDuration != nil {
		query = query.Where("duration_days >= ?", *filter.MinDuration)
	}
	if filter.MaxDuration != nil {
		query = query.Where("duration_days <= ?", *filter.MaxDuration)
	}

	packages, page, err := paginate[models.Package](query, p, "price ASC")
	if err != nil {
		return nil, Page{}, fmt.Errorf("failed to find packages: %w", err)
	}
	return packages, page, nil
}

func (r *PackageRepository) FindActive(ctx context.Context) ([]models.Package, error) {
	packages := make([]models.Package, 0)
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("price ASC").Find(&packages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active packages: %w", err)
	}
	return packages, nil
}

// FindAvailable returns active packages that still have purchase capacity.
func (r *PackageRepository) FindAvailable(ctx context.Context) ([]models.Package, error) {
	packages := make([]models.Package, 0)
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where(availableCond).
		Order("price ASC").
		Find(&packages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find available packages: %w", err)
	}
	return packages, nil
}

func (r *PackageRepository) FindByID(ctx context.Context, id uint) (*models.Package, error) {
	var pkg models.Package
	err := r.db.WithContext(ctx).First(&pkg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find package: %w", err)
	}
	return &pkg, nil
}

func (r *PackageRepository) Create(ctx context.Context, pkg *models.Package) error {
	if err := r.db.WithContext(ctx).Create(pkg).Error; err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}
	return nil
}

// Update applies the given columns. An empty set only re-reads the row.
func (r *PackageRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Package, error) {
	fields = updatable(fields)
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}

	res := r.db.WithContext(ctx).Model(&models.Package{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update package: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// Toggle flips is_active in one statement.
func (r *PackageRepository) Toggle(ctx context.Context, id uint) (*models.Package, error) {
	return r.Update(ctx, id, map[string]any{"is_active": gorm.Expr("NOT is_active")})
}

func (r *PackageRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Package{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete package: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PackageRepository) Restore(ctx context.Context, id uint) (*models.Package, error) {
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Package{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now()}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to restore package: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *PackageRepository) Stats(ctx context.Context) (PackageStats, error) {
	var stats PackageStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_packages,
			COUNT(*) FILTER (WHERE is_active) AS active_packages,
			COUNT(*) FILTER (WHERE is_active AND ` + availableCond + `) AS available_packages
		FROM packages
		WHERE deleted_at IS NULL`).Scan(&stats).Error
	if err != nil {
		return PackageStats{}, fmt.Errorf("failed to get package stats: %w", err)
	}
	return stats, nil
}
