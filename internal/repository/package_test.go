package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var packageColumns = []string{"id", "name", "price", "duration_days", "daily_return_amount", "is_active", "max_purchases", "current_purchases"}

func TestPackageFindAvailableFiltersCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE is_active = \$1 AND .*max_purchases IS NULL OR current_purchases < max_purchases.* ORDER BY price ASC`).
		WillReturnRows(sqlmock.NewRows(packageColumns).
			AddRow(1, "Starter", "100000", 30, "5000", true, nil, 12))

	packages, err := repo.FindAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, "Starter", packages[0].Name)
	assert.Nil(t, packages[0].MaxPurchases)
	assert.True(t, packages[0].IsAvailable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageFindActiveEmptyIsNotNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE is_active = \$1`).
		WillReturnRows(sqlmock.NewRows(packageColumns))

	packages, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, packages)
	assert.Empty(t, packages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageFindAllWithoutActiveFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "packages" WHERE "packages"."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."deleted_at" IS NULL ORDER BY price ASC`).
		WillReturnRows(sqlmock.NewRows(packageColumns).
			AddRow(1, "Starter", "100000", 30, "5000", true, nil, 0).
			AddRow(2, "Gold", "500000", 60, "30000", false, 5, 5))

	packages, page, err := repo.FindAll(context.Background(), PackageFilter{}, Pagination{})
	require.NoError(t, err)
	assert.Len(t, packages, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, packages[1].IsAvailable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageToggle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "is_active"=NOT is_active`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(packageColumns).AddRow(3, "Gold", "500000", 60, "30000", false, nil, 0))

	pkg, err := repo.Toggle(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.False(t, pkg.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageToggleMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "is_active"=NOT is_active`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	pkg, err := repo.Toggle(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, pkg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "deleted_at"`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 9), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageUpdateEmptyRereads(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."id" = \$1 AND "packages"."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows(packageColumns).AddRow(3, "Gold", "500000", 60, "30000", true, 10, 2))

	pkg, err := repo.Update(context.Background(), 3, map[string]any{"id": 9, "created_at": "now"})
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "Gold", pkg.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageUpdateWritesColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "name"=\$1,"updated_at"=\$2 WHERE id = \$3 AND "packages"."deleted_at" IS NULL`).
		WithArgs("Platinum", sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(packageColumns).AddRow(3, "Platinum", "500000", 60, "30000", true, nil, 0))

	pkg, err := repo.Update(context.Background(), 3, map[string]any{"name": "Platinum"})
	require.NoError(t, err)
	assert.Equal(t, "Platinum", pkg.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageUpdateClearsLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "max_purchases"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(nil, sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows(packageColumns).AddRow(3, "Gold", "500000", 60, "30000", true, nil, 4))

	pkg, err := repo.Update(context.Background(), 3, map[string]any{"max_purchases": nil})
	require.NoError(t, err)
	assert.Nil(t, pkg.MaxPurchases)
	assert.True(t, pkg.IsAvailable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackageRestore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)

	mock.ExpectExec(`UPDATE "packages" SET "deleted_at"=\$1,"updated_at"=\$2 WHERE id = \$3 AND deleted_at IS NOT NULL`).
		WithArgs(nil, sqlmock.AnyArg(), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "packages" WHERE "packages"."id" = \$1 AND "packages"."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows(packageColumns).AddRow(3, "Gold", "500000", 60, "30000", true, nil, 0))

	pkg, err := repo.Restore(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, uint(3), pkg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
