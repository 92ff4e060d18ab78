package coupons

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

func setupCouponsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  value TEXT NOT NULL,
  max_discount_cents INTEGER,
  min_purchase_cents INTEGER,
  usage_limit INTEGER,
  used_count INTEGER NOT NULL DEFAULT 0,
  starts_at DATETIME,
  expires_at DATETIME,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	return db
}

func createCoupon(t *testing.T, db *gorm.DB, code string, usageLimit *int) *models.Coupon {
	t.Helper()

	coupon := &models.Coupon{
		ID:         uuid.New(),
		Code:       code,
		Type:       enums.CouponTypePercentage,
		Value:      decimal.NewFromInt(10),
		UsageLimit: usageLimit,
		Active:     true,
	}
	require.NoError(t, db.Create(coupon).Error)
	return coupon
}

func TestRepositoryIncrementUsage_respectsLimit(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	limit := 2
	createCoupon(t, db, "LIMIT2", &limit)

	require.NoError(t, repo.IncrementUsage(context.Background(), "LIMIT2"))
	require.NoError(t, repo.IncrementUsage(context.Background(), "limit2"))

	// Third redemption must lose on the guard, not overshoot the limit.
	err := repo.IncrementUsage(context.Background(), "LIMIT2")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	stored, err := repo.FindByCode(context.Background(), "LIMIT2")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UsedCount)
}

func TestRepositoryIncrementUsage_unlimited(t *testing.T) {
	db := setupCouponsTestDB(t)
	repo := NewRepository(db)

	createCoupon(t, db, "OPEN", nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementUsage(context.Background(), "OPEN"))
	}

	stored, err := repo.FindByCode(context.Background(), "OPEN")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.UsedCount)
}
