package orders

import (
	"context"
	"testing"
	"time"

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

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  coupon_code TEXT,
  shipping_address_id TEXT,
  billing_address_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_id TEXT,
  product_name TEXT NOT NULL,
  product_sku TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	vendorOrders := `
CREATE TABLE IF NOT EXISTS vendor_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  commission_cents INTEGER NOT NULL,
  earnings_cents INTEGER NOT NULL,
  original_subtotal_cents INTEGER NOT NULL,
  original_commission_cents INTEGER NOT NULL,
  original_earnings_cents INTEGER NOT NULL,
  commission_rate TEXT NOT NULL,
  payout_status TEXT NOT NULL DEFAULT 'pending',
  shipping_status TEXT NOT NULL DEFAULT 'pending',
  tracking_carrier TEXT,
  tracking_number TEXT,
  shipped_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  method TEXT NOT NULL DEFAULT 'card',
  transaction_id TEXT,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_date DATETIME,
  refund_date DATETIME,
  refunded_cents INTEGER NOT NULL DEFAULT 0,
  gateway_response TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(vendorOrders).Error)
	require.NoError(t, db.Exec(payments).Error)
	return db
}

// createOrder seeds one order with a single line and vendor split.
// IDs are generated client-side because sqlite has no gen_random_uuid().
func createOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, number string, created time.Time) *models.Order {
	t.Helper()

	vendorID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        userID,
		SubtotalCents: 10000,
		TaxCents:      800,
		ShippingCents: 500,
		TotalCents:    11300,
		Currency:      "USD",
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.OrderPaymentStatusPending,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		VendorID:       vendorID,
		ProductName:    "Test Product",
		ProductSKU:     "SKU-1",
		Qty:            2,
		UnitPriceCents: 5000,
		SubtotalCents:  10000,
		TaxCents:       800,
		TotalCents:     10800,
		CreatedAt:      created,
	}
	require.NoError(t, db.Create(item).Error)

	vo := &models.VendorOrder{
		ID:                      uuid.New(),
		OrderID:                 order.ID,
		VendorID:                vendorID,
		SubtotalCents:           10000,
		CommissionCents:         2000,
		EarningsCents:           8000,
		OriginalSubtotalCents:   10000,
		OriginalCommissionCents: 2000,
		OriginalEarningsCents:   8000,
		CommissionRate:          decimal.NewFromFloat(20.00),
		PayoutStatus:            enums.VendorOrderPayoutStatusPending,
		ShippingStatus:          enums.ShippingStatusPending,
		CreatedAt:               created,
		UpdatedAt:               created,
	}
	require.NoError(t, db.Create(vo).Error)
	return order
}

func TestRepositoryFindByIDForUser(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	order := createOrder(t, db, userID, "ORD-1001", time.Now().UTC())

	found, err := repo.FindByIDForUser(context.Background(), order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, int64(11300), found.TotalCents)
	require.Len(t, found.Items, 1)
	require.Len(t, found.VendorOrders, 1)
	assert.Equal(t, int64(8000), found.VendorOrders[0].EarningsCents)
}

func TestRepositoryFindByIDForUser_notOwned(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, uuid.New(), "ORD-1002", time.Now().UTC())

	// A stranger's lookup and a missing order must be indistinguishable.
	_, err := repo.FindByIDForUser(context.Background(), order.ID, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = repo.FindByIDForUser(context.Background(), uuid.New(), order.UserID)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRepositoryListByUser_newestFirst(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	now := time.Now().UTC()
	older := createOrder(t, db, userID, "ORD-2001", now.Add(-time.Hour))
	newer := createOrder(t, db, userID, "ORD-2002", now)
	createOrder(t, db, uuid.New(), "ORD-2003", now)

	list, err := repo.ListByUser(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	page, err := repo.ListByUser(context.Background(), userID, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)
}

func TestRepositoryOrderNumberExists(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	createOrder(t, db, uuid.New(), "ORD-3001", time.Now().UTC())

	exists, err := repo.OrderNumberExists(context.Background(), "ORD-3001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.OrderNumberExists(context.Background(), "ORD-9999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryUpdatePaymentStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	order := createOrder(t, db, userID, "ORD-4001", time.Now().UTC())

	require.NoError(t, repo.UpdatePaymentStatus(context.Background(), order.ID, enums.OrderPaymentStatusPaid))
	require.NoError(t, repo.UpdateStatus(context.Background(), order.ID, enums.OrderStatusProcessing))

	found, err := repo.FindByIDForUser(context.Background(), order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderPaymentStatusPaid, found.PaymentStatus)
	assert.Equal(t, enums.OrderStatusProcessing, found.Status)
}

func TestRepositoryUpdateVendorOrderSplit(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, uuid.New(), "ORD-5001", time.Now().UTC())

	vendorOrders, err := repo.VendorOrdersByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, vendorOrders, 1)

	voID := vendorOrders[0].ID
	require.NoError(t, repo.UpdateVendorOrderSplit(context.Background(), voID, 5000, 1000, 4000))
	require.NoError(t, repo.UpdateVendorOrderPayoutStatus(context.Background(), voID, enums.VendorOrderPayoutStatusPaid))

	updated, err := repo.VendorOrdersByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, int64(5000), updated[0].SubtotalCents)
	assert.Equal(t, int64(1000), updated[0].CommissionCents)
	assert.Equal(t, int64(4000), updated[0].EarningsCents)
	assert.Equal(t, int64(10000), updated[0].OriginalSubtotalCents)
	assert.Equal(t, enums.VendorOrderPayoutStatusPaid, updated[0].PayoutStatus)
}
