package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

// Repository manages vendor payout persistence plus the earnings queries
// the engine settles from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, payout *models.VendorPayout) error
	FindByID(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error)
	FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error)
	ListByVendorID(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error)
	Update(ctx context.Context, payout *models.VendorPayout) error

	// PendingVendorOrders returns the vendor's unpaid vendor orders whose
	// parent order has actually been paid, oldest first.
	PendingVendorOrders(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	err := r.db.WithContext(ctx).
		Where("id = ?", payoutID).
		First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	var payout models.VendorPayout
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", payoutID).
		First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByVendorID(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, payout *models.VendorPayout) error {
	return r.db.WithContext(ctx).Save(payout).Error
}

func (r *repository) PendingVendorOrders(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrder, error) {
	var rows []models.VendorOrder
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = vendor_orders.order_id").
		Where("vendor_orders.vendor_id = ?", vendorID).
		Where("vendor_orders.payout_status = ?", enums.VendorOrderPayoutStatusPending).
		Where("orders.payment_status = ?", enums.OrderPaymentStatusPaid).
		Order("vendor_orders.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
