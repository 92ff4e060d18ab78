package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// VendorOrder is the commission-split sub-ledger of an order for one
// vendor. The Original* columns hold the first-computed split; refund
// rescaling always recomputes from those, never from the already-reduced
// values, so successive partial refunds cannot drift.
type VendorOrder struct {
	ID                      uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                 uuid.UUID                     `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID                uuid.UUID                     `gorm:"column:vendor_id;type:uuid;not null;index"`
	SubtotalCents           int64                         `gorm:"column:subtotal_cents;not null"`
	CommissionCents         int64                         `gorm:"column:commission_cents;not null"`
	EarningsCents           int64                         `gorm:"column:earnings_cents;not null"`
	OriginalSubtotalCents   int64                         `gorm:"column:original_subtotal_cents;not null"`
	OriginalCommissionCents int64                         `gorm:"column:original_commission_cents;not null"`
	OriginalEarningsCents   int64                         `gorm:"column:original_earnings_cents;not null"`
	CommissionRate          decimal.Decimal               `gorm:"column:commission_rate;type:numeric(5,2);not null"`
	PayoutStatus            enums.VendorOrderPayoutStatus `gorm:"column:payout_status;type:vendor_order_payout_status;not null;default:'pending'"`
	ShippingStatus          enums.ShippingStatus          `gorm:"column:shipping_status;type:shipping_status;not null;default:'pending'"`
	TrackingCarrier         *string                       `gorm:"column:tracking_carrier"`
	TrackingNumber          *string                       `gorm:"column:tracking_number"`
	ShippedAt               *time.Time                    `gorm:"column:shipped_at"`
	DeliveredAt             *time.Time                    `gorm:"column:delivered_at"`
	CreatedAt               time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}
