package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// Vendor is a selling party on the marketplace. CommissionRate is nil when
// the vendor uses the store-wide default rate.
type Vendor struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName   string             `gorm:"column:business_name;not null"`
	Slug           string             `gorm:"column:slug;not null;uniqueIndex"`
	CommissionRate *decimal.Decimal   `gorm:"column:commission_rate;type:numeric(5,2)"`
	PayoutMethod   string             `gorm:"column:payout_method;not null;default:'bank_transfer'"`
	Status         enums.VendorStatus `gorm:"column:status;type:vendor_status;not null;default:'pending'"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
