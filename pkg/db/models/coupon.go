package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// Coupon holds a discount rule. Value is a currency amount for fixed
// coupons and a percentage for percentage coupons. Rows referenced by an
// order are never edited, keeping historical pricing reproducible.
type Coupon struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string           `gorm:"column:code;not null;unique"`
	Type             enums.CouponType `gorm:"column:type;type:coupon_type;not null"`
	Value            decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MaxDiscountCents *int64           `gorm:"column:max_discount_cents"`
	MinPurchaseCents *int64           `gorm:"column:min_purchase_cents"`
	UsageLimit       *int             `gorm:"column:usage_limit"`
	UsedCount        int              `gorm:"column:used_count;not null;default:0"`
	StartsAt         *time.Time       `gorm:"column:starts_at"`
	ExpiresAt        *time.Time       `gorm:"column:expires_at"`
	Active           bool             `gorm:"column:active;not null;default:true"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
