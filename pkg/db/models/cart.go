package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// Cart is the mutable pre-checkout container. It is consumed (marked
// converted) as the final step of a successful checkout so a double submit
// cannot produce two orders.
type Cart struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        *uuid.UUID       `gorm:"column:user_id;type:uuid;index"`
	SessionToken  *string          `gorm:"column:session_token;index"`
	Status        enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	CouponCode    *string          `gorm:"column:coupon_code"`
	DiscountCents int64            `gorm:"column:discount_cents;not null;default:0"`
	ExpiresAt     *time.Time       `gorm:"column:expires_at"`
	ConvertedAt   *time.Time       `gorm:"column:converted_at"`
	Items         []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
