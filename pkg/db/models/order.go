package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// Order is the buyer-facing settlement record produced by checkout.
// Monetary columns are written once at creation; refunds only move
// PaymentStatus, never the original totals.
type Order struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       string                   `gorm:"column:order_number;not null;unique"`
	UserID            uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	SubtotalCents     int64                    `gorm:"column:subtotal_cents;not null"`
	DiscountCents     int64                    `gorm:"column:discount_cents;not null;default:0"`
	TaxCents          int64                    `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents     int64                    `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents        int64                    `gorm:"column:total_cents;not null"`
	Currency          string                   `gorm:"column:currency;not null;default:'USD'"`
	Status            enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus     enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`
	CouponCode        *string                  `gorm:"column:coupon_code"`
	ShippingAddressID *uuid.UUID               `gorm:"column:shipping_address_id;type:uuid"`
	BillingAddressID  *uuid.UUID               `gorm:"column:billing_address_id;type:uuid"`
	Items             []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	VendorOrders      []VendorOrder            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments          []Payment                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
