package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// Payment tracks one charge attempt against an order. RefundedCents is
// cumulative and monotonically non-decreasing, capped at AmountCents.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Method          enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'card'"`
	TransactionID   *string             `gorm:"column:transaction_id;index"`
	AmountCents     int64               `gorm:"column:amount_cents;not null"`
	Currency        string              `gorm:"column:currency;not null;default:'USD'"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaymentDate     *time.Time          `gorm:"column:payment_date"`
	RefundDate      *time.Time          `gorm:"column:refund_date"`
	RefundedCents   int64               `gorm:"column:refunded_cents;not null;default:0"`
	GatewayResponse json.RawMessage     `gorm:"column:gateway_response;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingRefundableCents returns how much of the payment can still be refunded.
func (p Payment) RemainingRefundableCents() int64 {
	remaining := p.AmountCents - p.RefundedCents
	if remaining < 0 {
		return 0
	}
	return remaining
}
