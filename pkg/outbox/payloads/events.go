package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout that produced an order split across vendors.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	UserID         uuid.UUID   `json:"user_id"`
	TotalCents     int64       `json:"total_cents"`
	Currency       string      `json:"currency"`
	VendorOrderIDs []uuid.UUID `json:"vendor_order_ids"`
}

// PaymentCompletedEvent is emitted when a payment reaches the completed state.
type PaymentCompletedEvent struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	AmountCents   int64     `json:"amount_cents"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// PaymentFailedEvent is emitted when a payment attempt fails.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Reason    string    `json:"reason,omitempty"`
}

// PaymentRefundedEvent reports a partial or full refund against a payment.
type PaymentRefundedEvent struct {
	PaymentID           uuid.UUID           `json:"payment_id"`
	OrderID             uuid.UUID           `json:"order_id"`
	RefundCents         int64               `json:"refund_cents"`
	TotalRefundedCents  int64               `json:"total_refunded_cents"`
	Status              enums.PaymentStatus `json:"status"`
	RefundedAt          time.Time           `json:"refunded_at"`
}

// PayoutCreatedEvent is emitted when vendor earnings are swept into a payout.
type PayoutCreatedEvent struct {
	PayoutID    uuid.UUID `json:"payout_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
}

// PayoutSettledEvent reports a payout reaching a terminal state.
type PayoutSettledEvent struct {
	PayoutID       uuid.UUID          `json:"payout_id"`
	VendorID       uuid.UUID          `json:"vendor_id"`
	Status         enums.PayoutStatus `json:"status"`
	TransactionRef string             `json:"transaction_ref,omitempty"`
	ProcessedAt    time.Time          `json:"processed_at"`
}
