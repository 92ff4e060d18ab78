package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// LedgerEvent is an append-only record of money movement. AmountCents is
// signed: negative entries represent refunds and clawbacks.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID    *uuid.UUID            `gorm:"column:vendor_id;type:uuid;index"`
	PaymentID   *uuid.UUID            `gorm:"column:payment_id;type:uuid;index"`
	Type        enums.LedgerEventType `gorm:"column:type;type:ledger_event_type;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
