package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/pkg/enums"
)

// VendorPayout is a disbursement of accumulated vendor earnings. Method is
// snapshotted from the vendor at creation so later profile edits do not
// reroute an in-flight payout.
type VendorPayout struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID       uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	AmountCents    int64              `gorm:"column:amount_cents;not null"`
	Method         string             `gorm:"column:method;not null"`
	Status         enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	Provider       *string            `gorm:"column:provider"`
	TransactionRef *string            `gorm:"column:transaction_ref"`
	FailureReason  *string            `gorm:"column:failure_reason"`
	ProcessedAt    *time.Time         `gorm:"column:processed_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
