package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one immutable order line. Product name/sku/price are
// snapshotted so later catalog mutations cannot rewrite history.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID       uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	ProductSKU     string     `gorm:"column:product_sku;not null"`
	Qty            int        `gorm:"column:qty;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	SubtotalCents  int64      `gorm:"column:subtotal_cents;not null"`
	TaxCents       int64      `gorm:"column:tax_cents;not null;default:0"`
	TotalCents     int64      `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
