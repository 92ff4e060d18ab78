package pricing

import (
	"fmt"

	"github.com/luisargote/vendora-backend/internal/settings"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	"github.com/luisargote/vendora-backend/pkg/money"
)

// Quote is the priced breakdown of a cart. All values are cents.
type Quote struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TaxCents      int64 `json:"tax_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Calculator derives cart totals. Methods are pure over their inputs so the
// same math serves both display estimates and order creation; checkout calls
// Quote again at order time rather than trusting a cached value.
type Calculator struct {
	settings settings.Provider
}

// NewCalculator builds a calculator backed by the store settings provider.
func NewCalculator(provider settings.Provider) (*Calculator, error) {
	if provider == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &Calculator{settings: provider}, nil
}

// Subtotal sums unit price times quantity across the items. Empty carts
// price to zero.
func (c *Calculator) Subtotal(items []models.CartItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPriceCents * int64(item.Qty)
	}
	return subtotal
}

// Discount computes the coupon reduction against a subtotal. Fixed coupons
// are capped at the subtotal; percentage coupons honor the optional
// max-discount cap. A nil coupon discounts nothing.
func (c *Calculator) Discount(subtotalCents int64, coupon *models.Coupon) int64 {
	if coupon == nil || subtotalCents <= 0 {
		return 0
	}
	switch coupon.Type {
	case enums.CouponTypeFixed:
		return money.Min(money.FromDecimal(coupon.Value), subtotalCents)
	case enums.CouponTypePercentage:
		discount := money.Percent(subtotalCents, coupon.Value)
		if coupon.MaxDiscountCents != nil {
			discount = money.Min(discount, *coupon.MaxDiscountCents)
		}
		return money.Min(discount, subtotalCents)
	default:
		return 0
	}
}

// Tax applies the configured rate to the post-discount subtotal.
func (c *Calculator) Tax(subtotalAfterDiscountCents int64) int64 {
	if subtotalAfterDiscountCents <= 0 {
		return 0
	}
	return money.Percent(subtotalAfterDiscountCents, c.settings.TaxRate())
}

// Shipping returns the flat store-wide shipping cost. Per-vendor shipping
// rules would hook in here.
func (c *Calculator) Shipping(items []models.CartItem) int64 {
	if len(items) == 0 {
		return 0
	}
	return c.settings.FlatShippingCents()
}

// Total evaluates subtotal, discount, tax, and shipping in order so tax is
// always computed on the post-discount subtotal.
func (c *Calculator) Total(items []models.CartItem, coupon *models.Coupon) int64 {
	return c.QuoteCart(items, coupon).TotalCents
}

// QuoteCart prices the full cart in one pass.
func (c *Calculator) QuoteCart(items []models.CartItem, coupon *models.Coupon) Quote {
	subtotal := c.Subtotal(items)
	discount := c.Discount(subtotal, coupon)
	tax := c.Tax(subtotal - discount)
	shipping := c.Shipping(items)
	return Quote{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		ShippingCents: shipping,
		TotalCents:    subtotal - discount + tax + shipping,
	}
}
