package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
)

type fakeSettings struct {
	taxRate        decimal.Decimal
	shippingCents  int64
	commissionRate decimal.Decimal
	autoPayouts    bool
}

func (f *fakeSettings) TaxRate() decimal.Decimal               { return f.taxRate }
func (f *fakeSettings) FlatShippingCents() int64               { return f.shippingCents }
func (f *fakeSettings) DefaultCommissionRate() decimal.Decimal { return f.commissionRate }
func (f *fakeSettings) AutomaticPayoutsEnabled() bool          { return f.autoPayouts }
func (f *fakeSettings) Currency() string                       { return "USD" }

func newTestCalculator(t *testing.T, taxRate string, shippingCents int64) *Calculator {
	t.Helper()
	calc, err := NewCalculator(&fakeSettings{
		taxRate:       decimal.RequireFromString(taxRate),
		shippingCents: shippingCents,
	})
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func item(priceCents int64, qty int) models.CartItem {
	return models.CartItem{UnitPriceCents: priceCents, Qty: qty}
}

func TestSubtotal(t *testing.T) {
	calc := newTestCalculator(t, "0", 0)

	if got := calc.Subtotal(nil); got != 0 {
		t.Fatalf("empty cart subtotal = %d, want 0", got)
	}

	items := []models.CartItem{item(2500, 2), item(999, 3)}
	if got := calc.Subtotal(items); got != 7997 {
		t.Fatalf("subtotal = %d, want 7997", got)
	}
}

func TestDiscountFixedCappedAtSubtotal(t *testing.T) {
	calc := newTestCalculator(t, "0", 0)
	coupon := &models.Coupon{
		Type:  enums.CouponTypeFixed,
		Value: decimal.RequireFromString("100"),
	}

	// Fixed coupon of 100 against subtotal 30 caps at the subtotal.
	if got := calc.Discount(3000, coupon); got != 3000 {
		t.Fatalf("discount = %d, want 3000", got)
	}
	if got := calc.Discount(20000, coupon); got != 10000 {
		t.Fatalf("discount = %d, want 10000", got)
	}
}

func TestDiscountPercentageHonorsMaxCap(t *testing.T) {
	calc := newTestCalculator(t, "0", 0)
	maxCents := int64(10000)
	coupon := &models.Coupon{
		Type:             enums.CouponTypePercentage,
		Value:            decimal.RequireFromString("50"),
		MaxDiscountCents: &maxCents,
	}

	// 50% of 500.00 is 250.00, cap binds at 100.00.
	if got := calc.Discount(50000, coupon); got != 10000 {
		t.Fatalf("discount = %d, want 10000", got)
	}

	// Cap does not bind below the threshold.
	if got := calc.Discount(10000, coupon); got != 5000 {
		t.Fatalf("discount = %d, want 5000", got)
	}
}

func TestDiscountNilCoupon(t *testing.T) {
	calc := newTestCalculator(t, "0", 0)
	if got := calc.Discount(5000, nil); got != 0 {
		t.Fatalf("discount = %d, want 0", got)
	}
}

func TestDiscountRoundsHalfAwayFromZero(t *testing.T) {
	calc := newTestCalculator(t, "0", 0)
	coupon := &models.Coupon{
		Type:  enums.CouponTypePercentage,
		Value: decimal.RequireFromString("15"),
	}

	// 15% of 1.01 = 0.1515, rounds to 0.15; 15% of 1.03 = 0.1545, rounds to 0.15;
	// 15% of 1.10 = 0.1650, rounds up to 0.17.
	if got := calc.Discount(101, coupon); got != 15 {
		t.Fatalf("discount = %d, want 15", got)
	}
	if got := calc.Discount(110, coupon); got != 17 {
		t.Fatalf("discount = %d, want 17", got)
	}
}

func TestTaxComputedOnPostDiscountSubtotal(t *testing.T) {
	calc := newTestCalculator(t, "8.25", 0)

	if got := calc.Tax(10000); got != 825 {
		t.Fatalf("tax = %d, want 825", got)
	}
	if got := calc.Tax(0); got != 0 {
		t.Fatalf("tax on zero = %d, want 0", got)
	}
	if got := calc.Tax(-500); got != 0 {
		t.Fatalf("tax on negative = %d, want 0", got)
	}
}

func TestQuoteCartIdentity(t *testing.T) {
	calc := newTestCalculator(t, "10", 500)
	maxCents := int64(2000)
	coupon := &models.Coupon{
		Type:             enums.CouponTypePercentage,
		Value:            decimal.RequireFromString("25"),
		MaxDiscountCents: &maxCents,
	}
	items := []models.CartItem{item(4000, 2), item(1500, 4)}

	quote := calc.QuoteCart(items, coupon)
	if quote.SubtotalCents != 14000 {
		t.Fatalf("subtotal = %d, want 14000", quote.SubtotalCents)
	}
	if quote.DiscountCents != 2000 {
		t.Fatalf("discount = %d, want 2000", quote.DiscountCents)
	}
	// Tax is 10% of (14000 - 2000).
	if quote.TaxCents != 1200 {
		t.Fatalf("tax = %d, want 1200", quote.TaxCents)
	}
	if quote.ShippingCents != 500 {
		t.Fatalf("shipping = %d, want 500", quote.ShippingCents)
	}

	want := quote.SubtotalCents - quote.DiscountCents + quote.TaxCents + quote.ShippingCents
	if quote.TotalCents != want {
		t.Fatalf("total = %d, want %d", quote.TotalCents, want)
	}
	if quote.DiscountCents > quote.SubtotalCents {
		t.Fatalf("discount %d exceeds subtotal %d", quote.DiscountCents, quote.SubtotalCents)
	}
}

func TestQuoteEmptyCart(t *testing.T) {
	calc := newTestCalculator(t, "10", 500)
	quote := calc.QuoteCart(nil, nil)
	if quote.TotalCents != 0 || quote.ShippingCents != 0 {
		t.Fatalf("empty cart should price to zero, got %+v", quote)
	}
}
