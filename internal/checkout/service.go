package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/internal/address"
	"github.com/luisargote/vendora-backend/internal/carts"
	"github.com/luisargote/vendora-backend/internal/coupons"
	"github.com/luisargote/vendora-backend/internal/orders"
	"github.com/luisargote/vendora-backend/internal/pricing"
	"github.com/luisargote/vendora-backend/internal/products"
	"github.com/luisargote/vendora-backend/internal/settings"
	"github.com/luisargote/vendora-backend/internal/vendors"
	"github.com/luisargote/vendora-backend/pkg/db"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/money"
	"github.com/luisargote/vendora-backend/pkg/outbox"
	"github.com/luisargote/vendora-backend/pkg/outbox/payloads"
)

const orderNumberRetries = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service converts priced carts and buy-now requests into immutable orders
// with one commission-split vendor order per distinct vendor.
type Service interface {
	ProcessCheckout(ctx context.Context, userID, cartID uuid.UUID, input CheckoutInput) (*models.Order, error)
	CreateDirectOrder(ctx context.Context, userID uuid.UUID, input DirectOrderInput) (*models.Order, error)
}

// CheckoutInput carries the non-cart data required to place an order.
type CheckoutInput struct {
	ShippingAddressID *uuid.UUID
	BillingAddressID  *uuid.UUID
}

// DirectOrderInput describes a single-item buy-now purchase that bypasses
// the cart.
type DirectOrderInput struct {
	ProductID         uuid.UUID
	Qty               int
	ShippingAddressID *uuid.UUID
	BillingAddressID  *uuid.UUID
}

type service struct {
	tx          txRunner
	cartRepo    carts.Repository
	couponSvc   coupons.Service
	couponRepo  coupons.Repository
	ordersRepo  orders.Repository
	vendorRepo  vendors.Repository
	productRepo products.Repository
	addressRepo address.Repository
	calculator  *pricing.Calculator
	settings    settings.Provider
	outbox      outboxPublisher
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo carts.Repository,
	couponSvc coupons.Service,
	couponRepo coupons.Repository,
	ordersRepo orders.Repository,
	vendorRepo vendors.Repository,
	productRepo products.Repository,
	addressRepo address.Repository,
	calculator *pricing.Calculator,
	provider settings.Provider,
	publisher outboxPublisher,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if couponRepo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if vendorRepo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if addressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if provider == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		couponSvc:   couponSvc,
		couponRepo:  couponRepo,
		ordersRepo:  ordersRepo,
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
		addressRepo: addressRepo,
		calculator:  calculator,
		settings:    provider,
		outbox:      publisher,
		now:         time.Now,
	}, nil
}

func (s *service) ProcessCheckout(ctx context.Context, userID, cartID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		cart, err := cartRepo.FindByIDForUser(ctx, cartID, userID)
		if err != nil {
			return err
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart already processed")
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}
		if cart.ExpiresAt != nil && s.now().After(*cart.ExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart has expired")
		}

		// Pricing is recomputed here, never read from the cart's cached
		// discount, so stale quotes cannot leak into an order.
		var coupon *models.Coupon
		if cart.CouponCode != nil && *cart.CouponCode != "" {
			subtotal := s.calculator.Subtotal(cart.Items)
			coupon, err = s.couponSvc.Resolve(ctx, *cart.CouponCode, subtotal)
			if err != nil {
				return err
			}
		}

		order, err := s.buildOrder(ctx, tx, userID, cart.Items, coupon, input.ShippingAddressID, input.BillingAddressID)
		if err != nil {
			return err
		}

		if coupon != nil {
			if err := s.couponRepo.WithTx(tx).IncrementUsage(ctx, coupon.Code); err != nil {
				return err
			}
		}

		// Consuming the cart is the last write so a failed checkout leaves
		// it intact for retry, and a concurrent double submit loses here.
		if err := cartRepo.MarkConverted(ctx, cart.ID); err != nil {
			return err
		}

		result, err = s.ordersRepo.WithTx(tx).FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) CreateDirectOrder(ctx context.Context, userID uuid.UUID, input DirectOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.productRepo.WithTx(tx).FindByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if !product.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		items := []models.CartItem{{
			ProductID:      product.ID,
			VendorID:       product.VendorID,
			Qty:            input.Qty,
			UnitPriceCents: product.PriceCents,
		}}

		order, err := s.buildOrder(ctx, tx, userID, items, nil, input.ShippingAddressID, input.BillingAddressID)
		if err != nil {
			return err
		}

		result, err = s.ordersRepo.WithTx(tx).FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildOrder persists the order, its items, and the per-vendor commission
// split inside the caller's transaction.
func (s *service) buildOrder(
	ctx context.Context,
	tx *gorm.DB,
	userID uuid.UUID,
	items []models.CartItem,
	coupon *models.Coupon,
	shippingAddressID, billingAddressID *uuid.UUID,
) (*models.Order, error) {
	ordersRepo := s.ordersRepo.WithTx(tx)
	addressRepo := s.addressRepo.WithTx(tx)

	if shippingAddressID != nil {
		if _, err := addressRepo.FindByIDForUser(ctx, *shippingAddressID, userID); err != nil {
			return nil, err
		}
	}
	if billingAddressID != nil {
		if _, err := addressRepo.FindByIDForUser(ctx, *billingAddressID, userID); err != nil {
			return nil, err
		}
	}

	vendorRates, err := s.resolveVendorRates(ctx, tx, items)
	if err != nil {
		return nil, err
	}
	productNames, err := s.loadProducts(ctx, tx, items)
	if err != nil {
		return nil, err
	}

	quote := s.calculator.QuoteCart(items, coupon)

	orderNumber, err := s.uniqueOrderNumber(ctx, ordersRepo)
	if err != nil {
		return nil, err
	}

	var couponCode *string
	if coupon != nil {
		code := coupon.Code
		couponCode = &code
	}

	order := &models.Order{
		OrderNumber:       orderNumber,
		UserID:            userID,
		SubtotalCents:     quote.SubtotalCents,
		DiscountCents:     quote.DiscountCents,
		TaxCents:          quote.TaxCents,
		ShippingCents:     quote.ShippingCents,
		TotalCents:        quote.TotalCents,
		Currency:          s.settings.Currency(),
		Status:            enums.OrderStatusPending,
		PaymentStatus:     enums.OrderPaymentStatusPending,
		CouponCode:        couponCode,
		ShippingAddressID: shippingAddressID,
		BillingAddressID:  billingAddressID,
	}
	if err := ordersRepo.Create(ctx, order); err != nil {
		// The generator prechecks for collisions, but two checkouts can
		// still race between the check and the insert.
		if db.IsUniqueViolation(err, "orders_order_number_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, retry checkout")
		}
		return nil, err
	}

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product := productNames[item.ProductID]
		subtotal := item.UnitPriceCents * int64(item.Qty)
		tax := money.Percent(subtotal, s.settings.TaxRate())
		productID := item.ProductID
		orderItems = append(orderItems, models.OrderItem{
			OrderID:        order.ID,
			VendorID:       item.VendorID,
			ProductID:      &productID,
			ProductName:    product.Name,
			ProductSKU:     product.SKU,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  subtotal,
			TaxCents:       tax,
			TotalCents:     subtotal + tax,
		})
	}
	if err := ordersRepo.CreateItems(ctx, orderItems); err != nil {
		return nil, err
	}

	vendorOrders := s.splitByVendor(order.ID, orderItems, vendorRates)
	if err := ordersRepo.CreateVendorOrders(ctx, vendorOrders); err != nil {
		return nil, err
	}

	vendorOrderIDs := make([]uuid.UUID, 0, len(vendorOrders))
	for _, vo := range vendorOrders {
		vendorOrderIDs = append(vendorOrderIDs, vo.ID)
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			UserID:         userID,
			TotalCents:     order.TotalCents,
			Currency:       order.Currency,
			VendorOrderIDs: vendorOrderIDs,
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, err
	}

	return order, nil
}

// resolveVendorRates loads every participating vendor, rejects checkout when
// any is not approved, and returns the effective commission rate per vendor.
func (s *service) resolveVendorRates(ctx context.Context, tx *gorm.DB, items []models.CartItem) (map[uuid.UUID]decimal.Decimal, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if !seen[item.VendorID] {
			seen[item.VendorID] = true
			ids = append(ids, item.VendorID)
		}
	}

	rows, err := s.vendorRepo.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	rates := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, vendor := range rows {
		if vendor.Status != enums.VendorStatusApproved {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is not approved for checkout")
		}
		rate := s.settings.DefaultCommissionRate()
		if vendor.CommissionRate != nil {
			rate = *vendor.CommissionRate
		}
		rates[vendor.ID] = rate
	}
	for _, id := range ids {
		if _, ok := rates[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is not approved for checkout")
		}
	}
	return rates, nil
}

func (s *service) loadProducts(ctx context.Context, tx *gorm.DB, items []models.CartItem) (map[uuid.UUID]*models.Product, error) {
	repo := s.productRepo.WithTx(tx)
	cache := map[uuid.UUID]*models.Product{}
	for _, item := range items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be at least 1")
		}
		if _, ok := cache[item.ProductID]; ok {
			continue
		}
		product, err := repo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}
		cache[item.ProductID] = product
	}
	return cache, nil
}

// splitByVendor groups order items by vendor and computes each vendor's
// commission split. The Original* columns receive the same values so refund
// rescaling always has the first-computed split to work from.
func (s *service) splitByVendor(orderID uuid.UUID, items []models.OrderItem, rates map[uuid.UUID]decimal.Decimal) []models.VendorOrder {
	subtotals := map[uuid.UUID]int64{}
	order := make([]uuid.UUID, 0, len(rates))
	for _, item := range items {
		if _, ok := subtotals[item.VendorID]; !ok {
			order = append(order, item.VendorID)
		}
		subtotals[item.VendorID] += item.SubtotalCents
	}

	vendorOrders := make([]models.VendorOrder, 0, len(order))
	for _, vendorID := range order {
		subtotal := subtotals[vendorID]
		rate := rates[vendorID]
		commission := money.Percent(subtotal, rate)
		earnings := subtotal - commission
		vendorOrders = append(vendorOrders, models.VendorOrder{
			OrderID:                 orderID,
			VendorID:                vendorID,
			SubtotalCents:           subtotal,
			CommissionCents:         commission,
			EarningsCents:           earnings,
			OriginalSubtotalCents:   subtotal,
			OriginalCommissionCents: commission,
			OriginalEarningsCents:   earnings,
			CommissionRate:          rate,
			PayoutStatus:            enums.VendorOrderPayoutStatusPending,
			ShippingStatus:          enums.ShippingStatusPending,
		})
	}
	return vendorOrders
}

func (s *service) uniqueOrderNumber(ctx context.Context, repo orders.Repository) (string, error) {
	for i := 0; i < orderNumberRetries; i++ {
		candidate := newOrderNumber(s.now())
		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order number")
}
