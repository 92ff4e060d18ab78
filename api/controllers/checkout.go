package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/api/responses"
	"github.com/luisargote/vendora-backend/api/validators"
	checkoutsvc "github.com/luisargote/vendora-backend/internal/checkout"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

// Checkout converts the caller's cart into an order with per-vendor splits.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ProcessCheckout(r.Context(), userID, payload.CartID, checkoutsvc.CheckoutInput{
			ShippingAddressID: payload.ShippingAddressID,
			BillingAddressID:  payload.BillingAddressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// DirectOrder places a single-product order without going through a cart.
func DirectOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload directOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateDirectOrder(r.Context(), userID, checkoutsvc.DirectOrderInput{
			ProductID:         payload.ProductID,
			Qty:               payload.Qty,
			ShippingAddressID: payload.ShippingAddressID,
			BillingAddressID:  payload.BillingAddressID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

type checkoutRequest struct {
	CartID            uuid.UUID  `json:"cart_id" validate:"required"`
	ShippingAddressID *uuid.UUID `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uuid.UUID `json:"billing_address_id,omitempty"`
}

type directOrderRequest struct {
	ProductID         uuid.UUID  `json:"product_id" validate:"required"`
	Qty               int        `json:"qty" validate:"required,min=1"`
	ShippingAddressID *uuid.UUID `json:"shipping_address_id,omitempty"`
	BillingAddressID  *uuid.UUID `json:"billing_address_id,omitempty"`
}

type orderResponse struct {
	OrderID       uuid.UUID             `json:"order_id"`
	OrderNumber   string                `json:"order_number"`
	SubtotalCents int64                 `json:"subtotal_cents"`
	DiscountCents int64                 `json:"discount_cents"`
	TaxCents      int64                 `json:"tax_cents"`
	ShippingCents int64                 `json:"shipping_cents"`
	TotalCents    int64                 `json:"total_cents"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	CouponCode    *string               `json:"coupon_code,omitempty"`
	Items         []orderItemResponse   `json:"items,omitempty"`
	VendorOrders  []vendorOrderResponse `json:"vendor_orders,omitempty"`
	CreatedAt     string                `json:"created_at"`
}

type orderItemResponse struct {
	ItemID         uuid.UUID  `json:"item_id"`
	VendorID       uuid.UUID  `json:"vendor_id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name"`
	ProductSKU     string     `json:"product_sku"`
	Qty            int        `json:"qty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	SubtotalCents  int64      `json:"subtotal_cents"`
	TotalCents     int64      `json:"total_cents"`
}

type vendorOrderResponse struct {
	VendorOrderID   uuid.UUID `json:"vendor_order_id"`
	VendorID        uuid.UUID `json:"vendor_id"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	CommissionCents int64     `json:"commission_cents"`
	EarningsCents   int64     `json:"earnings_cents"`
	CommissionRate  string    `json:"commission_rate"`
	PayoutStatus    string    `json:"payout_status"`
	ShippingStatus  string    `json:"shipping_status"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ItemID:         item.ID,
			VendorID:       item.VendorID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductSKU:     item.ProductSKU,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			SubtotalCents:  item.SubtotalCents,
			TotalCents:     item.TotalCents,
		})
	}
	vendorOrders := make([]vendorOrderResponse, 0, len(order.VendorOrders))
	for _, vo := range order.VendorOrders {
		vendorOrders = append(vendorOrders, vendorOrderResponse{
			VendorOrderID:   vo.ID,
			VendorID:        vo.VendorID,
			SubtotalCents:   vo.SubtotalCents,
			CommissionCents: vo.CommissionCents,
			EarningsCents:   vo.EarningsCents,
			CommissionRate:  vo.CommissionRate.String(),
			PayoutStatus:    string(vo.PayoutStatus),
			ShippingStatus:  string(vo.ShippingStatus),
		})
	}
	return orderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TaxCents:      order.TaxCents,
		ShippingCents: order.ShippingCents,
		TotalCents:    order.TotalCents,
		Currency:      order.Currency,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		CouponCode:    order.CouponCode,
		Items:         items,
		VendorOrders:  vendorOrders,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
