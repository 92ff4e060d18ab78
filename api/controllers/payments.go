package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/api/responses"
	"github.com/luisargote/vendora-backend/api/validators"
	paymentsvc "github.com/luisargote/vendora-backend/internal/payments"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/money"
)

// CreatePayment starts a charge attempt against one of the caller's orders.
func CreatePayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := paymentsvc.CreatePaymentInput{
			OrderID:       payload.OrderID,
			Method:        enums.PaymentMethod(payload.PaymentMethod),
			TransactionID: payload.TransactionID,
		}
		if payload.Amount != "" {
			cents, err := money.Parse(payload.Amount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment amount"))
				return
			}
			input.AmountCents = &cents
		}

		payment, err := svc.CreatePayment(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentResponse(payment))
	}
}

// GetPayment returns a payment the caller's order owns.
func GetPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.GetPayment(r.Context(), userID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// ListOrderPayments returns every charge attempt against one of the caller's orders.
func ListOrderPayments(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawOrderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		orderID, err := uuid.Parse(rawOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		payments, err := svc.ListForOrder(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list := make([]paymentResponse, 0, len(payments))
		for i := range payments {
			list = append(list, newPaymentResponse(&payments[i]))
		}
		responses.WriteSuccess(w, list)
	}
}

// RefundPayment refunds part or all of a payment's remaining balance.
func RefundPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amountCents, err := money.Parse(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund amount"))
			return
		}

		payment, err := svc.Refund(r.Context(), paymentID, amountCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// UpdatePaymentStatus applies an operator-initiated status transition.
func UpdatePaymentStatus(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		paymentID, err := parsePaymentID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePaymentStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		payment, err := svc.UpdateStatus(r.Context(), paymentID, paymentsvc.StatusUpdate{
			Status:          status,
			TransactionID:   payload.TransactionID,
			GatewayResponse: payload.GatewayResponse,
			Reason:          payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

func parsePaymentID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "paymentId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	paymentID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	return paymentID, nil
}

type createPaymentRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	TransactionID *string   `json:"transaction_id,omitempty"`
}

type refundRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type updatePaymentStatusRequest struct {
	Status          string          `json:"status" validate:"required"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
}

type paymentResponse struct {
	PaymentID       uuid.UUID       `json:"uuid"`
	OrderID         uuid.UUID       `json:"order_id"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   *string         `json:"transaction_id,omitempty"`
	Amount          string          `json:"amount"`
	AmountCents     int64           `json:"amount_cents"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	PaymentDate     *string         `json:"payment_date,omitempty"`
	RefundDate      *string         `json:"refund_date,omitempty"`
	RefundAmount    string          `json:"refund_amount"`
	RefundCents     int64           `json:"refund_cents"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty"`
}

func newPaymentResponse(payment *models.Payment) paymentResponse {
	if payment == nil {
		return paymentResponse{}
	}
	return paymentResponse{
		PaymentID:       payment.ID,
		OrderID:         payment.OrderID,
		PaymentMethod:   string(payment.Method),
		TransactionID:   payment.TransactionID,
		Amount:          money.Format(payment.AmountCents),
		AmountCents:     payment.AmountCents,
		Currency:        payment.Currency,
		Status:          string(payment.Status),
		PaymentDate:     formatTimePtr(payment.PaymentDate),
		RefundDate:      formatTimePtr(payment.RefundDate),
		RefundAmount:    money.Format(payment.RefundedCents),
		RefundCents:     payment.RefundedCents,
		GatewayResponse: payment.GatewayResponse,
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
