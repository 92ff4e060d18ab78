package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/api/responses"
	"github.com/luisargote/vendora-backend/api/validators"
	"github.com/luisargote/vendora-backend/internal/payouts"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/money"
)

// VendorBalance reports the caller's payable earnings.
func VendorBalance(engine payouts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout engine unavailable"))
			return
		}

		vendorID, err := vendorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available, err := engine.AvailableBalance(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"available":       money.Format(available),
			"available_cents": available,
		})
	}
}

// RequestPayout creates a pending payout against the caller's balance.
func RequestPayout(engine payouts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout engine unavailable"))
			return
		}

		vendorID, err := vendorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var requestedCents *int64
		if payload.Amount != "" {
			cents, err := money.Parse(payload.Amount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout amount"))
				return
			}
			requestedCents = &cents
		}

		payout, err := engine.CreatePendingPayout(r.Context(), vendorID, requestedCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payout == nil {
			responses.WriteSuccess(w, requestPayoutResponse{Message: "no funds available"})
			return
		}

		payoutResp := newPayoutResponse(*payout)
		responses.WriteSuccessStatus(w, http.StatusCreated, requestPayoutResponse{Payout: &payoutResp})
	}
}

// ListVendorPayouts returns the caller's payout history, newest first.
func ListVendorPayouts(engine payouts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout engine unavailable"))
			return
		}

		vendorID, err := vendorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := engine.ListPayouts(r.Context(), vendorID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payoutList := make([]payoutResponse, 0, len(list))
		for _, payout := range list {
			payoutList = append(payoutList, newPayoutResponse(payout))
		}
		responses.WriteSuccess(w, payoutList)
	}
}

// AdvancePayout pushes a pending payout through the payout gateway.
func AdvancePayout(engine payouts.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout engine unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "payoutId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required"))
			return
		}
		payoutID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		payout, err := engine.AdvancePayout(r.Context(), payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPayoutResponse(*payout))
	}
}

type requestPayoutRequest struct {
	Amount string `json:"amount,omitempty"`
}

type requestPayoutResponse struct {
	Payout  *payoutResponse `json:"payout,omitempty"`
	Message string          `json:"message,omitempty"`
}

type payoutResponse struct {
	PayoutID       uuid.UUID `json:"payout_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	Amount         string    `json:"amount"`
	AmountCents    int64     `json:"amount_cents"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	Provider       *string   `json:"provider,omitempty"`
	TransactionRef *string   `json:"transaction_ref,omitempty"`
	FailureReason  *string   `json:"failure_reason,omitempty"`
	ProcessedAt    *string   `json:"processed_at,omitempty"`
	CreatedAt      string    `json:"created_at"`
}

func newPayoutResponse(payout models.VendorPayout) payoutResponse {
	return payoutResponse{
		PayoutID:       payout.ID,
		VendorID:       payout.VendorID,
		Amount:         money.Format(payout.AmountCents),
		AmountCents:    payout.AmountCents,
		Method:         payout.Method,
		Status:         string(payout.Status),
		Provider:       payout.Provider,
		TransactionRef: payout.TransactionRef,
		FailureReason:  payout.FailureReason,
		ProcessedAt:    formatTimePtr(payout.ProcessedAt),
		CreatedAt:      payout.CreatedAt.UTC().Format(time.RFC3339),
	}
}
