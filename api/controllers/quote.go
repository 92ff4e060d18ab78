package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luisargote/vendora-backend/api/responses"
	"github.com/luisargote/vendora-backend/internal/carts"
	"github.com/luisargote/vendora-backend/internal/coupons"
	"github.com/luisargote/vendora-backend/internal/pricing"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

// CartQuote prices the caller's cart for display. The same calculator runs
// again at checkout, so a quote is an estimate, not a reservation.
func CartQuote(cartRepo carts.Repository, couponSvc coupons.Service, calc *pricing.Calculator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cartRepo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}
		if calc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing calculator unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawCartID := strings.TrimSpace(chi.URLParam(r, "cartId"))
		if rawCartID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required"))
			return
		}
		cartID, err := uuid.Parse(rawCartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
			return
		}

		cart, err := cartRepo.FindByIDForUser(r.Context(), cartID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var coupon *models.Coupon
		if code := strings.TrimSpace(r.URL.Query().Get("coupon")); code != "" {
			if couponSvc == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
				return
			}
			coupon, err = couponSvc.Resolve(r.Context(), code, calc.Subtotal(cart.Items))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, calc.QuoteCart(cart.Items, coupon))
	}
}
