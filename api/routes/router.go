package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luisargote/vendora-backend/api/controllers"
	webhookcontrollers "github.com/luisargote/vendora-backend/api/controllers/webhooks"
	"github.com/luisargote/vendora-backend/api/middleware"
	"github.com/luisargote/vendora-backend/internal/carts"
	checkoutsvc "github.com/luisargote/vendora-backend/internal/checkout"
	"github.com/luisargote/vendora-backend/internal/coupons"
	"github.com/luisargote/vendora-backend/internal/orders"
	paymentsvc "github.com/luisargote/vendora-backend/internal/payments"
	"github.com/luisargote/vendora-backend/internal/payouts"
	"github.com/luisargote/vendora-backend/internal/pricing"
	pkgAuth "github.com/luisargote/vendora-backend/pkg/auth"
	"github.com/luisargote/vendora-backend/pkg/config"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs. Grouping them keeps the
// constructor signature stable as endpoints come and go.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Registry    *prometheus.Registry
	RateLimiter middleware.RateLimiterStore
	CartRepo    carts.Repository
	OrdersRepo  orders.Repository
	CouponSvc   coupons.Service
	Calculator  *pricing.Calculator
	Checkout    checkoutsvc.Service
	Payments    paymentsvc.Service
	Payouts     payouts.Engine
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.WebhookRateLimit(cfg.WebhookRate, deps.RateLimiter, logg)).
			Post("/gateway", webhookcontrollers.GatewayWebhook(deps.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/carts", func(r chi.Router) {
			r.Get("/{cartId}/quote", controllers.CartQuote(deps.CartRepo, deps.CouponSvc, deps.Calculator, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Post("/orders/direct", controllers.DirectOrder(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.OrdersRepo, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrdersRepo, logg))
			r.Get("/{orderId}/payments", controllers.ListOrderPayments(deps.Payments, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", controllers.CreatePayment(deps.Payments, logg))
			r.Get("/{paymentId}", controllers.GetPayment(deps.Payments, logg))
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, pkgAuth.RoleVendor, pkgAuth.RoleAdmin))
			r.Get("/balance", controllers.VendorBalance(deps.Payouts, logg))
			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.ListVendorPayouts(deps.Payouts, logg))
				r.Post("/", controllers.RequestPayout(deps.Payouts, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, pkgAuth.RoleAdmin))
			r.Post("/payments/{paymentId}/refund", controllers.RefundPayment(deps.Payments, logg))
			r.Patch("/payments/{paymentId}/status", controllers.UpdatePaymentStatus(deps.Payments, logg))
			r.Post("/payouts/{payoutId}/advance", controllers.AdvancePayout(deps.Payouts, logg))
		})
	})

	return r
}
