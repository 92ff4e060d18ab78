package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	checkoutsvc "github.com/luisargote/vendora-backend/internal/checkout"
	paymentsvc "github.com/luisargote/vendora-backend/internal/payments"
	pkgAuth "github.com/luisargote/vendora-backend/pkg/auth"
	"github.com/luisargote/vendora-backend/pkg/config"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
)

type stubCheckout struct{}

func (stubCheckout) ProcessCheckout(ctx context.Context, userID, cartID uuid.UUID, input checkoutsvc.CheckoutInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), UserID: userID}, nil
}

func (stubCheckout) CreateDirectOrder(ctx context.Context, userID uuid.UUID, input checkoutsvc.DirectOrderInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), UserID: userID}, nil
}

type stubPayments struct{}

func (stubPayments) CreatePayment(ctx context.Context, userID uuid.UUID, input paymentsvc.CreatePaymentInput) (*models.Payment, error) {
	return &models.Payment{ID: uuid.New()}, nil
}

func (stubPayments) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	return &models.Payment{ID: paymentID}, nil
}

func (stubPayments) ListForOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func (stubPayments) UpdateStatus(ctx context.Context, paymentID uuid.UUID, input paymentsvc.StatusUpdate) (*models.Payment, error) {
	return &models.Payment{ID: paymentID}, nil
}

func (stubPayments) HandleWebhook(ctx context.Context, input paymentsvc.WebhookInput) (*models.Payment, error) {
	if input.GatewayID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "missing gateway identification header")
	}
	return &models.Payment{ID: uuid.New()}, nil
}

func (stubPayments) Refund(ctx context.Context, paymentID uuid.UUID, amountCents int64) (*models.Payment, error) {
	return &models.Payment{ID: paymentID}, nil
}

type stubPayouts struct{}

func (stubPayouts) SettleOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return nil
}

func (stubPayouts) CreatePendingPayout(ctx context.Context, vendorID uuid.UUID, requestedCents *int64) (*models.VendorPayout, error) {
	return nil, nil
}

func (stubPayouts) AdvancePayout(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	return &models.VendorPayout{ID: payoutID}, nil
}

func (stubPayouts) AvailableBalance(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubPayouts) ListPayouts(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "vendora-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Checkout: stubCheckout{},
		Payments: stubPayments{},
		Payouts:  stubPayouts{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role pkgAuth.ActorRole) string {
	t.Helper()
	payload := pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	}
	if role == pkgAuth.RoleVendor {
		vendorID := uuid.New()
		payload.VendorID = &vendorID
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthedGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestVendorGroupRequiresVendorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/balance", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	vendor := httptest.NewRequest(http.MethodGet, "/api/v1/vendors/balance", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleVendor))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	payoutID := uuid.New()
	vendor := httptest.NewRequest(http.MethodPost, "/api/v1/admin/payouts/"+payoutID.String()+"/advance", nil)
	vendor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleVendor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, vendor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for vendor got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/admin/payouts/"+payoutID.String()+"/advance", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgAuth.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWebhookRouteIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())

	// No bearer token; the route must still reach the handler, which then
	// rejects the missing gateway header with 422 rather than 401.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", resp.Code, resp.Body.String())
	}
}
