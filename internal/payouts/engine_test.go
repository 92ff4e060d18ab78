package payouts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/internal/ledger"
	"github.com/luisargote/vendora-backend/internal/orders"
	"github.com/luisargote/vendora-backend/internal/vendors"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeSettings struct {
	autoPayouts bool
}

func (f *fakeSettings) TaxRate() decimal.Decimal               { return decimal.Zero }
func (f *fakeSettings) FlatShippingCents() int64               { return 0 }
func (f *fakeSettings) DefaultCommissionRate() decimal.Decimal { return decimal.RequireFromString("10") }
func (f *fakeSettings) AutomaticPayoutsEnabled() bool          { return f.autoPayouts }
func (f *fakeSettings) Currency() string                       { return "USD" }

type fakePayoutRepo struct {
	payouts map[uuid.UUID]*models.VendorPayout
	pending []models.VendorOrder
}

func newFakePayoutRepo() *fakePayoutRepo {
	return &fakePayoutRepo{payouts: map[uuid.UUID]*models.VendorPayout{}}
}

func (f *fakePayoutRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePayoutRepo) Create(ctx context.Context, payout *models.VendorPayout) error {
	payout.ID = uuid.New()
	copied := *payout
	f.payouts[payout.ID] = &copied
	return nil
}

func (f *fakePayoutRepo) FindByID(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	p, ok := f.payouts[payoutID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	copied := *p
	return &copied, nil
}

func (f *fakePayoutRepo) FindByIDForUpdate(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	return f.FindByID(ctx, payoutID)
}

func (f *fakePayoutRepo) ListByVendorID(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error) {
	var rows []models.VendorPayout
	for _, p := range f.payouts {
		if p.VendorID == vendorID {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (f *fakePayoutRepo) Update(ctx context.Context, payout *models.VendorPayout) error {
	copied := *payout
	f.payouts[payout.ID] = &copied
	return nil
}

func (f *fakePayoutRepo) PendingVendorOrders(ctx context.Context, vendorID uuid.UUID) ([]models.VendorOrder, error) {
	var rows []models.VendorOrder
	for _, vo := range f.pending {
		if vo.VendorID == vendorID && vo.PayoutStatus == enums.VendorOrderPayoutStatusPending {
			rows = append(rows, vo)
		}
	}
	return rows, nil
}

type fakeOrdersRepo struct {
	vendorOrders []models.VendorOrder
	payoutFlips  []uuid.UUID
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) error { return nil }
func (f *fakeOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}
func (f *fakeOrdersRepo) CreateVendorOrders(ctx context.Context, vendorOrders []models.VendorOrder) error {
	return nil
}
func (f *fakeOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
func (f *fakeOrdersRepo) FindByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return nil, nil
}
func (f *fakeOrdersRepo) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	return false, nil
}
func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return nil
}
func (f *fakeOrdersRepo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderPaymentStatus) error {
	return nil
}
func (f *fakeOrdersRepo) VendorOrdersByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.VendorOrder, error) {
	var rows []models.VendorOrder
	for _, vo := range f.vendorOrders {
		if vo.OrderID == orderID {
			rows = append(rows, vo)
		}
	}
	return rows, nil
}
func (f *fakeOrdersRepo) UpdateVendorOrderSplit(ctx context.Context, vendorOrderID uuid.UUID, subtotalCents, commissionCents, earningsCents int64) error {
	return nil
}
func (f *fakeOrdersRepo) UpdateVendorOrderPayoutStatus(ctx context.Context, vendorOrderID uuid.UUID, status enums.VendorOrderPayoutStatus) error {
	f.payoutFlips = append(f.payoutFlips, vendorOrderID)
	for i := range f.vendorOrders {
		if f.vendorOrders[i].ID == vendorOrderID {
			f.vendorOrders[i].PayoutStatus = status
		}
	}
	return nil
}

type fakeVendorRepo struct {
	vendors map[uuid.UUID]models.Vendor
}

func (f *fakeVendorRepo) WithTx(tx *gorm.DB) vendors.Repository { return f }

func (f *fakeVendorRepo) FindByID(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	v, ok := f.vendors[vendorID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return &v, nil
}

func (f *fakeVendorRepo) FindByIDs(ctx context.Context, vendorIDs []uuid.UUID) ([]models.Vendor, error) {
	return nil, nil
}

type fakeLedgerRepo struct {
	events []models.LedgerEvent
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }
func (f *fakeLedgerRepo) Create(ctx context.Context, event *models.LedgerEvent) error {
	f.events = append(f.events, *event)
	return nil
}
func (f *fakeLedgerRepo) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return f.events, nil
}
func (f *fakeLedgerRepo) ListByVendorID(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	return f.events, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeGateway struct {
	result *DisburseResult
	err    error
	calls  []DisburseRequest
}

func (f *fakeGateway) Payout(ctx context.Context, req DisburseRequest) (*DisburseResult, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

type engineFixture struct {
	engine  Engine
	repo    *fakePayoutRepo
	orders  *fakeOrdersRepo
	ledger  *fakeLedgerRepo
	outbox  *fakeOutbox
	gateway *fakeGateway
}

func newEngineFixture(t *testing.T, auto bool, vendorRows map[uuid.UUID]models.Vendor, gateway *fakeGateway) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		repo:    newFakePayoutRepo(),
		orders:  &fakeOrdersRepo{},
		ledger:  &fakeLedgerRepo{},
		outbox:  &fakeOutbox{},
		gateway: gateway,
	}
	var gw Gateway
	if gateway != nil {
		gw = gateway
	}
	eng, err := NewEngine(
		fakeTxRunner{},
		fx.repo,
		fx.orders,
		&fakeVendorRepo{vendors: vendorRows},
		fx.ledger,
		&fakeSettings{autoPayouts: auto},
		gw,
		fx.outbox,
		nil,
		testLogger(),
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	fx.engine = eng
	return fx
}

func TestSettleOrderDisabledFlag(t *testing.T) {
	orderID := uuid.New()
	vendorID := uuid.New()
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)
	fx.orders.vendorOrders = []models.VendorOrder{{
		ID: uuid.New(), OrderID: orderID, VendorID: vendorID,
		EarningsCents: 9000, PayoutStatus: enums.VendorOrderPayoutStatusPending,
	}}

	if err := fx.engine.SettleOrder(context.Background(), &gorm.DB{}, orderID); err != nil {
		t.Fatalf("SettleOrder: %v", err)
	}
	if len(fx.repo.payouts) != 0 {
		t.Fatal("no payout may be created with automatic payouts disabled")
	}
	if len(fx.orders.payoutFlips) != 0 {
		t.Fatal("vendor orders must stay pending with automatic payouts disabled")
	}
}

func TestSettleOrderCreatesCompletedPayouts(t *testing.T) {
	orderID := uuid.New()
	vendorA := uuid.New()
	vendorB := uuid.New()
	fx := newEngineFixture(t, true, map[uuid.UUID]models.Vendor{
		vendorA: {ID: vendorA, PayoutMethod: "bank_transfer"},
		vendorB: {ID: vendorB, PayoutMethod: "paypal"},
	}, nil)
	fx.orders.vendorOrders = []models.VendorOrder{
		{ID: uuid.New(), OrderID: orderID, VendorID: vendorA, EarningsCents: 9000, PayoutStatus: enums.VendorOrderPayoutStatusPending},
		{ID: uuid.New(), OrderID: orderID, VendorID: vendorB, EarningsCents: 8000, PayoutStatus: enums.VendorOrderPayoutStatusPending},
	}

	if err := fx.engine.SettleOrder(context.Background(), &gorm.DB{}, orderID); err != nil {
		t.Fatalf("SettleOrder: %v", err)
	}

	if len(fx.repo.payouts) != 2 {
		t.Fatalf("payouts = %d, want 2", len(fx.repo.payouts))
	}
	totals := map[uuid.UUID]int64{}
	for _, p := range fx.repo.payouts {
		if p.Status != enums.PayoutStatusCompleted {
			t.Fatalf("payout status = %s, want completed", p.Status)
		}
		if p.ProcessedAt == nil {
			t.Fatal("processed_at not stamped")
		}
		totals[p.VendorID] = p.AmountCents
	}
	if totals[vendorA] != 9000 || totals[vendorB] != 8000 {
		t.Fatalf("payout amounts = %v, want earnings verbatim", totals)
	}
	if len(fx.orders.payoutFlips) != 2 {
		t.Fatalf("vendor order flips = %d, want 2", len(fx.orders.payoutFlips))
	}
	if len(fx.ledger.events) != 2 || fx.ledger.events[0].AmountCents != -9000 {
		t.Fatalf("ledger events = %+v, want two negative payout entries", fx.ledger.events)
	}
}

func TestSettleOrderSkipsAlreadyPaid(t *testing.T) {
	orderID := uuid.New()
	vendorID := uuid.New()
	fx := newEngineFixture(t, true, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)
	fx.orders.vendorOrders = []models.VendorOrder{{
		ID: uuid.New(), OrderID: orderID, VendorID: vendorID,
		EarningsCents: 9000, PayoutStatus: enums.VendorOrderPayoutStatusPaid,
	}}

	if err := fx.engine.SettleOrder(context.Background(), &gorm.DB{}, orderID); err != nil {
		t.Fatalf("SettleOrder: %v", err)
	}
	if len(fx.repo.payouts) != 0 {
		t.Fatal("already-paid vendor orders must not produce another payout")
	}
}

func TestSettleOrderUsesRescaledEarnings(t *testing.T) {
	orderID := uuid.New()
	vendorID := uuid.New()
	fx := newEngineFixture(t, true, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)
	// Earnings already reduced by a partial refund; the payout uses the
	// value as it stands now, not the original.
	fx.orders.vendorOrders = []models.VendorOrder{{
		ID: uuid.New(), OrderID: orderID, VendorID: vendorID,
		EarningsCents: 6750, OriginalEarningsCents: 9000,
		PayoutStatus: enums.VendorOrderPayoutStatusPending,
	}}

	if err := fx.engine.SettleOrder(context.Background(), &gorm.DB{}, orderID); err != nil {
		t.Fatalf("SettleOrder: %v", err)
	}
	for _, p := range fx.repo.payouts {
		if p.AmountCents != 6750 {
			t.Fatalf("payout amount = %d, want the current earnings 6750", p.AmountCents)
		}
	}
}

func TestCreatePendingPayoutZeroBalance(t *testing.T) {
	vendorID := uuid.New()
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)

	payout, err := fx.engine.CreatePendingPayout(context.Background(), vendorID, nil)
	if err != nil {
		t.Fatalf("CreatePendingPayout: %v", err)
	}
	if payout != nil {
		t.Fatalf("expected nil payout for zero balance, got %+v", payout)
	}
}

func TestCreatePendingPayoutCapsAtAvailable(t *testing.T) {
	vendorID := uuid.New()
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)
	fx.repo.pending = []models.VendorOrder{
		{ID: uuid.New(), VendorID: vendorID, EarningsCents: 4000, PayoutStatus: enums.VendorOrderPayoutStatusPending},
		{ID: uuid.New(), VendorID: vendorID, EarningsCents: 3000, PayoutStatus: enums.VendorOrderPayoutStatusPending},
	}

	requested := int64(10000)
	payout, err := fx.engine.CreatePendingPayout(context.Background(), vendorID, &requested)
	if err != nil {
		t.Fatalf("CreatePendingPayout: %v", err)
	}
	if payout == nil {
		t.Fatal("expected a payout")
	}
	if payout.AmountCents != 7000 {
		t.Fatalf("amount = %d, want capped at available 7000", payout.AmountCents)
	}
	if payout.Status != enums.PayoutStatusPending {
		t.Fatalf("status = %s, want pending", payout.Status)
	}
	if payout.Method != "bank_transfer" {
		t.Fatalf("method = %s, want the vendor's snapshot", payout.Method)
	}
}

func TestCreatePendingPayoutFullBalanceByDefault(t *testing.T) {
	vendorID := uuid.New()
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, nil)
	fx.repo.pending = []models.VendorOrder{
		{ID: uuid.New(), VendorID: vendorID, EarningsCents: 4500, PayoutStatus: enums.VendorOrderPayoutStatusPending},
	}

	payout, err := fx.engine.CreatePendingPayout(context.Background(), vendorID, nil)
	if err != nil {
		t.Fatalf("CreatePendingPayout: %v", err)
	}
	if payout == nil || payout.AmountCents != 4500 {
		t.Fatalf("payout = %+v, want the full available balance", payout)
	}
}

func TestCreatePendingPayoutRejectsNonPositiveRequest(t *testing.T) {
	fx := newEngineFixture(t, false, nil, nil)

	requested := int64(0)
	_, err := fx.engine.CreatePendingPayout(context.Background(), uuid.New(), &requested)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdvancePayoutCompletes(t *testing.T) {
	vendorID := uuid.New()
	gateway := &fakeGateway{result: &DisburseResult{Provider: "square", TransactionRef: "sq-1", Completed: true}}
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, gateway)

	voA := models.VendorOrder{ID: uuid.New(), OrderID: uuid.New(), VendorID: vendorID, EarningsCents: 4000, PayoutStatus: enums.VendorOrderPayoutStatusPending}
	voB := models.VendorOrder{ID: uuid.New(), OrderID: uuid.New(), VendorID: vendorID, EarningsCents: 3000, PayoutStatus: enums.VendorOrderPayoutStatusPending}
	fx.repo.pending = []models.VendorOrder{voA, voB}

	pending := &models.VendorPayout{VendorID: vendorID, AmountCents: 7000, Method: "bank_transfer", Status: enums.PayoutStatusPending}
	if err := fx.repo.Create(context.Background(), pending); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	advanced, err := fx.engine.AdvancePayout(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("AdvancePayout: %v", err)
	}
	if advanced.Status != enums.PayoutStatusCompleted {
		t.Fatalf("status = %s, want completed", advanced.Status)
	}
	if advanced.TransactionRef == nil || *advanced.TransactionRef != "sq-1" {
		t.Fatalf("transaction ref = %v, want sq-1", advanced.TransactionRef)
	}
	if advanced.Provider == nil || *advanced.Provider != "square" {
		t.Fatalf("provider = %v, want square", advanced.Provider)
	}
	if len(fx.orders.payoutFlips) != 2 {
		t.Fatalf("vendor order flips = %d, want both covered orders", len(fx.orders.payoutFlips))
	}
	if len(gateway.calls) != 1 || gateway.calls[0].AmountCents != 7000 {
		t.Fatalf("gateway calls = %+v, want one for 7000", gateway.calls)
	}
	if gateway.calls[0].Currency != "USD" {
		t.Fatalf("currency = %q, want USD", gateway.calls[0].Currency)
	}
}

func TestAdvancePayoutGatewayFailure(t *testing.T) {
	vendorID := uuid.New()
	gateway := &fakeGateway{err: errors.New("rail unavailable")}
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID, PayoutMethod: "bank_transfer"}}, gateway)

	pending := &models.VendorPayout{VendorID: vendorID, AmountCents: 5000, Method: "bank_transfer", Status: enums.PayoutStatusPending}
	if err := fx.repo.Create(context.Background(), pending); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	advanced, err := fx.engine.AdvancePayout(context.Background(), pending.ID)
	if err != nil {
		t.Fatalf("AdvancePayout: %v", err)
	}
	if advanced.Status != enums.PayoutStatusFailed {
		t.Fatalf("status = %s, want failed", advanced.Status)
	}
	if advanced.FailureReason == nil || *advanced.FailureReason == "" {
		t.Fatal("failure reason not recorded")
	}
	if len(fx.orders.payoutFlips) != 0 {
		t.Fatal("a failed payout must not consume vendor orders")
	}
}

func TestAdvancePayoutAlreadySettled(t *testing.T) {
	vendorID := uuid.New()
	gateway := &fakeGateway{result: &DisburseResult{Completed: true}}
	fx := newEngineFixture(t, false, map[uuid.UUID]models.Vendor{vendorID: {ID: vendorID}}, gateway)

	done := &models.VendorPayout{VendorID: vendorID, AmountCents: 5000, Status: enums.PayoutStatusCompleted}
	if err := fx.repo.Create(context.Background(), done); err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	_, err := fx.engine.AdvancePayout(context.Background(), done.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAdvancePayoutWithoutGateway(t *testing.T) {
	fx := newEngineFixture(t, false, nil, nil)

	_, err := fx.engine.AdvancePayout(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
