package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/internal/ledger"
	"github.com/luisargote/vendora-backend/internal/orders"
	"github.com/luisargote/vendora-backend/internal/settings"
	"github.com/luisargote/vendora-backend/internal/vendors"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/metrics"
	"github.com/luisargote/vendora-backend/pkg/money"
	"github.com/luisargote/vendora-backend/pkg/outbox"
	"github.com/luisargote/vendora-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Engine generates vendor payouts. SettleOrder is the automatic path the
// payment service invokes on completion; the rest serve vendor-initiated
// payout requests.
type Engine interface {
	SettleOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	CreatePendingPayout(ctx context.Context, vendorID uuid.UUID, requestedCents *int64) (*models.VendorPayout, error)
	AdvancePayout(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error)
	AvailableBalance(ctx context.Context, vendorID uuid.UUID) (int64, error)
	ListPayouts(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error)
}

type engine struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	vendorRepo vendors.Repository
	ledgerRepo ledger.Repository
	settings   settings.Provider
	gateway    Gateway
	outbox     outboxPublisher
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewEngine builds the payout engine. The gateway may be nil when no payout
// rail is configured; AdvancePayout then reports a dependency error.
func NewEngine(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	vendorRepo vendors.Repository,
	ledgerRepo ledger.Repository,
	provider settings.Provider,
	gateway Gateway,
	publisher outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Engine, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if vendorRepo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &engine{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		vendorRepo: vendorRepo,
		ledgerRepo: ledgerRepo,
		settings:   provider,
		gateway:    gateway,
		outbox:     publisher,
		metrics:    settlementMetrics,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// SettleOrder sweeps every still-pending vendor order on a freshly paid
// order into a completed payout. Runs inside the payment transaction; a
// failure rolls the payment transition back with it.
func (e *engine) SettleOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if !e.settings.AutomaticPayoutsEnabled() {
		return nil
	}

	ordersRepo := e.ordersRepo.WithTx(tx)
	vendorOrders, err := ordersRepo.VendorOrdersByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	for _, vo := range vendorOrders {
		if vo.PayoutStatus != enums.VendorOrderPayoutStatusPending {
			continue
		}
		vendor, err := e.vendorRepo.WithTx(tx).FindByID(ctx, vo.VendorID)
		if err != nil {
			return err
		}

		now := e.now()
		payout := &models.VendorPayout{
			VendorID:    vo.VendorID,
			AmountCents: vo.EarningsCents,
			Method:      vendor.PayoutMethod,
			Status:      enums.PayoutStatusCompleted,
			ProcessedAt: &now,
		}
		if err := e.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		if err := ordersRepo.UpdateVendorOrderPayoutStatus(ctx, vo.ID, enums.VendorOrderPayoutStatusPaid); err != nil {
			return err
		}

		vendorID := vo.VendorID
		event := &models.LedgerEvent{
			OrderID:     orderID,
			VendorID:    &vendorID,
			Type:        enums.LedgerEventTypeVendorPayout,
			AmountCents: -vo.EarningsCents,
		}
		if err := e.ledgerRepo.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}

		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventPayoutCreated,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutCreatedEvent{
				PayoutID:    payout.ID,
				VendorID:    payout.VendorID,
				AmountCents: payout.AmountCents,
				Method:      payout.Method,
			},
			Version: 1,
		}
		if err := e.outbox.Emit(ctx, tx, domainEvent); err != nil {
			return err
		}
		e.metrics.IncPayout(string(enums.PayoutStatusCompleted))
	}
	return nil
}

// CreatePendingPayout opens a vendor-initiated payout against the vendor's
// available balance. Returns nil with no error when nothing is payable.
func (e *engine) CreatePendingPayout(ctx context.Context, vendorID uuid.UUID, requestedCents *int64) (*models.VendorPayout, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if requestedCents != nil && *requestedCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested amount must be positive")
	}

	var payout *models.VendorPayout
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		vendor, err := e.vendorRepo.WithTx(tx).FindByID(ctx, vendorID)
		if err != nil {
			return err
		}

		pending, err := repo.PendingVendorOrders(ctx, vendorID)
		if err != nil {
			return err
		}
		var available int64
		for _, vo := range pending {
			available += vo.EarningsCents
		}
		if available == 0 {
			return nil
		}

		amount := available
		if requestedCents != nil {
			amount = money.Min(*requestedCents, available)
		}

		payout = &models.VendorPayout{
			VendorID:    vendorID,
			AmountCents: amount,
			Method:      vendor.PayoutMethod,
			Status:      enums.PayoutStatusPending,
		}
		if err := repo.Create(ctx, payout); err != nil {
			return err
		}

		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventPayoutCreated,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data: payloads.PayoutCreatedEvent{
				PayoutID:    payout.ID,
				VendorID:    payout.VendorID,
				AmountCents: payout.AmountCents,
				Method:      payout.Method,
			},
			Version: 1,
		}
		return e.outbox.Emit(ctx, tx, domainEvent)
	})
	if err != nil {
		return nil, err
	}
	if payout != nil {
		e.metrics.IncPayout(string(enums.PayoutStatusPending))
	}
	return payout, nil
}

// AdvancePayout pushes a pending payout through the payout rail and records
// the terminal result. On success the covered vendor orders are flipped to
// paid, oldest first, up to the payout amount.
func (e *engine) AdvancePayout(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if e.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "no payout gateway configured")
	}

	var payout *models.VendorPayout
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)

		var err error
		payout, err = repo.FindByIDForUpdate(ctx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payout is already %s", payout.Status))
		}

		result, gatewayErr := e.gateway.Payout(ctx, DisburseRequest{
			PayoutID:    payout.ID.String(),
			VendorID:    payout.VendorID.String(),
			AmountCents: payout.AmountCents,
			Currency:    e.settings.Currency(),
			Destination: payout.Method,
		})

		now := e.now()
		payout.ProcessedAt = &now
		if gatewayErr != nil {
			reason := gatewayErr.Error()
			payout.Status = enums.PayoutStatusFailed
			payout.FailureReason = &reason
			if err := repo.Update(ctx, payout); err != nil {
				return err
			}
			return e.emitSettled(ctx, tx, payout, now)
		}

		provider := result.Provider
		payout.Provider = &provider
		if result.TransactionRef != "" {
			ref := result.TransactionRef
			payout.TransactionRef = &ref
		}
		if result.Completed {
			payout.Status = enums.PayoutStatusCompleted
		} else {
			payout.Status = enums.PayoutStatusFailed
			reason := result.FailureReason
			if reason == "" {
				reason = "payout rail did not settle the transfer"
			}
			payout.FailureReason = &reason
		}
		if err := repo.Update(ctx, payout); err != nil {
			return err
		}

		if payout.Status == enums.PayoutStatusCompleted {
			if err := e.markCoveredOrdersPaid(ctx, tx, payout); err != nil {
				return err
			}
		}
		return e.emitSettled(ctx, tx, payout, now)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.IncPayout(string(payout.Status))
	return payout, nil
}

// markCoveredOrdersPaid consumes pending vendor orders oldest first until
// the payout amount is exhausted, recording one ledger event per order.
func (e *engine) markCoveredOrdersPaid(ctx context.Context, tx *gorm.DB, payout *models.VendorPayout) error {
	pending, err := e.repo.WithTx(tx).PendingVendorOrders(ctx, payout.VendorID)
	if err != nil {
		return err
	}

	ordersRepo := e.ordersRepo.WithTx(tx)
	remaining := payout.AmountCents
	for _, vo := range pending {
		if remaining <= 0 || vo.EarningsCents > remaining {
			break
		}
		if err := ordersRepo.UpdateVendorOrderPayoutStatus(ctx, vo.ID, enums.VendorOrderPayoutStatusPaid); err != nil {
			return err
		}
		vendorID := vo.VendorID
		event := &models.LedgerEvent{
			OrderID:     vo.OrderID,
			VendorID:    &vendorID,
			Type:        enums.LedgerEventTypeVendorPayout,
			AmountCents: -vo.EarningsCents,
		}
		if err := e.ledgerRepo.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		remaining -= vo.EarningsCents
	}
	return nil
}

func (e *engine) emitSettled(ctx context.Context, tx *gorm.DB, payout *models.VendorPayout, processedAt time.Time) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventPayoutSettled,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Data: payloads.PayoutSettledEvent{
			PayoutID:       payout.ID,
			VendorID:       payout.VendorID,
			Status:         payout.Status,
			TransactionRef: stringValue(payout.TransactionRef),
			ProcessedAt:    processedAt,
		},
		Version: 1,
	}
	return e.outbox.Emit(ctx, tx, event)
}

func (e *engine) AvailableBalance(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	if vendorID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	pending, err := e.repo.PendingVendorOrders(ctx, vendorID)
	if err != nil {
		return 0, err
	}
	var available int64
	for _, vo := range pending {
		available += vo.EarningsCents
	}
	return available, nil
}

func (e *engine) ListPayouts(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]models.VendorPayout, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return e.repo.ListByVendorID(ctx, vendorID, limit, offset)
}
