package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/internal/ledger"
	"github.com/luisargote/vendora-backend/internal/orders"
	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/metrics"
	"github.com/luisargote/vendora-backend/pkg/money"
	"github.com/luisargote/vendora-backend/pkg/outbox"
	"github.com/luisargote/vendora-backend/pkg/outbox/payloads"
)

const webhookConsumer = "gateway-webhook"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// settlementHook is invoked inside the payment transaction once a payment
// completes, so vendor payouts commit atomically with the status change.
type settlementHook interface {
	SettleOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// webhookDeduper remembers which gateway event ids were already applied.
type webhookDeduper interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Service drives the payment state machine. All writes to a payment row go
// through here; transitions outside the legal table are rejected without
// touching the row.
type Service interface {
	CreatePayment(ctx context.Context, userID uuid.UUID, input CreatePaymentInput) (*models.Payment, error)
	GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error)
	ListForOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, input StatusUpdate) (*models.Payment, error)
	HandleWebhook(ctx context.Context, input WebhookInput) (*models.Payment, error)
	Refund(ctx context.Context, paymentID uuid.UUID, amountCents int64) (*models.Payment, error)
}

// CreatePaymentInput starts a new charge attempt against an order.
type CreatePaymentInput struct {
	OrderID       uuid.UUID
	Method        enums.PaymentMethod
	TransactionID *string
	// AmountCents, when set, must match the order total. The charge amount
	// is always taken from the order, never from the caller.
	AmountCents *int64
}

// StatusUpdate carries a gateway-confirmed transition.
type StatusUpdate struct {
	Status          enums.PaymentStatus
	TransactionID   *string
	GatewayResponse json.RawMessage
	Reason          string
}

// WebhookInput is a normalized gateway notification. GatewayID comes from
// the gateway identification header and is mandatory.
type WebhookInput struct {
	GatewayID       string
	EventID         string
	PaymentID       *uuid.UUID
	TransactionID   string
	Status          string
	GatewayResponse json.RawMessage
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	ledgerRepo ledger.Repository
	outbox     outboxPublisher
	settler    settlementHook
	deduper    webhookDeduper
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the payment service. The metrics sink may be nil.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	ledgerRepo ledger.Repository,
	publisher outboxPublisher,
	settler settlementHook,
	deduper webhookDeduper,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settlement hook required")
	}
	if deduper == nil {
		return nil, fmt.Errorf("webhook deduper required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		ledgerRepo: ledgerRepo,
		outbox:     publisher,
		settler:    settler,
		deduper:    deduper,
		metrics:    settlementMetrics,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, userID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Method != "" && !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method))
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.ordersRepo.WithTx(tx).FindByIDForUser(ctx, input.OrderID, userID)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.OrderPaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}
		if input.AmountCents != nil && *input.AmountCents != order.TotalCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must match the order total")
		}

		method := input.Method
		if method == "" {
			method = enums.PaymentMethodCard
		}
		payment = &models.Payment{
			OrderID:       order.ID,
			Method:        method,
			TransactionID: input.TransactionID,
			AmountCents:   order.TotalCents,
			Currency:      order.Currency,
			Status:        enums.PaymentStatusPending,
		}
		return s.repo.WithTx(tx).Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayment(string(enums.PaymentStatusPending))
	return payment, nil
}

func (s *service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	if userID == uuid.Nil || paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and payment id required")
	}
	return s.repo.FindByIDForUser(ctx, paymentID, userID)
}

func (s *service) ListForOrder(ctx context.Context, userID, orderID uuid.UUID) ([]models.Payment, error) {
	if userID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and order id required")
	}
	// The owner check rides on the order lookup.
	if _, err := s.ordersRepo.FindByIDForUser(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

func (s *service) UpdateStatus(ctx context.Context, paymentID uuid.UUID, input StatusUpdate) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.applyTransition(ctx, tx, paymentID, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) HandleWebhook(ctx context.Context, input WebhookInput) (*models.Payment, error) {
	if input.GatewayID == "" {
		s.metrics.IncWebhook("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "missing gateway identification header")
	}
	status, err := enums.ParsePaymentStatus(input.Status)
	if err != nil {
		s.metrics.IncWebhook("rejected")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unrecognized payment status")
	}

	if input.EventID != "" {
		seen, err := s.deduper.CheckAndMarkProcessed(ctx, webhookConsumer, input.EventID)
		if err != nil {
			return nil, err
		}
		if seen {
			s.metrics.IncWebhook("duplicate")
			return s.lookupWebhookPayment(ctx, input)
		}
	}

	payment, handleErr := s.applyWebhook(ctx, input, status)
	if handleErr != nil && input.EventID != "" {
		// Release the claim so the gateway's redelivery can retry.
		if delErr := s.deduper.Delete(ctx, webhookConsumer, input.EventID); delErr != nil {
			s.logg.Error(ctx, "failed to release webhook claim", delErr)
		}
	}
	return payment, handleErr
}

func (s *service) lookupWebhookPayment(ctx context.Context, input WebhookInput) (*models.Payment, error) {
	switch {
	case input.PaymentID != nil:
		return s.repo.FindByID(ctx, *input.PaymentID)
	case input.TransactionID != "":
		return s.repo.FindByTransactionID(ctx, input.TransactionID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook carries no payment reference")
}

func (s *service) applyWebhook(ctx context.Context, input WebhookInput, status enums.PaymentStatus) (*models.Payment, error) {
	var applied *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var payment *models.Payment
		var err error
		switch {
		case input.PaymentID != nil:
			payment, err = repo.FindByIDForUpdate(ctx, *input.PaymentID)
		case input.TransactionID != "":
			payment, err = repo.FindByTransactionID(ctx, input.TransactionID)
			if err == nil {
				payment, err = repo.FindByIDForUpdate(ctx, payment.ID)
			}
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "webhook carries no payment reference")
		}
		if err != nil {
			return err
		}

		// A redelivered notification for a state we already hold is not an
		// error; the gateway retries until it sees success.
		if payment.Status == status {
			s.metrics.IncWebhook("duplicate")
			applied = payment
			return nil
		}

		update := StatusUpdate{
			Status:          status,
			GatewayResponse: input.GatewayResponse,
		}
		if input.TransactionID != "" {
			transactionID := input.TransactionID
			update.TransactionID = &transactionID
		}
		payment, err = s.transition(ctx, tx, payment, update)
		if err != nil {
			return err
		}
		s.metrics.IncWebhook("applied")
		applied = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// applyTransition locks the payment and applies the requested transition.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID, input StatusUpdate) (*models.Payment, error) {
	payment, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, tx, payment, input)
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, payment *models.Payment, input StatusUpdate) (*models.Payment, error) {
	if err := validateTransition(payment.Status, input.Status); err != nil {
		return nil, err
	}
	if input.Status == enums.PaymentStatusPartiallyRefunded || input.Status == enums.PaymentStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refunds must go through the refund operation")
	}

	payment.Status = input.Status
	if input.TransactionID != nil {
		payment.TransactionID = input.TransactionID
	}
	if input.GatewayResponse != nil {
		payment.GatewayResponse = input.GatewayResponse
	}

	now := s.now()
	switch input.Status {
	case enums.PaymentStatusCompleted:
		payment.PaymentDate = &now
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	ordersRepo := s.ordersRepo.WithTx(tx)
	switch input.Status {
	case enums.PaymentStatusCompleted:
		if err := ordersRepo.UpdatePaymentStatus(ctx, payment.OrderID, enums.OrderPaymentStatusPaid); err != nil {
			return nil, err
		}
		paymentID := payment.ID
		event := &models.LedgerEvent{
			OrderID:     payment.OrderID,
			PaymentID:   &paymentID,
			Type:        enums.LedgerEventTypePaymentCompleted,
			AmountCents: payment.AmountCents,
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, event); err != nil {
			return nil, err
		}
		transactionID := ""
		if payment.TransactionID != nil {
			transactionID = *payment.TransactionID
		}
		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentCompletedEvent{
				PaymentID:     payment.ID,
				OrderID:       payment.OrderID,
				AmountCents:   payment.AmountCents,
				TransactionID: transactionID,
				PaidAt:        now,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, domainEvent); err != nil {
			return nil, err
		}
		if err := s.settler.SettleOrder(ctx, tx, payment.OrderID); err != nil {
			return nil, err
		}
	case enums.PaymentStatusFailed:
		if err := ordersRepo.UpdatePaymentStatus(ctx, payment.OrderID, enums.OrderPaymentStatusFailed); err != nil {
			return nil, err
		}
		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentFailedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				Reason:    input.Reason,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, domainEvent); err != nil {
			return nil, err
		}
	}

	s.metrics.IncPayment(string(input.Status))
	return payment, nil
}

func (s *service) Refund(ctx context.Context, paymentID uuid.UUID, amountCents int64) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if amountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		payment, err = repo.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}

		remaining := payment.RemainingRefundableCents()
		if amountCents > remaining {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("refund of %s exceeds refundable balance %s",
					money.Format(amountCents), money.Format(remaining)))
		}

		cumulative := payment.RefundedCents + amountCents
		target := enums.PaymentStatusPartiallyRefunded
		if cumulative == payment.AmountCents {
			target = enums.PaymentStatusRefunded
		}
		// A later partial refund keeps the payment in partially_refunded;
		// only genuine status moves go through the transition table.
		if payment.Status != target {
			if err := validateTransition(payment.Status, target); err != nil {
				return err
			}
		}

		now := s.now()
		payment.Status = target
		payment.RefundedCents = cumulative
		payment.RefundDate = &now
		if err := repo.Update(ctx, payment); err != nil {
			return err
		}

		if err := s.rescaleVendorOrders(ctx, tx, payment); err != nil {
			return err
		}

		ordersRepo := s.ordersRepo.WithTx(tx)
		if target == enums.PaymentStatusRefunded {
			if err := ordersRepo.UpdatePaymentStatus(ctx, payment.OrderID, enums.OrderPaymentStatusRefunded); err != nil {
				return err
			}
		}

		pid := payment.ID
		event := &models.LedgerEvent{
			OrderID:     payment.OrderID,
			PaymentID:   &pid,
			Type:        enums.LedgerEventTypeRefund,
			AmountCents: -amountCents,
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}

		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentRefundedEvent{
				PaymentID:          payment.ID,
				OrderID:            payment.OrderID,
				RefundCents:        amountCents,
				TotalRefundedCents: cumulative,
				Status:             target,
				RefundedAt:         now,
			},
			Version: 1,
		}
		return s.outbox.Emit(ctx, tx, domainEvent)
	})
	if err != nil {
		return nil, err
	}

	kind := "partial"
	if payment.Status == enums.PaymentStatusRefunded {
		kind = "full"
	}
	s.metrics.IncRefund(kind)
	s.metrics.IncPayment(string(payment.Status))
	return payment, nil
}

// rescaleVendorOrders recomputes every vendor split from the first-computed
// Original* columns and the payment's remaining captured amount. Scaling from
// the originals keeps successive partial refunds from compounding rounding
// drift.
func (s *service) rescaleVendorOrders(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	if payment.AmountCents == 0 {
		return nil
	}
	remaining := payment.AmountCents - payment.RefundedCents

	ordersRepo := s.ordersRepo.WithTx(tx)
	vendorOrders, err := ordersRepo.VendorOrdersByOrderID(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	for _, vo := range vendorOrders {
		subtotal := money.ScaleRatio(vo.OriginalSubtotalCents, remaining, payment.AmountCents)
		commission := money.ScaleRatio(vo.OriginalCommissionCents, remaining, payment.AmountCents)
		earnings := subtotal - commission
		if err := ordersRepo.UpdateVendorOrderSplit(ctx, vo.ID, subtotal, commission, earnings); err != nil {
			return err
		}
	}
	return nil
}
