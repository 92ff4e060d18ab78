package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	events   []models.LedgerEvent
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEvent, error) {
	return f.events, nil
}

func (f *fakeRepository) ListByVendorID(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	return f.events, nil
}

func TestService_RecordEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	vendorID := uuid.New()
	metadata := json.RawMessage(`{"note":"payment settled"}`)
	input := RecordLedgerEventInput{
		OrderID:     uuid.New(),
		VendorID:    &vendorID,
		Type:        enums.LedgerEventTypePaymentCompleted,
		AmountCents: 425000,
		Metadata:    metadata,
	}

	event, err := svc.RecordEvent(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if event.AmountCents != 425000 {
		t.Fatalf("unexpected amount %d", event.AmountCents)
	}
	if event.Type != enums.LedgerEventTypePaymentCompleted {
		t.Fatalf("unexpected type %s", event.Type)
	}
}

func TestService_RecordEventValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.RecordEvent(context.Background(), RecordLedgerEventInput{
		Type:        enums.LedgerEventTypeRefund,
		AmountCents: -100,
	}); err == nil {
		t.Fatal("expected error for missing order id")
	}

	if _, err := svc.RecordEvent(context.Background(), RecordLedgerEventInput{
		OrderID: uuid.New(),
		Type:    enums.LedgerEventType("bogus"),
	}); err == nil {
		t.Fatal("expected error for invalid event type")
	}
}

func TestService_RecordEventRepoError(t *testing.T) {
	repoErr := errors.New("insert failed")
	repo := &fakeRepository{
		createFn: func(ctx context.Context, event *models.LedgerEvent) error {
			return repoErr
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.RecordEvent(context.Background(), RecordLedgerEventInput{
		OrderID:     uuid.New(),
		Type:        enums.LedgerEventTypeAdjustment,
		AmountCents: 10,
	})
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestService_HasEvent(t *testing.T) {
	orderID := uuid.New()
	repo := &fakeRepository{
		events: []models.LedgerEvent{
			{OrderID: orderID, Type: enums.LedgerEventTypePaymentCompleted},
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	has, err := svc.HasEvent(context.Background(), orderID, enums.LedgerEventTypePaymentCompleted)
	if err != nil {
		t.Fatalf("HasEvent: %v", err)
	}
	if !has {
		t.Fatal("expected event to be found")
	}

	has, err = svc.HasEvent(context.Background(), orderID, enums.LedgerEventTypeVendorPayout)
	if err != nil {
		t.Fatalf("HasEvent: %v", err)
	}
	if has {
		t.Fatal("expected no payout event")
	}
}
