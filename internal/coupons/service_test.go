package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

type fakeRepository struct {
	coupon *models.Coupon
	err    error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.coupon, nil
}

func (f *fakeRepository) IncrementUsage(ctx context.Context, code string) error {
	return nil
}

func validCoupon() *models.Coupon {
	return &models.Coupon{
		Code:   "SAVE10",
		Type:   enums.CouponTypeFixed,
		Value:  decimal.RequireFromString("10"),
		Active: true,
	}
}

func newTestService(t *testing.T, repo Repository, at time.Time) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.(*service).now = func() time.Time { return at }
	return svc
}

func TestResolveValidCoupon(t *testing.T) {
	svc := newTestService(t, &fakeRepository{coupon: validCoupon()}, time.Now())

	coupon, err := svc.Resolve(context.Background(), "SAVE10", 5000)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if coupon.Code != "SAVE10" {
		t.Fatalf("unexpected coupon %q", coupon.Code)
	}
}

func TestResolveInactiveCoupon(t *testing.T) {
	coupon := validCoupon()
	coupon.Active = false
	svc := newTestService(t, &fakeRepository{coupon: coupon}, time.Now())

	_, err := svc.Resolve(context.Background(), "SAVE10", 5000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveExpiredCoupon(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	coupon := validCoupon()
	coupon.ExpiresAt = &expired
	svc := newTestService(t, &fakeRepository{coupon: coupon}, time.Now())

	_, err := svc.Resolve(context.Background(), "SAVE10", 5000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveUsageLimitReached(t *testing.T) {
	limit := 3
	coupon := validCoupon()
	coupon.UsageLimit = &limit
	coupon.UsedCount = 3
	svc := newTestService(t, &fakeRepository{coupon: coupon}, time.Now())

	_, err := svc.Resolve(context.Background(), "SAVE10", 5000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveBelowMinimumPurchase(t *testing.T) {
	minimum := int64(10000)
	coupon := validCoupon()
	coupon.MinPurchaseCents = &minimum
	svc := newTestService(t, &fakeRepository{coupon: coupon}, time.Now())

	_, err := svc.Resolve(context.Background(), "SAVE10", 5000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	repoErr := pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	svc := newTestService(t, &fakeRepository{err: repoErr}, time.Now())

	_, err := svc.Resolve(context.Background(), "MISSING", 5000)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
