package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

// Service validates coupons for checkout use.
type Service interface {
	// Resolve loads a coupon and verifies it can be applied to a purchase of
	// the given subtotal.
	Resolve(ctx context.Context, code string, subtotalCents int64) (*models.Coupon, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a coupon service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Resolve(ctx context.Context, code string, subtotalCents int64) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active yet")
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}
	if coupon.MinPurchaseCents != nil && subtotalCents < *coupon.MinPurchaseCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase below coupon minimum")
	}
	return coupon, nil
}
