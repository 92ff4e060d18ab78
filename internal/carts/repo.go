package carts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisargote/vendora-backend/pkg/db/models"
	"github.com/luisargote/vendora-backend/pkg/enums"
	pkgerrors "github.com/luisargote/vendora-backend/pkg/errors"
)

// Repository manages cart persistence. Carts are loaded with their items;
// lookups are owner scoped so one user can never check out another's cart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByIDForUser(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error)
	MarkConverted(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByIDForUser(ctx context.Context, cartID, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", cartID, userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &cart, nil
}

func (r *repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart already processed")
	}
	return nil
}
