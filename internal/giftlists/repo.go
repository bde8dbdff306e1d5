package giftlists

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

// Repository exposes the gift-list read/update surface needed by settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.GiftList, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.GiftListProduct, error)
	CollectedAmount(ctx context.Context, giftListID uuid.UUID) (decimal.Decimal, error)
	MarkProductPurchased(ctx context.Context, productID uuid.UUID, purchasedBy string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gift-list repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GiftList, error) {
	var list models.GiftList
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &list, nil
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.GiftListProduct, error) {
	var product models.GiftListProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// CollectedAmount sums completed contributions; the total is never stored.
func (r *repository) CollectedAmount(ctx context.Context, giftListID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("CAST(COALESCE(SUM(amount), 0) AS TEXT)").
		Where("gift_list_id = ? AND payment_status = ?", giftListID, enums.ContributionStatusCompleted).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *repository) MarkProductPurchased(ctx context.Context, productID uuid.UUID, purchasedBy string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GiftListProduct{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"status":       enums.GiftListProductStatusPurchased,
			"purchased_by": purchasedBy,
			"purchased_at": at,
			"updated_at":   at,
		}).Error
}
