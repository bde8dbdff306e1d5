package payees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
)

// Repository handles payee account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.PayeeAccount) error
	Update(ctx context.Context, account *models.PayeeAccount) error
	FindByJewelerID(ctx context.Context, jewelerID uuid.UUID) (*models.PayeeAccount, error)
	FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*models.PayeeAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payee repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.PayeeAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Update(ctx context.Context, account *models.PayeeAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) FindByJewelerID(ctx context.Context, jewelerID uuid.UUID) (*models.PayeeAccount, error) {
	var account models.PayeeAccount
	if err := r.db.WithContext(ctx).Where("jeweler_id = ?", jewelerID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*models.PayeeAccount, error) {
	if stripeAccountID == "" {
		return nil, nil
	}
	var account models.PayeeAccount
	if err := r.db.WithContext(ctx).Where("stripe_account_id = ?", stripeAccountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
