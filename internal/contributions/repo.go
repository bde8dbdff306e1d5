package contributions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

var openAttemptStatuses = []enums.PaymentAttemptStatus{
	enums.PaymentAttemptStatusPending,
	enums.PaymentAttemptStatusProcessing,
}

// Repository handles contribution and payment-attempt persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateContribution(ctx context.Context, contribution *models.Contribution) error
	UpdateContribution(ctx context.Context, contribution *models.Contribution) error
	FindContributionByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error)
	CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	UpdateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	FindAttemptByStripeSessionID(ctx context.Context, sessionID string) (*models.PaymentAttempt, error)
	FindAttemptByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.PaymentAttempt, error)
	FindOpenAttempt(ctx context.Context, contributionID uuid.UUID) (*models.PaymentAttempt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a contribution repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateContribution(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Create(contribution).Error
}

func (r *repository) UpdateContribution(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Save(contribution).Error
}

func (r *repository) FindContributionByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contribution, nil
}

func (r *repository) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) UpdateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}

func (r *repository) FindAttemptByStripeSessionID(ctx context.Context, sessionID string) (*models.PaymentAttempt, error) {
	if sessionID == "" {
		return nil, nil
	}
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindAttemptByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.PaymentAttempt, error) {
	if paymentIntentID == "" {
		return nil, nil
	}
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("stripe_payment_intent_id = ?", paymentIntentID).First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// FindOpenAttempt returns the single non-terminal attempt for a contribution,
// if any. The partial unique index guarantees at most one.
func (r *repository) FindOpenAttempt(ctx context.Context, contributionID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("contribution_id = ? AND status IN (?)", contributionID, openAttemptStatuses).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}
