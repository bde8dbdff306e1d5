package stripewebhook

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
)

// ReceiptRepository persists the durable dedup/audit trail for inbound events.
type ReceiptRepository interface {
	WithTx(tx *gorm.DB) ReceiptRepository
	Create(ctx context.Context, receipt *models.WebhookReceipt) error
	Update(ctx context.Context, receipt *models.WebhookReceipt) error
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookReceipt, error)
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository returns a receipt repository bound to the provided database.
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) WithTx(tx *gorm.DB) ReceiptRepository {
	if tx == nil {
		return r
	}
	return &receiptRepository{db: tx}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *models.WebhookReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepository) Update(ctx context.Context, receipt *models.WebhookReceipt) error {
	return r.db.WithContext(ctx).Save(receipt).Error
}

func (r *receiptRepository) FindByEventID(ctx context.Context, eventID string) (*models.WebhookReceipt, error) {
	if eventID == "" {
		return nil, nil
	}
	var receipt models.WebhookReceipt
	if err := r.db.WithContext(ctx).Where("stripe_event_id = ?", eventID).First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &receipt, nil
}
