package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

// Contribution is a guest's pledge of money to a gift list, or to one product
// within it. Amount is immutable after creation; only the webhook processor
// (and the explicit reconciliation call) moves payment status.
type Contribution struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GiftListID uuid.UUID  `gorm:"column:gift_list_id;type:uuid;not null;index"`
	ProductID  *uuid.UUID `gorm:"column:product_id;type:uuid"`

	ContributorName    string  `gorm:"column:contributor_name;not null"`
	ContributorEmail   string  `gorm:"column:contributor_email;not null"`
	ContributorMessage *string `gorm:"column:contributor_message"`
	IsAnonymous        bool    `gorm:"column:is_anonymous;not null;default:false"`

	Amount        decimal.Decimal          `gorm:"column:amount;type:numeric(10,2);not null"`
	PaymentStatus enums.ContributionStatus `gorm:"column:payment_status;not null;default:'pending'"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName honors the anonymity flag.
func (c Contribution) DisplayName() string {
	if c.IsAnonymous {
		return "Anonymous"
	}
	return c.ContributorName
}
