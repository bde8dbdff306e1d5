package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

// PaymentAttempt is one outbound checkout session for a contribution. At most
// one non-terminal attempt may exist per contribution; the partial unique
// index idx_payment_attempts_open_contribution is the serialization point for
// concurrent checkout creation.
type PaymentAttempt struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ContributionID uuid.UUID `gorm:"column:contribution_id;type:uuid;not null;index"`

	// Stripe Checkout Session ID (cs_...); payment_intent events correlate
	// through StripePaymentIntentID once the session settles.
	StripeSessionID       string  `gorm:"column:stripe_session_id;not null;unique"`
	StripePaymentIntentID *string `gorm:"column:stripe_payment_intent_id"`

	Amount   decimal.Decimal            `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency string                     `gorm:"column:currency;not null;default:'EUR'"`
	Status   enums.PaymentAttemptStatus `gorm:"column:status;not null;default:'pending'"`

	// Provider-hosted redirect URL surfaced to the contributor.
	CheckoutURL string `gorm:"column:checkout_url;not null"`

	ApplicationFeeAmount *decimal.Decimal `gorm:"column:application_fee_amount;type:numeric(10,2)"`
	Metadata             json.RawMessage  `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
