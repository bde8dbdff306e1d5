package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

// PayeeAccount mirrors a jeweler's Stripe Connect account. The local row is a
// cache of the provider's authoritative state; only the account-status sync
// mutates the capability fields.
type PayeeAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	JewelerID uuid.UUID `gorm:"column:jeweler_id;type:uuid;not null;uniqueIndex"`

	// Nil until the provider account has been created.
	StripeAccountID *string `gorm:"column:stripe_account_id;unique"`

	Status              enums.PayeeAccountStatus `gorm:"column:status;not null;default:'pending'"`
	OnboardingCompleted bool                     `gorm:"column:onboarding_completed;not null;default:false"`
	ChargesEnabled      bool                     `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled      bool                     `gorm:"column:payouts_enabled;not null;default:false"`

	Country  *string `gorm:"column:country"`
	Currency string  `gorm:"column:currency;not null;default:'EUR'"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
