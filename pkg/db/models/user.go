package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the jeweler identity. Auth flows live outside this service; the
// settlement core only reads the row and writes through two denormalized
// Stripe fields kept for cheap dashboard reads.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"column:email;not null;unique"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name;not null"`
	BusinessName *string   `gorm:"column:business_name"`

	StripeAccountID           *string `gorm:"column:stripe_account_id"`
	StripeOnboardingCompleted bool    `gorm:"column:stripe_onboarding_completed;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName returns the business name when present, otherwise the personal name.
func (u User) DisplayName() string {
	if u.BusinessName != nil && *u.BusinessName != "" {
		return *u.BusinessName
	}
	return u.FirstName + " " + u.LastName
}
