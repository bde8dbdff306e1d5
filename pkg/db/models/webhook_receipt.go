package models

import (
	"encoding/json"
	"time"
)

// WebhookReceipt is the dedup and audit record for one inbound Stripe event.
// Rows are never deleted; processed=true means the ledger mutation for this
// event has been applied exactly once.
type WebhookReceipt struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	StripeEventID string          `gorm:"column:stripe_event_id;not null;unique"`
	EventType     string          `gorm:"column:event_type;not null"`
	Processed     bool            `gorm:"column:processed;not null;default:false"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	ErrorMessage  *string         `gorm:"column:error_message"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
