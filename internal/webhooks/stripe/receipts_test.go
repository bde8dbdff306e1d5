package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
)

func setupReceiptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	receipts := `
CREATE TABLE IF NOT EXISTS webhook_receipts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  stripe_event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  processed INTEGER NOT NULL DEFAULT 0,
  payload TEXT NOT NULL,
  error_message TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(receipts).Error)
	return db
}

func TestReceiptRepositoryClaimAndMark(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewReceiptRepository(db)

	eventID := "evt_" + uuid.NewString()
	receipt := &models.WebhookReceipt{
		StripeEventID: eventID,
		EventType:     "checkout.session.completed",
		Payload:       json.RawMessage(`{"id":"evt"}`),
	}
	require.NoError(t, repo.Create(context.Background(), receipt))
	require.NotZero(t, receipt.ID)

	found, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.Processed)

	found.Processed = true
	require.NoError(t, repo.Update(context.Background(), found))

	again, err := repo.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.True(t, again.Processed)
}

func TestReceiptRepositoryDuplicateEventRejected(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewReceiptRepository(db)

	eventID := "evt_" + uuid.NewString()
	first := &models.WebhookReceipt{
		StripeEventID: eventID,
		EventType:     "payment_intent.succeeded",
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, repo.Create(context.Background(), first))

	dup := &models.WebhookReceipt{
		StripeEventID: eventID,
		EventType:     "payment_intent.succeeded",
		Payload:       json.RawMessage(`{}`),
	}
	require.Error(t, repo.Create(context.Background(), dup))
}

func TestReceiptRepositoryFindUnknownEvent(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewReceiptRepository(db)

	found, err := repo.FindByEventID(context.Background(), "evt_missing")
	require.NoError(t, err)
	assert.Nil(t, found)

	blank, err := repo.FindByEventID(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, blank)
}
