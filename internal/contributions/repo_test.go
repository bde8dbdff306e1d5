package contributions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

func setupContributionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	contributions := `
CREATE TABLE IF NOT EXISTS contributions (
  id TEXT PRIMARY KEY,
  gift_list_id TEXT NOT NULL,
  product_id TEXT,
  contributor_name TEXT NOT NULL,
  contributor_email TEXT NOT NULL,
  contributor_message TEXT,
  is_anonymous INTEGER NOT NULL DEFAULT 0,
  amount NUMERIC NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	paymentAttempts := `
CREATE TABLE IF NOT EXISTS payment_attempts (
  id TEXT PRIMARY KEY,
  contribution_id TEXT NOT NULL,
  stripe_session_id TEXT NOT NULL UNIQUE,
  stripe_payment_intent_id TEXT,
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  status TEXT NOT NULL DEFAULT 'pending',
  checkout_url TEXT NOT NULL,
  application_fee_amount NUMERIC,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	openAttemptIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_attempts_open_contribution
  ON payment_attempts (contribution_id)
  WHERE status IN ('pending', 'processing');`
	require.NoError(t, db.Exec(contributions).Error)
	require.NoError(t, db.Exec(paymentAttempts).Error)
	require.NoError(t, db.Exec(openAttemptIndex).Error)
	return db
}

func newTestContribution(t *testing.T, db *gorm.DB, amount string) *models.Contribution {
	t.Helper()

	contribution := &models.Contribution{
		ID:               uuid.New(),
		GiftListID:       uuid.New(),
		ContributorName:  "Giulia",
		ContributorEmail: "giulia@example.com",
		Amount:           decimal.RequireFromString(amount),
		PaymentStatus:    enums.ContributionStatusPending,
	}
	require.NoError(t, db.Create(contribution).Error)
	return contribution
}

func newTestAttempt(t *testing.T, db *gorm.DB, contributionID uuid.UUID, sessionID string, status enums.PaymentAttemptStatus) *models.PaymentAttempt {
	t.Helper()

	attempt := &models.PaymentAttempt{
		ID:              uuid.New(),
		ContributionID:  contributionID,
		StripeSessionID: sessionID,
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "EUR",
		Status:          status,
		CheckoutURL:     "https://checkout.stripe.com/c/pay/" + sessionID,
	}
	require.NoError(t, db.Create(attempt).Error)
	return attempt
}

func TestRepositoryFindContributionByID(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)

	created := newTestContribution(t, db, "50.00")

	found, err := repo.FindContributionByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("50.00")))

	missing, err := repo.FindContributionByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryFindOpenAttempt(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)

	contribution := newTestContribution(t, db, "25.00")
	newTestAttempt(t, db, contribution.ID, "cs_open_"+uuid.NewString(), enums.PaymentAttemptStatusPending)

	open, err := repo.FindOpenAttempt(context.Background(), contribution.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, enums.PaymentAttemptStatusPending, open.Status)

	// Terminal attempts never count as open.
	settled := newTestContribution(t, db, "25.00")
	newTestAttempt(t, db, settled.ID, "cs_done_"+uuid.NewString(), enums.PaymentAttemptStatusSucceeded)

	open, err = repo.FindOpenAttempt(context.Background(), settled.ID)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestRepositoryOpenAttemptIndexRejectsSecondOpenAttempt(t *testing.T) {
	db := setupContributionsTestDB(t)

	contribution := newTestContribution(t, db, "25.00")
	newTestAttempt(t, db, contribution.ID, "cs_first_"+uuid.NewString(), enums.PaymentAttemptStatusPending)

	second := &models.PaymentAttempt{
		ID:              uuid.New(),
		ContributionID:  contribution.ID,
		StripeSessionID: "cs_second_" + uuid.NewString(),
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "EUR",
		Status:          enums.PaymentAttemptStatusPending,
		CheckoutURL:     "https://checkout.stripe.com/c/pay/second",
	}
	err := db.Create(second).Error
	require.Error(t, err)

	// A terminal attempt alongside the open one is fine.
	third := &models.PaymentAttempt{
		ID:              uuid.New(),
		ContributionID:  contribution.ID,
		StripeSessionID: "cs_third_" + uuid.NewString(),
		Amount:          decimal.RequireFromString("25.00"),
		Currency:        "EUR",
		Status:          enums.PaymentAttemptStatusFailed,
		CheckoutURL:     "https://checkout.stripe.com/c/pay/third",
	}
	require.NoError(t, db.Create(third).Error)
}

func TestRepositoryFindAttemptBySessionAndIntent(t *testing.T) {
	db := setupContributionsTestDB(t)
	repo := NewRepository(db)

	contribution := newTestContribution(t, db, "25.00")
	sessionID := "cs_lookup_" + uuid.NewString()
	attempt := newTestAttempt(t, db, contribution.ID, sessionID, enums.PaymentAttemptStatusProcessing)

	intentID := "pi_" + uuid.NewString()
	attempt.StripePaymentIntentID = &intentID
	require.NoError(t, repo.UpdateAttempt(context.Background(), attempt))

	bySession, err := repo.FindAttemptByStripeSessionID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, bySession)
	assert.Equal(t, attempt.ID, bySession.ID)

	byIntent, err := repo.FindAttemptByPaymentIntentID(context.Background(), intentID)
	require.NoError(t, err)
	require.NotNil(t, byIntent)
	assert.Equal(t, attempt.ID, byIntent.ID)

	none, err := repo.FindAttemptByStripeSessionID(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, none)
}
