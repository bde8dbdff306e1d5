package payees

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/internal/users"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

type stubPayeeRepo struct {
	account *models.PayeeAccount
	created []*models.PayeeAccount
	updated []*models.PayeeAccount
}

func (s *stubPayeeRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPayeeRepo) Create(ctx context.Context, account *models.PayeeAccount) error {
	account.ID = uuid.New()
	s.account = account
	s.created = append(s.created, account)
	return nil
}

func (s *stubPayeeRepo) Update(ctx context.Context, account *models.PayeeAccount) error {
	s.updated = append(s.updated, account)
	return nil
}

func (s *stubPayeeRepo) FindByJewelerID(ctx context.Context, jewelerID uuid.UUID) (*models.PayeeAccount, error) {
	if s.account != nil && s.account.JewelerID == jewelerID {
		return s.account, nil
	}
	return nil, nil
}

func (s *stubPayeeRepo) FindByStripeAccountID(ctx context.Context, stripeAccountID string) (*models.PayeeAccount, error) {
	if s.account != nil && s.account.StripeAccountID != nil && *s.account.StripeAccountID == stripeAccountID {
		return s.account, nil
	}
	return nil, nil
}

type stubUserRepo struct {
	user    *models.User
	updated []*models.User
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) users.Repository { return s }

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, nil
}

func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error {
	s.updated = append(s.updated, user)
	return nil
}

type stubConnectClient struct {
	account     *stripe.Account
	accountErr  error
	link        *stripe.AccountLink
	linkErr     error
	createCalls int
	linkParams  *stripe.AccountLinkParams
}

func (s *stubConnectClient) CreateAccount(ctx context.Context, params *stripe.AccountParams) (*stripe.Account, error) {
	s.createCalls++
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	return s.account, nil
}

func (s *stubConnectClient) GetAccount(ctx context.Context, id string) (*stripe.Account, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	return s.account, nil
}

func (s *stubConnectClient) CreateAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	s.linkParams = params
	if s.linkErr != nil {
		return nil, s.linkErr
	}
	return s.link, nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, payeeRepo *stubPayeeRepo, userRepo *stubUserRepo, client *stubConnectClient) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		PayeeRepo:         payeeRepo,
		UserRepo:          userRepo,
		StripeClient:      client,
		TransactionRunner: &stubTxRunner{},
		Logger:            testLogger(),
		BaseURL:           "https://mondodoro.example",
		AccountCountry:    "IT",
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func TestStartOnboardingProvisionsAccountOnce(t *testing.T) {
	jewelerID := uuid.New()
	userRepo := &stubUserRepo{user: &models.User{ID: jewelerID, Email: "jeweler@example.com", FirstName: "Gia", LastName: "Romano"}}
	payeeRepo := &stubPayeeRepo{}
	client := &stubConnectClient{
		account: &stripe.Account{ID: "acct_test"},
		link:    &stripe.AccountLink{URL: "https://connect.stripe.com/setup/x"},
	}
	svc := newTestService(t, payeeRepo, userRepo, client)

	result, err := svc.StartOnboarding(context.Background(), jewelerID)
	if err != nil {
		t.Fatalf("start onboarding: %v", err)
	}
	if result.StripeAccountID != "acct_test" {
		t.Fatalf("expected provider account id, got %q", result.StripeAccountID)
	}
	if result.AccountLinkURL == "" {
		t.Fatal("expected account link url")
	}
	if len(payeeRepo.created) != 1 {
		t.Fatalf("expected payee row created, got %d", len(payeeRepo.created))
	}
	if len(userRepo.updated) != 1 || userRepo.updated[0].StripeAccountID == nil {
		t.Fatal("expected write-through of stripe account id to the jeweler row")
	}
	if client.linkParams == nil || client.linkParams.ReturnURL == nil {
		t.Fatal("expected account link params with return url")
	}

	// Second call reuses the existing provider account.
	if _, err := svc.StartOnboarding(context.Background(), jewelerID); err != nil {
		t.Fatalf("second onboarding call: %v", err)
	}
	if client.createCalls != 1 {
		t.Fatalf("expected a single provider account creation, got %d", client.createCalls)
	}
}

func TestStartOnboardingUnknownJeweler(t *testing.T) {
	svc := newTestService(t, &stubPayeeRepo{}, &stubUserRepo{}, &stubConnectClient{})

	_, err := svc.StartOnboarding(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error for unknown jeweler")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartOnboardingProviderRejection(t *testing.T) {
	jewelerID := uuid.New()
	userRepo := &stubUserRepo{user: &models.User{ID: jewelerID, Email: "jeweler@example.com"}}
	payeeRepo := &stubPayeeRepo{}
	client := &stubConnectClient{accountErr: errors.New("account rejected")}
	svc := newTestService(t, payeeRepo, userRepo, client)

	_, err := svc.StartOnboarding(context.Background(), jewelerID)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeProvider {
		t.Fatalf("expected provider code, got %v", err)
	}
	if len(payeeRepo.updated) != 0 {
		t.Fatal("no provider account id should be persisted on rejection")
	}
}

func TestCompleteOnboardingBeforeStart(t *testing.T) {
	jewelerID := uuid.New()
	payeeRepo := &stubPayeeRepo{account: &models.PayeeAccount{ID: uuid.New(), JewelerID: jewelerID}}
	svc := newTestService(t, payeeRepo, &stubUserRepo{}, &stubConnectClient{})

	_, err := svc.CompleteOnboarding(context.Background(), jewelerID)
	if err == nil {
		t.Fatal("expected error before onboarding started")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCompleteOnboardingSyncsCapabilities(t *testing.T) {
	jewelerID := uuid.New()
	acctID := "acct_sync"
	userRepo := &stubUserRepo{user: &models.User{ID: jewelerID}}
	payeeRepo := &stubPayeeRepo{account: &models.PayeeAccount{
		ID:              uuid.New(),
		JewelerID:       jewelerID,
		StripeAccountID: &acctID,
		Status:          enums.PayeeAccountStatusPending,
	}}
	client := &stubConnectClient{account: &stripe.Account{
		ID:               acctID,
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
		Country:          "IT",
		DefaultCurrency:  "eur",
	}}
	svc := newTestService(t, payeeRepo, userRepo, client)

	result, err := svc.CompleteOnboarding(context.Background(), jewelerID)
	if err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
	if result.Status != enums.PayeeAccountStatusActive {
		t.Fatalf("expected active status, got %s", result.Status)
	}
	if !result.OnboardingCompleted || !result.ChargesEnabled || !result.PayoutsEnabled {
		t.Fatalf("capability flags not synced: %+v", result)
	}
	if payeeRepo.account.Currency != "EUR" {
		t.Fatalf("expected currency normalized to EUR, got %s", payeeRepo.account.Currency)
	}
	if len(userRepo.updated) != 1 || !userRepo.updated[0].StripeOnboardingCompleted {
		t.Fatal("expected onboarding flag written through to the jeweler row")
	}
}

func TestSyncAccountStatusDerivation(t *testing.T) {
	tests := []struct {
		name string
		snap AccountSnapshot
		want enums.PayeeAccountStatus
	}{
		{
			name: "fully enabled",
			snap: AccountSnapshot{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true},
			want: enums.PayeeAccountStatusActive,
		},
		{
			name: "submitted but payouts pending",
			snap: AccountSnapshot{ChargesEnabled: true, PayoutsEnabled: false, DetailsSubmitted: true},
			want: enums.PayeeAccountStatusRestricted,
		},
		{
			name: "nothing submitted yet",
			snap: AccountSnapshot{},
			want: enums.PayeeAccountStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jewelerID := uuid.New()
			acctID := "acct_derive"
			payeeRepo := &stubPayeeRepo{account: &models.PayeeAccount{
				ID:              uuid.New(),
				JewelerID:       jewelerID,
				StripeAccountID: &acctID,
			}}
			svc := newTestService(t, payeeRepo, &stubUserRepo{user: &models.User{ID: jewelerID}}, &stubConnectClient{})

			tt.snap.AccountID = acctID
			if err := svc.SyncAccount(context.Background(), tt.snap); err != nil {
				t.Fatalf("sync account: %v", err)
			}
			if payeeRepo.account.Status != tt.want {
				t.Fatalf("expected status %s, got %s", tt.want, payeeRepo.account.Status)
			}
		})
	}
}

func TestSyncAccountUnknownAccountIsSwallowed(t *testing.T) {
	payeeRepo := &stubPayeeRepo{}
	svc := newTestService(t, payeeRepo, &stubUserRepo{}, &stubConnectClient{})

	if err := svc.SyncAccount(context.Background(), AccountSnapshot{AccountID: "acct_missing"}); err != nil {
		t.Fatalf("unknown account should not error: %v", err)
	}
	if len(payeeRepo.updated) != 0 {
		t.Fatal("no rows should be touched for unknown accounts")
	}
}
