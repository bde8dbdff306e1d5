package payees

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/internal/users"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

const (
	onboardingRefreshPath = "/payees/onboarding/refresh"
	onboardingReturnPath  = "/payees/onboarding/return"
)

// AccountSnapshot is the provider-side account state the sync consumes.
type AccountSnapshot struct {
	AccountID        string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Country          string
	DefaultCurrency  string
}

// SnapshotFromAccount flattens a Stripe account into the fields the sync uses.
func SnapshotFromAccount(acct *stripe.Account) AccountSnapshot {
	if acct == nil {
		return AccountSnapshot{}
	}
	return AccountSnapshot{
		AccountID:        acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		Country:          acct.Country,
		DefaultCurrency:  strings.ToUpper(string(acct.DefaultCurrency)),
	}
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	PayeeRepo         Repository
	UserRepo          users.Repository
	StripeClient      ConnectClient
	TransactionRunner txRunner
	Logger            *logger.Logger
	BaseURL           string
	AccountCountry    string
}

type Service struct {
	payeeRepo      Repository
	userRepo       users.Repository
	stripe         ConnectClient
	txRunner       txRunner
	logg           *logger.Logger
	baseURL        string
	accountCountry string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.PayeeRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payee repo required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	country := strings.ToUpper(strings.TrimSpace(params.AccountCountry))
	if country == "" {
		country = "IT"
	}
	return &Service{
		payeeRepo:      params.PayeeRepo,
		userRepo:       params.UserRepo,
		stripe:         params.StripeClient,
		txRunner:       params.TransactionRunner,
		logg:           params.Logger,
		baseURL:        strings.TrimRight(params.BaseURL, "/"),
		accountCountry: country,
	}, nil
}

// OnboardingResult is the payload returned to the onboarding caller.
type OnboardingResult struct {
	PayeeAccountID  uuid.UUID                `json:"payee_account_id"`
	StripeAccountID string                   `json:"stripe_account_id"`
	Status          enums.PayeeAccountStatus `json:"status"`
	AccountLinkURL  string                   `json:"account_link_url"`
}

// StartOnboarding gets or creates the jeweler's payee account, provisions the
// Stripe Express account on first call, and returns a fresh account-link URL.
func (s *Service) StartOnboarding(ctx context.Context, jewelerID uuid.UUID) (*OnboardingResult, error) {
	if jewelerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jeweler id is required")
	}

	user, err := s.userRepo.FindByID(ctx, jewelerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load jeweler")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "jeweler not found")
	}

	payee, err := s.payeeRepo.FindByJewelerID(ctx, jewelerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payee account")
	}
	if payee == nil {
		payee = &models.PayeeAccount{
			JewelerID: jewelerID,
			Status:    enums.PayeeAccountStatusPending,
			Country:   &s.accountCountry,
			Currency:  "EUR",
		}
		if err := s.payeeRepo.Create(ctx, payee); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payee account")
		}
	}

	if payee.StripeAccountID == nil || *payee.StripeAccountID == "" {
		acct, err := s.stripe.CreateAccount(ctx, s.buildAccountParams(user))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create connect account")
		}
		if txErr := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			payee.StripeAccountID = &acct.ID
			if err := s.payeeRepo.WithTx(tx).Update(ctx, payee); err != nil {
				return err
			}
			user.StripeAccountID = &acct.ID
			return s.userRepo.WithTx(tx).Update(ctx, user)
		}); txErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "persist connect account id")
		}
	}

	link, err := s.stripe.CreateAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    payee.StripeAccountID,
		RefreshURL: stripe.String(s.baseURL + onboardingRefreshPath),
		ReturnURL:  stripe.String(s.baseURL + onboardingReturnPath),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create account link")
	}

	ctx = s.logg.WithPayeeID(ctx, payee.ID.String())
	s.logg.Info(ctx, "onboarding link issued")

	return &OnboardingResult{
		PayeeAccountID:  payee.ID,
		StripeAccountID: *payee.StripeAccountID,
		Status:          payee.Status,
		AccountLinkURL:  link.URL,
	}, nil
}

// StatusResult reports the synced capability state after an onboarding return.
type StatusResult struct {
	PayeeAccountID      uuid.UUID                `json:"payee_account_id"`
	StripeAccountID     string                   `json:"stripe_account_id"`
	Status              enums.PayeeAccountStatus `json:"status"`
	OnboardingCompleted bool                     `json:"onboarding_completed"`
	ChargesEnabled      bool                     `json:"charges_enabled"`
	PayoutsEnabled      bool                     `json:"payouts_enabled"`
}

// CompleteOnboarding re-fetches the provider account after the hosted flow
// returns and applies the capability sync.
func (s *Service) CompleteOnboarding(ctx context.Context, jewelerID uuid.UUID) (*StatusResult, error) {
	if jewelerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jeweler id is required")
	}

	payee, err := s.payeeRepo.FindByJewelerID(ctx, jewelerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payee account")
	}
	if payee == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payee account not found")
	}
	if payee.StripeAccountID == nil || *payee.StripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "onboarding has not started")
	}

	acct, err := s.stripe.GetAccount(ctx, *payee.StripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "fetch connect account")
	}

	if err := s.syncPayee(ctx, payee, SnapshotFromAccount(acct)); err != nil {
		return nil, err
	}

	return &StatusResult{
		PayeeAccountID:      payee.ID,
		StripeAccountID:     *payee.StripeAccountID,
		Status:              payee.Status,
		OnboardingCompleted: payee.OnboardingCompleted,
		ChargesEnabled:      payee.ChargesEnabled,
		PayoutsEnabled:      payee.PayoutsEnabled,
	}, nil
}

// SyncAccount applies a provider account snapshot delivered out of band
// (account.updated webhook). A snapshot for an unknown account is logged and
// swallowed so the provider does not redeliver it forever.
func (s *Service) SyncAccount(ctx context.Context, snap AccountSnapshot) error {
	if snap.AccountID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	payee, err := s.payeeRepo.FindByStripeAccountID(ctx, snap.AccountID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payee account")
	}
	if payee == nil {
		s.logg.Warn(ctx, fmt.Sprintf("account update for unknown connect account %s ignored", snap.AccountID))
		return nil
	}

	return s.syncPayee(ctx, payee, snap)
}

// syncPayee recomputes capability fields and writes through the denormalized
// owner columns in a single transaction.
func (s *Service) syncPayee(ctx context.Context, payee *models.PayeeAccount, snap AccountSnapshot) error {
	payee.ChargesEnabled = snap.ChargesEnabled
	payee.PayoutsEnabled = snap.PayoutsEnabled
	payee.OnboardingCompleted = snap.DetailsSubmitted
	if snap.Country != "" {
		country := snap.Country
		payee.Country = &country
	}
	if snap.DefaultCurrency != "" {
		payee.Currency = snap.DefaultCurrency
	}
	payee.Status = enums.DerivePayeeAccountStatus(snap.ChargesEnabled, snap.PayoutsEnabled, snap.DetailsSubmitted)

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payeeRepo.WithTx(tx).Update(ctx, payee); err != nil {
			return err
		}

		userRepo := s.userRepo.WithTx(tx)
		user, err := userRepo.FindByID(ctx, payee.JewelerID)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		user.StripeAccountID = payee.StripeAccountID
		user.StripeOnboardingCompleted = payee.OnboardingCompleted
		return userRepo.Update(ctx, user)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist account sync")
	}

	ctx = s.logg.WithPayeeID(ctx, payee.ID.String())
	s.logg.Info(ctx, fmt.Sprintf("payee account synced to %s", payee.Status))
	return nil
}

func (s *Service) buildAccountParams(user *models.User) *stripe.AccountParams {
	return &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(s.accountCountry),
		Email:   stripe.String(user.Email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{
				Requested: stripe.Bool(true),
			},
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
		BusinessProfile: &stripe.AccountBusinessProfileParams{
			Name: stripe.String(user.DisplayName()),
		},
	}
}
