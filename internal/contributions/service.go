package contributions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/internal/giftlists"
	"github.com/mondodoro/mondodoro-backend/internal/payees"
	"github.com/mondodoro/mondodoro-backend/pkg/config"
	"github.com/mondodoro/mondodoro-backend/pkg/db"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/fees"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
	"github.com/mondodoro/mondodoro-backend/pkg/metrics"
)

const (
	// Redirect targets carry the gift-list id so the frontend can route the
	// payer back to the list without an extra lookup.
	checkoutSuccessPathFmt = "/gift-lists/%s/contributions/success?session_id={CHECKOUT_SESSION_ID}"
	checkoutCancelPathFmt  = "/gift-lists/%s/contributions/cancel"

	openAttemptConstraint = "idx_payment_attempts_open_contribution"

	sessionCacheTTL = 30 * time.Minute
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionCache is the optional redis fast path for open checkout sessions.
type sessionCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(contributionID string) string
}

type ServiceParams struct {
	Repo              Repository
	GiftListRepo      giftlists.Repository
	PayeeRepo         payees.Repository
	StripeClient      CheckoutClient
	TransactionRunner txRunner
	Logger            *logger.Logger
	Platform          config.PlatformConfig
	Metrics           *metrics.PaymentMetrics
	Cache             sessionCache
	BaseURL           string
}

type Service struct {
	repo         Repository
	giftListRepo giftlists.Repository
	payeeRepo    payees.Repository
	stripe       CheckoutClient
	txRunner     txRunner
	logg         *logger.Logger
	platform     config.PlatformConfig
	metrics      *metrics.PaymentMetrics
	cache        sessionCache
	baseURL      string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "contribution repo required")
	}
	if params.GiftListRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gift list repo required")
	}
	if params.PayeeRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payee repo required")
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
	return &Service{
		repo:         params.Repo,
		giftListRepo: params.GiftListRepo,
		payeeRepo:    params.PayeeRepo,
		stripe:       params.StripeClient,
		txRunner:     params.TransactionRunner,
		logg:         params.Logger,
		platform:     params.Platform,
		metrics:      params.Metrics,
		cache:        params.Cache,
		baseURL:      strings.TrimRight(params.BaseURL, "/"),
	}, nil
}

// CreateContributionInput carries a guest's pledge.
type CreateContributionInput struct {
	GiftListID  uuid.UUID
	ProductID   *uuid.UUID
	Name        string
	Email       string
	Message     *string
	IsAnonymous bool
	Amount      decimal.Decimal
}

// CreateContribution records a pending pledge after validating it against the
// gift list and the configured contribution bounds.
func (s *Service) CreateContribution(ctx context.Context, input CreateContributionInput) (*models.Contribution, error) {
	list, err := s.giftListRepo.FindByID(ctx, input.GiftListID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift list")
	}
	if list == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift list not found")
	}
	if list.Status != enums.GiftListStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "gift list is not accepting contributions")
	}
	if input.IsAnonymous && !list.AllowAnonymousContributions {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "anonymous contributions are not allowed for this list")
	}

	amount := input.Amount
	if input.ProductID != nil {
		product, err := s.giftListRepo.FindProductByID(ctx, *input.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product == nil || product.GiftListID != list.ID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found on this gift list")
		}
		if product.Status != enums.GiftListProductStatusAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is no longer available")
		}
		amount = product.Price
	} else if list.FixedContributionAmount != nil && !amount.Equal(*list.FixedContributionAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("this list requires a fixed contribution of %s", list.FixedContributionAmount.StringFixed(2)))
	}

	if !fees.WithinContributionBounds(amount, s.platform) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf(
			"amount must be between %s and %s",
			s.platform.MinContribution.StringFixed(2),
			s.platform.MaxContribution.StringFixed(2)))
	}

	contribution := &models.Contribution{
		GiftListID:         list.ID,
		ProductID:          input.ProductID,
		ContributorName:    input.Name,
		ContributorEmail:   input.Email,
		ContributorMessage: input.Message,
		IsAnonymous:        input.IsAnonymous,
		Amount:             amount,
		PaymentStatus:      enums.ContributionStatusPending,
	}
	if err := s.repo.CreateContribution(ctx, contribution); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contribution")
	}

	ctx = s.logg.WithContributionID(ctx, contribution.ID.String())
	s.logg.Info(ctx, "contribution recorded")
	return contribution, nil
}

// CheckoutResult is the payload handed back to the contributor's client.
type CheckoutResult struct {
	ContributionID uuid.UUID        `json:"contribution_id"`
	SessionID      string           `json:"session_id"`
	CheckoutURL    string           `json:"checkout_url"`
	Amount         decimal.Decimal  `json:"amount"`
	ApplicationFee *decimal.Decimal `json:"application_fee,omitempty"`
	Reused         bool             `json:"reused"`
}

// CreateCheckoutSession builds the hosted checkout for a pending contribution.
// Re-entry returns the existing open attempt instead of a second charge path;
// two racing calls serialize on the open-attempt unique index and the loser
// adopts the winner's session.
func (s *Service) CreateCheckoutSession(ctx context.Context, contributionID uuid.UUID) (*CheckoutResult, error) {
	if contributionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution id is required")
	}
	ctx = s.logg.WithContributionID(ctx, contributionID.String())

	contribution, err := s.repo.FindContributionByID(ctx, contributionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contribution")
	}
	if contribution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contribution not found")
	}
	if contribution.PaymentStatus.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contribution is already settled")
	}

	if open, err := s.repo.FindOpenAttempt(ctx, contributionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up open attempt")
	} else if open != nil {
		s.metrics.IncCheckoutSession(metrics.OutcomeReused)
		return resultFromAttempt(contribution, open, true), nil
	}

	list, err := s.giftListRepo.FindByID(ctx, contribution.GiftListID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift list")
	}
	if list == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift list not found")
	}

	payee, err := s.payeeRepo.FindByJewelerID(ctx, list.JewelerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payee account")
	}

	applicationFee := s.applicationFeeFor(contribution, payee)
	params := s.buildSessionParams(contribution, list, payee, applicationFee)

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		s.metrics.IncCheckoutSession(metrics.OutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create checkout session")
	}

	attempt := &models.PaymentAttempt{
		ContributionID:       contribution.ID,
		StripeSessionID:      session.ID,
		Amount:               contribution.Amount,
		Currency:             "EUR",
		Status:               enums.PaymentAttemptStatusPending,
		CheckoutURL:          session.URL,
		ApplicationFeeAmount: applicationFee,
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		if db.IsUniqueViolation(err, openAttemptConstraint) {
			// Lost the race; the stray provider session expires on its own.
			open, readErr := s.repo.FindOpenAttempt(ctx, contributionID)
			if readErr == nil && open != nil {
				s.metrics.IncCheckoutSession(metrics.OutcomeReused)
				return resultFromAttempt(contribution, open, true), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment attempt")
	}

	s.cacheSession(ctx, contribution.ID, session.ID)
	s.metrics.IncCheckoutSession(metrics.OutcomeCreated)
	s.logg.Info(ctx, fmt.Sprintf("checkout session %s created", session.ID))

	return resultFromAttempt(contribution, attempt, false), nil
}

// ConfirmResult reports the reconciled payment state.
type ConfirmResult struct {
	ContributionID uuid.UUID                  `json:"contribution_id"`
	SessionID      string                     `json:"session_id"`
	AttemptStatus  enums.PaymentAttemptStatus `json:"attempt_status"`
	PaymentStatus  enums.ContributionStatus   `json:"payment_status"`
}

// ConfirmPayment re-fetches the checkout session from the provider and applies
// the same transition the webhook would. Safe to call any number of times.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	attempt, err := s.repo.FindAttemptByStripeSessionID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	if attempt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}

	session, err := s.stripe.GetSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "fetch checkout session")
	}

	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		intentID := ""
		if session.PaymentIntent != nil {
			intentID = session.PaymentIntent.ID
		}
		if err := s.ApplySessionCompleted(ctx, sessionID, intentID); err != nil {
			return nil, err
		}
	}

	attempt, err = s.repo.FindAttemptByStripeSessionID(ctx, sessionID)
	if err != nil || attempt == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment attempt")
	}
	contribution, err := s.repo.FindContributionByID(ctx, attempt.ContributionID)
	if err != nil || contribution == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload contribution")
	}

	return &ConfirmResult{
		ContributionID: contribution.ID,
		SessionID:      sessionID,
		AttemptStatus:  attempt.Status,
		PaymentStatus:  contribution.PaymentStatus,
	}, nil
}

// ApplySessionCompleted settles the attempt and its contribution in one
// transaction. Replays are no-ops once the attempt has succeeded.
func (s *Service) ApplySessionCompleted(ctx context.Context, sessionID, paymentIntentID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindAttemptByStripeSessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if attempt == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found for session")
		}
		return s.settleAttempt(ctx, tx, attempt, paymentIntentID)
	})
}

// ApplyPaymentIntentSucceeded settles via the payment-intent correlation used
// by payment_intent.succeeded events.
func (s *Service) ApplyPaymentIntentSucceeded(ctx context.Context, paymentIntentID string) error {
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindAttemptByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		if attempt == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found for intent")
		}
		return s.settleAttempt(ctx, tx, attempt, paymentIntentID)
	})
}

// ApplyPaymentIntentFailed marks the attempt and its contribution failed.
// Completed contributions are never demoted.
func (s *Service) ApplyPaymentIntentFailed(ctx context.Context, paymentIntentID string) error {
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		attempt, err := repo.FindAttemptByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		if attempt == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found for intent")
		}
		if attempt.Status.IsTerminal() {
			return nil
		}

		now := time.Now().UTC()
		attempt.Status = enums.PaymentAttemptStatusFailed
		attempt.UpdatedAt = now
		if err := repo.UpdateAttempt(ctx, attempt); err != nil {
			return err
		}

		contribution, err := repo.FindContributionByID(ctx, attempt.ContributionID)
		if err != nil {
			return err
		}
		if contribution == nil || contribution.PaymentStatus.IsTerminal() {
			return nil
		}
		contribution.PaymentStatus = enums.ContributionStatusFailed
		contribution.UpdatedAt = now
		if err := repo.UpdateContribution(ctx, contribution); err != nil {
			return err
		}

		s.dropCachedSession(ctx, attempt.ContributionID)
		return nil
	})
}

// settleAttempt applies the success transition inside the caller's transaction.
func (s *Service) settleAttempt(ctx context.Context, tx *gorm.DB, attempt *models.PaymentAttempt, paymentIntentID string) error {
	if attempt.Status == enums.PaymentAttemptStatusSucceeded {
		return nil
	}
	if attempt.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("attempt already %s", attempt.Status))
	}

	repo := s.repo.WithTx(tx)
	now := time.Now().UTC()

	attempt.Status = enums.PaymentAttemptStatusSucceeded
	if paymentIntentID != "" {
		attempt.StripePaymentIntentID = &paymentIntentID
	}
	attempt.UpdatedAt = now
	if err := repo.UpdateAttempt(ctx, attempt); err != nil {
		return err
	}

	contribution, err := repo.FindContributionByID(ctx, attempt.ContributionID)
	if err != nil {
		return err
	}
	if contribution == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contribution not found for attempt")
	}
	if !contribution.PaymentStatus.IsTerminal() {
		contribution.PaymentStatus = enums.ContributionStatusCompleted
		contribution.CompletedAt = &now
		contribution.UpdatedAt = now
		if err := repo.UpdateContribution(ctx, contribution); err != nil {
			return err
		}
		if contribution.ProductID != nil {
			if err := s.giftListRepo.WithTx(tx).MarkProductPurchased(ctx, *contribution.ProductID, contribution.DisplayName(), now); err != nil {
				return err
			}
		}
	}

	s.dropCachedSession(ctx, attempt.ContributionID)

	ctx = s.logg.WithContributionID(ctx, contribution.ID.String())
	s.logg.Info(ctx, "contribution settled")
	return nil
}

// applicationFeeFor returns the platform commission, only when the funds can
// actually be routed to an enabled connected account.
func (s *Service) applicationFeeFor(contribution *models.Contribution, payee *models.PayeeAccount) *decimal.Decimal {
	if payee == nil || !payee.ChargesEnabled || payee.StripeAccountID == nil || *payee.StripeAccountID == "" {
		return nil
	}
	fee := fees.ComputePlatformFee(contribution.Amount, s.platform)
	return &fee
}

func (s *Service) buildSessionParams(contribution *models.Contribution, list *models.GiftList, payee *models.PayeeAccount, applicationFee *decimal.Decimal) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("eur"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Contribution to %s", list.Title)),
					},
					UnitAmount: stripe.Int64(toMinorUnits(contribution.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(contribution.ContributorEmail),
		SuccessURL:    stripe.String(s.baseURL + fmt.Sprintf(checkoutSuccessPathFmt, list.ID)),
		CancelURL:     stripe.String(s.baseURL + fmt.Sprintf(checkoutCancelPathFmt, list.ID)),
	}
	params.AddMetadata("contribution_id", contribution.ID.String())
	params.AddMetadata("gift_list_id", list.ID.String())

	// Split routing only when the payee can take charges; otherwise the full
	// amount stays on the platform account for later manual settlement.
	if applicationFee != nil && payee != nil && payee.StripeAccountID != nil {
		params.AddMetadata("payee_id", payee.ID.String())
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(toMinorUnits(*applicationFee)),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(*payee.StripeAccountID),
			},
		}
	}
	return params
}

func (s *Service) cacheSession(ctx context.Context, contributionID uuid.UUID, sessionID string) {
	if s.cache == nil {
		return
	}
	key := s.cache.CheckoutSessionKey(contributionID.String())
	if err := s.cache.Set(ctx, key, sessionID, sessionCacheTTL); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("caching checkout session failed: %v", err))
	}
}

func (s *Service) dropCachedSession(ctx context.Context, contributionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	key := s.cache.CheckoutSessionKey(contributionID.String())
	if err := s.cache.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("dropping cached checkout session failed: %v", err))
	}
}

func resultFromAttempt(contribution *models.Contribution, attempt *models.PaymentAttempt, reused bool) *CheckoutResult {
	return &CheckoutResult{
		ContributionID: contribution.ID,
		SessionID:      attempt.StripeSessionID,
		CheckoutURL:    attempt.CheckoutURL,
		Amount:         attempt.Amount,
		ApplicationFee: attempt.ApplicationFeeAmount,
		Reused:         reused,
	}
}

// toMinorUnits converts a euro amount to cents without float arithmetic.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
