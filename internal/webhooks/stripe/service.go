package stripewebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/internal/payees"
	"github.com/mondodoro/mondodoro-backend/pkg/db"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
	"github.com/mondodoro/mondodoro-backend/pkg/metrics"
)

const receiptEventIDConstraint = "webhook_receipts_stripe_event_id_key"

// Outcome tells the controller how an event was resolved.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// ledger is the settlement surface the processor dispatches into. The
// transitions behind it are transactional and replay-safe.
type ledger interface {
	ApplySessionCompleted(ctx context.Context, sessionID, paymentIntentID string) error
	ApplyPaymentIntentSucceeded(ctx context.Context, paymentIntentID string) error
	ApplyPaymentIntentFailed(ctx context.Context, paymentIntentID string) error
}

type accountSyncer interface {
	SyncAccount(ctx context.Context, snap payees.AccountSnapshot) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Receipts          ReceiptRepository
	Ledger            ledger
	Accounts          accountSyncer
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.PaymentMetrics
}

type Service struct {
	receipts ReceiptRepository
	ledger   ledger
	accounts accountSyncer
	txRunner txRunner
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Receipts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "receipt repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account syncer required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		receipts: params.Receipts,
		ledger:   params.Ledger,
		accounts: params.Accounts,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleEvent claims the event in the durable receipt table, dispatches it,
// and records the result. A failed dispatch leaves processed=false with the
// error annotated so the provider's redelivery can retry it.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event, payload []byte) (Outcome, error) {
	if event == nil || event.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe event id required")
	}
	ctx = s.logg.WithStripeEventID(ctx, event.ID)
	started := time.Now()

	receipt, duplicate, err := s.claimReceipt(ctx, event, payload)
	if err != nil {
		return "", err
	}
	if duplicate {
		s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeDuplicate)
		s.logg.Info(ctx, "event already processed, acknowledged")
		return OutcomeDuplicate, nil
	}

	handled, dispatchErr := s.dispatch(ctx, event)
	if dispatchErr != nil {
		s.recordFailure(ctx, receipt, dispatchErr)
		s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeFailed)
		return "", dispatchErr
	}

	receipt.Processed = true
	receipt.ErrorMessage = nil
	if err := s.receipts.Update(ctx, receipt); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark receipt processed")
	}

	s.metrics.ObserveWebhookDuration(string(event.Type), time.Since(started))
	if !handled {
		s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeIgnored)
		return OutcomeIgnored, nil
	}
	s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeProcessed)
	return OutcomeProcessed, nil
}

// claimReceipt inserts the receipt row or adopts an existing one. The unique
// index on the event id is the serialization point for concurrent deliveries.
func (s *Service) claimReceipt(ctx context.Context, event *stripe.Event, payload []byte) (*models.WebhookReceipt, bool, error) {
	receipt := &models.WebhookReceipt{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		Payload:       json.RawMessage(payload),
	}

	var duplicate bool
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.receipts.WithTx(tx)
		existing, err := repo.FindByEventID(ctx, event.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Processed {
				duplicate = true
				return nil
			}
			// Earlier delivery failed; retry against the same receipt.
			receipt = existing
			return nil
		}
		return repo.Create(ctx, receipt)
	})
	if err != nil {
		if !db.IsUniqueViolation(err, receiptEventIDConstraint) {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook receipt")
		}
		// Lost the insert race. Adopt the winner's receipt: if its dispatch
		// fails this delivery still retries instead of acking a duplicate.
		existing, findErr := s.receipts.FindByEventID(ctx, event.ID)
		if findErr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "claim webhook receipt")
		}
		if existing == nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook receipt")
		}
		if existing.Processed {
			return existing, true, nil
		}
		receipt = existing
	}
	return receipt, duplicate, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (bool, error) {
	if event.Data == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		intentID := ""
		if session.PaymentIntent != nil {
			intentID = session.PaymentIntent.ID
		}
		return true, s.ledger.ApplySessionCompleted(ctx, session.ID, intentID)

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return true, s.ledger.ApplyPaymentIntentSucceeded(ctx, intent.ID)

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return true, s.ledger.ApplyPaymentIntentFailed(ctx, intent.ID)

	case stripe.EventTypeAccountUpdated:
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account event")
		}
		return true, s.accounts.SyncAccount(ctx, payees.SnapshotFromAccount(&acct))

	default:
		// Acknowledged without side effects so the provider stops resending.
		return false, nil
	}
}

func (s *Service) recordFailure(ctx context.Context, receipt *models.WebhookReceipt, dispatchErr error) {
	msg := dispatchErr.Error()
	receipt.Processed = false
	receipt.ErrorMessage = &msg
	if err := s.receipts.Update(ctx, receipt); err != nil {
		s.logg.Error(ctx, "annotating failed receipt", err)
	}
}
