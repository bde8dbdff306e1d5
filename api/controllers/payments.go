package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mondodoro/mondodoro-backend/api/responses"
	"github.com/mondodoro/mondodoro-backend/api/validators"
	"github.com/mondodoro/mondodoro-backend/internal/contributions"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

type checkoutSessionRequest struct {
	ContributionID uuid.UUID `json:"contribution_id" validate:"required,uuid4"`
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// CreateCheckoutSession opens (or re-serves) the hosted payment page for a
// pending contribution. Repeat calls return the same open session.
func CreateCheckoutSession(svc *contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contribution service unavailable"))
			return
		}

		var payload checkoutSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateCheckoutSession(r.Context(), payload.ContributionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// ConfirmPayment reconciles a checkout session against the provider. It is a
// fallback for the success redirect; the webhook remains the source of truth.
func ConfirmPayment(svc *contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contribution service unavailable"))
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmPayment(r.Context(), payload.SessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
