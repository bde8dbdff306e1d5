package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mondodoro/mondodoro-backend/api/responses"
	"github.com/mondodoro/mondodoro-backend/internal/payees"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

const jewelerIDHeader = "X-Jeweler-ID"

func jewelerIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(jewelerIDHeader)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "jeweler id header required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid jeweler id")
	}
	return id, nil
}

// StartPayeeOnboarding provisions the jeweler's payout account and hands back
// a one-time hosted onboarding link.
func StartPayeeOnboarding(svc *payees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payee service unavailable"))
			return
		}

		jewelerID, err := jewelerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.StartOnboarding(r.Context(), jewelerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CompletePayeeOnboarding is the return landing for the hosted flow. It pulls
// the live account state instead of trusting the redirect.
func CompletePayeeOnboarding(svc *payees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payee service unavailable"))
			return
		}

		jewelerID, err := jewelerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CompleteOnboarding(r.Context(), jewelerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
