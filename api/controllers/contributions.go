package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/api/responses"
	"github.com/mondodoro/mondodoro-backend/api/validators"
	"github.com/mondodoro/mondodoro-backend/internal/contributions"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

type createContributionRequest struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty" validate:"omitempty,uuid4"`
	Name        string          `json:"name" validate:"required,max=255"`
	Email       string          `json:"email" validate:"required,email"`
	Message     *string         `json:"message,omitempty" validate:"omitempty,max=1000"`
	IsAnonymous bool            `json:"is_anonymous"`
	Amount      decimal.Decimal `json:"amount"`
}

type contributionResponse struct {
	ID            uuid.UUID       `json:"id"`
	GiftListID    uuid.UUID       `json:"gift_list_id"`
	ProductID     *uuid.UUID      `json:"product_id,omitempty"`
	Name          string          `json:"name"`
	Message       *string         `json:"message,omitempty"`
	IsAnonymous   bool            `json:"is_anonymous"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"payment_status"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateContribution registers a guest's pledge against a gift list. The
// pledge stays pending until its checkout session settles.
func CreateContribution(svc *contributions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contribution service unavailable"))
			return
		}

		giftListID, err := uuid.Parse(chi.URLParam(r, "giftListID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid gift list id"))
			return
		}

		var payload createContributionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contribution, err := svc.CreateContribution(r.Context(), contributions.CreateContributionInput{
			GiftListID:  giftListID,
			ProductID:   payload.ProductID,
			Name:        payload.Name,
			Email:       payload.Email,
			Message:     payload.Message,
			IsAnonymous: payload.IsAnonymous,
			Amount:      payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newContributionResponse(contribution))
	}
}

func newContributionResponse(c *models.Contribution) contributionResponse {
	if c == nil {
		return contributionResponse{}
	}
	return contributionResponse{
		ID:            c.ID,
		GiftListID:    c.GiftListID,
		ProductID:     c.ProductID,
		Name:          c.DisplayName(),
		Message:       c.ContributorMessage,
		IsAnonymous:   c.IsAnonymous,
		Amount:        c.Amount,
		PaymentStatus: string(c.PaymentStatus),
		CompletedAt:   c.CompletedAt,
		CreatedAt:     c.CreatedAt,
	}
}
