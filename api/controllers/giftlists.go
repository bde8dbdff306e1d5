package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/api/responses"
	"github.com/mondodoro/mondodoro-backend/internal/giftlists"
	"github.com/mondodoro/mondodoro-backend/pkg/enums"
	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

type giftListResponse struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Description     *string          `json:"description,omitempty"`
	Type            string           `json:"type"`
	Status          string           `json:"status"`
	TargetAmount    decimal.Decimal  `json:"target_amount"`
	CollectedAmount decimal.Decimal  `json:"collected_amount"`
	Remaining       decimal.Decimal  `json:"remaining"`
	FixedAmount     *decimal.Decimal `json:"fixed_contribution_amount,omitempty"`
}

// GiftListProgress reports a campaign and its collected total. The total is
// always computed from completed contributions, never stored.
func GiftListProgress(repo giftlists.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gift list repository unavailable"))
			return
		}

		giftListID, err := uuid.Parse(chi.URLParam(r, "giftListID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid gift list id"))
			return
		}

		list, err := repo.FindByID(r.Context(), giftListID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift list"))
			return
		}
		if list == nil || !list.IsPublic || list.Status == enums.GiftListStatusDraft {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "gift list not found"))
			return
		}

		collected, err := repo.CollectedAmount(r.Context(), list.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum contributions"))
			return
		}

		remaining := list.TargetAmount.Sub(collected)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		responses.WriteSuccess(w, giftListResponse{
			ID:              list.ID,
			Title:           list.Title,
			Description:     list.Description,
			Type:            string(list.Type),
			Status:          string(list.Status),
			TargetAmount:    list.TargetAmount,
			CollectedAmount: collected,
			Remaining:       remaining,
			FixedAmount:     list.FixedContributionAmount,
		})
	}
}
