package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/api/responses"
	"github.com/mondodoro/mondodoro-backend/api/validators"
	"github.com/mondodoro/mondodoro-backend/pkg/fees"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
)

type splitRequest struct {
	TargetAmount    decimal.Decimal `json:"target_amount" validate:"required"`
	NumContributors int             `json:"num_contributors" validate:"required,min=1"`
	DomesticCard    bool            `json:"domestic_card"`
	IncludeFees     bool            `json:"include_fees"`
}

// SplitFees quotes a per-person share for splitting a target amount across
// a group, with processor fees optionally rolled into each share.
func SplitFees(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload splitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fees.SplitCollection(payload.TargetAmount, payload.NumContributors, payload.DomesticCard, payload.IncludeFees)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
