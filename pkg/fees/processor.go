package fees

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/mondodoro/mondodoro-backend/pkg/errors"
)

// Card-network rates for EUR charges. Domestic means an EU-issued card.
var (
	domesticCardRate  = decimal.RequireFromString("0.014")
	domesticCardFixed = decimal.RequireFromString("0.25")
	intlCardRate      = decimal.RequireFromString("0.029")
	intlCardFixed     = decimal.RequireFromString("0.25")
	oneHundred        = decimal.NewFromInt(100)
	one               = decimal.NewFromInt(1)
	currencyScale     = int32(2)
)

// ProcessorFee breaks down the card-network cost of a single charge.
type ProcessorFee struct {
	Total      decimal.Decimal
	Percentage decimal.Decimal
	Fixed      decimal.Decimal
}

func cardRates(domesticCard bool) (rate, fixed decimal.Decimal) {
	if domesticCard {
		return domesticCardRate, domesticCardFixed
	}
	return intlCardRate, intlCardFixed
}

// ComputeProcessorFee returns the processor fee for the amount. The percentage
// component is kept at full precision so Total == Percentage + Fixed exactly.
func ComputeProcessorFee(amount decimal.Decimal, domesticCard bool) ProcessorFee {
	rate, fixed := cardRates(domesticCard)
	percentage := amount.Mul(rate)
	return ProcessorFee{
		Total:      percentage.Add(fixed),
		Percentage: percentage,
		Fixed:      fixed,
	}
}

// NetAfterProcessorFee returns what the payee receives from a gross charge.
func NetAfterProcessorFee(gross decimal.Decimal, domesticCard bool) decimal.Decimal {
	return gross.Sub(ComputeProcessorFee(gross, domesticCard).Total)
}

// GrossNeededForNet returns the gross amount to charge so the payee nets at
// least targetNet: (target + fixed) / (1 - rate), rounded up to the cent.
// Rounding up is load-bearing; the payee must never receive less than target.
func GrossNeededForNet(targetNet decimal.Decimal, domesticCard bool) decimal.Decimal {
	rate, fixed := cardRates(domesticCard)
	gross := targetNet.Add(fixed).Div(one.Sub(rate))
	return gross.RoundUp(currencyScale)
}

// SplitResult describes how a collection target divides across contributors.
type SplitResult struct {
	TargetAmount     decimal.Decimal `json:"target_amount"`
	PerPersonAmount  decimal.Decimal `json:"per_person_amount"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	NetReceived      decimal.Decimal `json:"net_received"`
	FeePercentage    decimal.Decimal `json:"fee_percentage"`
	SurplusOrDeficit decimal.Decimal `json:"surplus_or_deficit"`
	Contributors     int             `json:"num_contributors"`
	IncludeFees      bool            `json:"include_fees"`
}

// SplitCollection computes the per-contributor share for a collection target.
// Shares round up to the cent, so TotalCollected is always an exact multiple
// of PerPersonAmount and never undershoots the target.
func SplitCollection(target decimal.Decimal, contributors int, domesticCard, includeFees bool) (SplitResult, error) {
	if contributors <= 0 {
		return SplitResult{}, pkgerrors.New(pkgerrors.CodeValidation, "contributor count must be positive")
	}
	if !target.IsPositive() {
		return SplitResult{}, pkgerrors.New(pkgerrors.CodeValidation, "target amount must be positive")
	}

	n := decimal.NewFromInt(int64(contributors))

	base := target
	if includeFees {
		base = GrossNeededForNet(target, domesticCard)
	}
	perPerson := base.Div(n).RoundUp(currencyScale)
	totalCollected := perPerson.Mul(n)

	fee := ComputeProcessorFee(totalCollected, domesticCard)
	netReceived := totalCollected.Sub(fee.Total)

	return SplitResult{
		TargetAmount:     target,
		PerPersonAmount:  perPerson,
		TotalCollected:   totalCollected,
		TotalFees:        fee.Total,
		NetReceived:      netReceived,
		FeePercentage:    fee.Total.Div(totalCollected).Mul(oneHundred).Round(currencyScale),
		SurplusOrDeficit: netReceived.Sub(target),
		Contributors:     contributors,
		IncludeFees:      includeFees,
	}, nil
}
