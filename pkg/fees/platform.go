package fees

import (
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/pkg/config"
)

// ComputePlatformFee returns the platform commission for a contribution:
// amount x percentage/100 + fixed. This is the marketplace application fee
// and is independent of the card-network processor fee; when both apply they
// compose additively.
//
// The percentage component truncates at the cent, matching the minor-unit
// arithmetic used when the fee is attached to a checkout session.
func ComputePlatformFee(amount decimal.Decimal, cfg config.PlatformConfig) decimal.Decimal {
	percentage := amount.Mul(cfg.FeePercentage).Div(oneHundred).RoundDown(currencyScale)
	return percentage.Add(cfg.FeeFixed)
}

// WithinContributionBounds reports whether the amount satisfies the configured
// [min, max] contribution window.
func WithinContributionBounds(amount decimal.Decimal, cfg config.PlatformConfig) bool {
	return amount.GreaterThanOrEqual(cfg.MinContribution) &&
		amount.LessThanOrEqual(cfg.MaxContribution)
}
