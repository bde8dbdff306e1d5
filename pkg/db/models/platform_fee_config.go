package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformFeeConfig is the administrative audit record of the platform
// commission settings. The live values are loaded from the environment at
// startup (config.PlatformConfig); this row exists so operators can see what
// was active and is load-or-created with a fixed primary key, never deleted.
type PlatformFeeConfig struct {
	ID uint `gorm:"primaryKey"`

	FeePercentage   decimal.Decimal `gorm:"column:fee_percentage;type:numeric(5,2);not null"`
	FeeFixed        decimal.Decimal `gorm:"column:fee_fixed;type:numeric(10,2);not null"`
	MinContribution decimal.Decimal `gorm:"column:min_contribution;type:numeric(10,2);not null"`
	MaxContribution decimal.Decimal `gorm:"column:max_contribution;type:numeric(10,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
