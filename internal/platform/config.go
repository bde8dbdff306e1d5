package platform

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mondodoro/mondodoro-backend/pkg/config"
	"github.com/mondodoro/mondodoro-backend/pkg/db/models"
)

const feeConfigRowID = 1

// EnsureFeeConfig load-or-creates the singleton commission audit row and
// refreshes it with the values active for this boot. The row is informational;
// fee math always reads config.PlatformConfig.
func EnsureFeeConfig(ctx context.Context, db *gorm.DB, cfg config.PlatformConfig) (*models.PlatformFeeConfig, error) {
	var row models.PlatformFeeConfig
	err := db.WithContext(ctx).First(&row, feeConfigRowID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.PlatformFeeConfig{
			ID:              feeConfigRowID,
			FeePercentage:   cfg.FeePercentage,
			FeeFixed:        cfg.FeeFixed,
			MinContribution: cfg.MinContribution,
			MaxContribution: cfg.MaxContribution,
		}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	case err != nil:
		return nil, err
	}

	row.FeePercentage = cfg.FeePercentage
	row.FeeFixed = cfg.FeeFixed
	row.MinContribution = cfg.MinContribution
	row.MaxContribution = cfg.MaxContribution
	if err := db.WithContext(ctx).Save(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
