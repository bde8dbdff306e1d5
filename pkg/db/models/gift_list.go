package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mondodoro/mondodoro-backend/pkg/enums"
)

// GiftList is a jeweler's campaign: either a money collection or a product list.
type GiftList struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	JewelerID   uuid.UUID          `gorm:"column:jeweler_id;type:uuid;not null;index"`
	Type        enums.GiftListType `gorm:"column:list_type;not null;default:'money_collection'"`
	Title       string             `gorm:"column:title;not null"`
	Description *string            `gorm:"column:description"`

	TargetAmount decimal.Decimal `gorm:"column:target_amount;type:numeric(10,2);not null"`

	// Money-collection settings
	FixedContributionAmount *decimal.Decimal `gorm:"column:fixed_contribution_amount;type:numeric(10,2)"`
	MaxContributors         *int             `gorm:"column:max_contributors"`

	Status                      enums.GiftListStatus `gorm:"column:status;not null;default:'draft'"`
	IsPublic                    bool                 `gorm:"column:is_public;not null;default:true"`
	AllowAnonymousContributions bool                 `gorm:"column:allow_anonymous_contributions;not null;default:true"`

	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// GiftListProduct is one purchasable entry in a product-list campaign.
type GiftListProduct struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GiftListID  uuid.UUID                   `gorm:"column:gift_list_id;type:uuid;not null;index"`
	Name        string                      `gorm:"column:name;not null"`
	Description *string                     `gorm:"column:description"`
	Price       decimal.Decimal             `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL    *string                     `gorm:"column:image_url"`
	Status      enums.GiftListProductStatus `gorm:"column:status;not null;default:'available'"`
	SortOrder   int                         `gorm:"column:sort_order;not null;default:0"`

	PurchasedBy *string    `gorm:"column:purchased_by"`
	PurchasedAt *time.Time `gorm:"column:purchased_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
