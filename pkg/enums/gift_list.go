package enums

// GiftListStatus tracks the publication lifecycle of a gift list.
type GiftListStatus string

const (
	GiftListStatusDraft     GiftListStatus = "draft"
	GiftListStatusActive    GiftListStatus = "active"
	GiftListStatusCompleted GiftListStatus = "completed"
	GiftListStatusCancelled GiftListStatus = "cancelled"
)

// String implements fmt.Stringer.
func (g GiftListStatus) String() string {
	return string(g)
}

// GiftListType distinguishes money-collection campaigns from product lists.
type GiftListType string

const (
	GiftListTypeMoneyCollection GiftListType = "money_collection"
	GiftListTypeProductList     GiftListType = "product_list"
)

// String implements fmt.Stringer.
func (g GiftListType) String() string {
	return string(g)
}

// GiftListProductStatus tracks purchase state for product-list entries.
type GiftListProductStatus string

const (
	GiftListProductStatusAvailable GiftListProductStatus = "available"
	GiftListProductStatusReserved  GiftListProductStatus = "reserved"
	GiftListProductStatusPurchased GiftListProductStatus = "purchased"
)

// String implements fmt.Stringer.
func (g GiftListProductStatus) String() string {
	return string(g)
}
