package plans

// TeamType maps a purchasable team tier to its Stripe price. Checkout
// only accepts price ids that exist here (allow-list), and the instance
// limit feeds the creation gate for active teams.
type TeamType struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	Description   string
	StripePriceID string `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_team_types_stripe_price_id"`

	// 0 means unlimited
	InstanceLimit int `gorm:"not null;default:0"`

	Order int `gorm:"not null;default:0"`
}
