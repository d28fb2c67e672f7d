package plans

// Plan is a purchasable service package, mirrored from a one-time Stripe price.
type Plan struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `json:"name"`
	Line          Line    `gorm:"type:text;not null;index:idx_plans_line_tier,priority:1" json:"line"`
	Tier          string  `gorm:"column:tier;index:idx_plans_line_tier,priority:2" json:"tier"`
	PriceEUR      float64 `json:"price_eur"`
	StripePriceID string  `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_plans_stripe_price_id" json:"stripe_price_id"`
}
