package billing

import "time"

// TalentEarning is the payout owed to the talent of a completed order.
type TalentEarning struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   string  `gorm:"type:uuid;not null;uniqueIndex:idx_talent_earnings_order" json:"order_id"`
	TalentID  string  `gorm:"type:uuid;not null;index" json:"talent_id"`
	AmountEUR float64 `json:"amount_eur"`
	Status    string  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt time.Time
}
