package billing

import "time"

// Payment records a confirmed charge for an order.
type Payment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         string    `gorm:"type:uuid;not null;index" json:"order_id"`
	StripeSessionID *string   `gorm:"uniqueIndex" json:"stripe_session_id,omitempty"`
	AmountEUR       float64   `json:"amount_eur"`
	Status          string    `json:"status"`
	Source          string    `gorm:"type:varchar(20);not null;default:'stripe'" json:"source"`
	ReceiptURL      *string   `json:"receipt_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
