package stripe

import "strings"

// Payment statuses stored on billing.Payment.
const (
	PaymentPaid     = "paid"
	PaymentPending  = "pending"
	PaymentRefunded = "refunded"
	PaymentFailed   = "failed"
)

// NormalizePaymentStatus maps a Checkout Session payment_status (or a
// charge status) onto the statuses stored on payments.
func NormalizePaymentStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "succeeded", "no_payment_required":
		return PaymentPaid
	case "refunded":
		return PaymentRefunded
	case "failed", "canceled", "expired":
		return PaymentFailed
	default:
		return PaymentPending
	}
}
