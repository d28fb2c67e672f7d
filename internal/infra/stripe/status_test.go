package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentStatus(t *testing.T) {
	tests := map[string]string{
		"paid":                PaymentPaid,
		" PAID ":              PaymentPaid,
		"no_payment_required": PaymentPaid,
		"unpaid":              PaymentPending,
		"":                    PaymentPending,
		"expired":             PaymentFailed,
		"refunded":            PaymentRefunded,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePaymentStatus(in), "input %q", in)
	}
}
