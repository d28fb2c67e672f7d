package stripewebhooks

import (
	"context"
	"errors"
	"fmt"

	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/workflow"
	stripestatus "studio-orders/internal/infra/stripe"
	"studio-orders/internal/production"

	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

var systemActor = production.Actor{Role: workflow.RoleSystem}

// handleCheckoutSessionCompleted records the payment and moves the order to
// paid. Redeliveries of the same session are acknowledged without effect.
func (h *Handler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CheckoutSession) (string, error) {
	status := stripestatus.NormalizePaymentStatus(string(session.PaymentStatus))
	if status != stripestatus.PaymentPaid {
		// async methods complete later with async_payment_succeeded
		return "awaiting_payment", nil
	}

	orderID := orderIDFromSession(session)
	if orderID == "" {
		h.log.Warn("checkout session without order reference", "session", session.ID)
		return "ignored", nil
	}

	if _, err := h.svc.GetOrder(ctx, systemActor, orderID); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			h.log.Warn("checkout session for unknown order", "order", orderID, "session", session.ID)
			return "ignored", nil
		}
		return "", err
	}

	sessionID := session.ID
	payment := billing.Payment{
		OrderID:         orderID,
		StripeSessionID: &sessionID,
		AmountEUR:       float64(session.AmountTotal) / 100,
		Status:          status,
		Source:          "stripe",
	}
	err := h.db.WithContext(ctx).
		Where(billing.Payment{StripeSessionID: &sessionID}).
		FirstOrCreate(&payment).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", fmt.Errorf("record payment: %w", err)
	}

	o, err := h.svc.Transition(ctx, orderID, systemActor, workflow.ActionConfirmPayment, workflow.Payload{})
	switch {
	case err == nil:
		h.log.Info("payment confirmed", "order", o.OrderNumber, "session", session.ID)
		return "confirmed", nil
	case errors.Is(err, orders.ErrInvalidTransition):
		return "already_confirmed", nil
	default:
		return "", err
	}
}

func orderIDFromSession(s *stripe.CheckoutSession) string {
	if s.Metadata != nil && s.Metadata["order_id"] != "" {
		return s.Metadata["order_id"]
	}
	return s.ClientReferenceID
}
