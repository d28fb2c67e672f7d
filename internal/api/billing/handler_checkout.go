package billing

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	ordersapi "studio-orders/internal/api/orders"
	"studio-orders/internal/api/respond"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/production"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"gorm.io/gorm"
)

// SessionCreator is satisfied by *checkoutsession.Client.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewSessionClient returns a Stripe checkout client bound to key.
func NewSessionClient(key string) *checkoutsession.Client {
	return &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: key}
}

type Handler struct {
	svc      *production.Service
	db       *gorm.DB
	sessions SessionCreator
	appURL   string
}

func NewHandler(svc *production.Service, db *gorm.DB, sessions SessionCreator, appURL string) *Handler {
	if appURL == "" {
		appURL = "http://localhost:5173"
	}
	return &Handler{svc: svc, db: db, sessions: sessions, appURL: appURL}
}

// POST /orders/:id/checkout opens a one-time Stripe payment for an unpaid order.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}
	ctx := c.Request.Context()

	o, err := h.svc.GetOrder(ctx, ordersapi.Actor(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	if o.Status != orders.StatusPendingPayment {
		respond.Error(c, orders.Errorf(orders.ErrInvalidTransition, "order %s is already %s", o.OrderNumber, o.Status))
		return
	}

	item, err := h.lineItem(h.db.WithContext(ctx), o)
	if err != nil {
		respond.Error(c, err)
		return
	}

	orderURL := fmt.Sprintf("%s/orders/%s", h.appURL, o.ID)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(orderURL + "?paid=1"),
		CancelURL:         stripe.String(orderURL + "?canceled=1"),
		CustomerEmail:     stripe.String(o.Email),
		ClientReferenceID: stripe.String(o.ID),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{item},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_id": o.ID, "order_number": o.OrderNumber},
		},
	}
	params.AddMetadata("order_id", o.ID)
	params.AddMetadata("order_number", o.OrderNumber)

	s, err := h.sessions.New(params)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": s.URL, "session_id": s.ID})
}

// lineItem charges the catalogue price when the tier has one, else the
// order's own price.
func (h *Handler) lineItem(db *gorm.DB, o *orders.Order) (*stripe.CheckoutSessionLineItemParams, error) {
	var plan plans.Plan
	err := db.Where("line = ? AND tier = ?", o.Kind, o.Tier).First(&plan).Error
	switch {
	case err == nil && plan.StripePriceID != "" && plan.PriceEUR == o.PriceEUR:
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(plan.StripePriceID),
			Quantity: stripe.Int64(1),
		}, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load plan: %w", err)
	}

	if o.PriceEUR <= 0 {
		return nil, orders.Errorf(orders.ErrValidation, "order %s has no price", o.OrderNumber)
	}
	name := fmt.Sprintf("%s production (%s) %s", o.Kind, o.Tier, o.OrderNumber)
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(string(stripe.CurrencyEUR)),
			UnitAmount:  stripe.Int64(int64(math.Round(o.PriceEUR * 100))),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)},
		},
		Quantity: stripe.Int64(1),
	}, nil
}
