package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studio-orders/internal/app/http/middleware"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/production"
	"studio-orders/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      *production.Service
	sessions *fakeSessions
	r        *gin.Engine
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	svc := production.New(db, testutil.NewMemoryStorage(), production.Config{}, nil)
	f := &checkoutFixture{db: db, svc: svc, sessions: &fakeSessions{}}

	h := NewHandler(svc, db, f.sessions, "https://studio.test")
	f.r = gin.New()
	f.r.POST("/orders/:id/checkout", func(c *gin.Context) {
		c.Set(middleware.KeyEmail, c.GetHeader("X-Email"))
		c.Set(middleware.KeyRole, "client")
	}, h.CreateCheckoutSession)
	return f
}

func (f *checkoutFixture) order(t *testing.T, kind orders.Kind, tier string, price float64) *orders.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(),
		production.Actor{Role: workflow.RoleAdmin},
		production.NewOrder{Kind: kind, Tier: tier, PriceEUR: price, Email: "ana@example.com"})
	require.NoError(t, err)
	return o
}

func (f *checkoutFixture) checkout(orderID, email string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/checkout", nil)
	req.Header.Set("X-Email", email)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func TestCheckoutUsesCataloguePrice(t *testing.T) {
	f := newCheckoutFixture(t)
	require.NoError(t, f.db.Create(&plans.Plan{
		Name: "Essential", Line: plans.LineMusic, Tier: plans.TierEssential, PriceEUR: 349, StripePriceID: "price_ess",
	}).Error)
	o := f.order(t, orders.KindMusic, plans.TierEssential, 349)

	w := f.checkout(o.ID, "ana@example.com")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "cs_test_1", body["session_id"])
	assert.Equal(t, "https://checkout.stripe.test/cs_test_1", body["url"])

	p := f.sessions.params
	require.NotNil(t, p)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *p.Mode)
	assert.Equal(t, o.ID, *p.ClientReferenceID)
	assert.Equal(t, "ana@example.com", *p.CustomerEmail)
	assert.Equal(t, o.ID, p.Metadata["order_id"])
	assert.Equal(t, o.ID, p.PaymentIntentData.Metadata["order_id"])
	assert.Equal(t, "https://studio.test/orders/"+o.ID+"?paid=1", *p.SuccessURL)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, "price_ess", *p.LineItems[0].Price)
	assert.Nil(t, p.LineItems[0].PriceData)
}

func TestCheckoutFallsBackToOrderPrice(t *testing.T) {
	f := newCheckoutFixture(t)
	o := f.order(t, orders.KindVoice, plans.TierHybrid, 420.5)

	w := f.checkout(o.ID, "ana@example.com")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	item := f.sessions.params.LineItems[0]
	require.NotNil(t, item.PriceData)
	assert.Nil(t, item.Price)
	assert.Equal(t, int64(42050), *item.PriceData.UnitAmount)
	assert.Equal(t, "eur", *item.PriceData.Currency)
}

func TestCheckoutRejectsPaidAndForeignOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	o := f.order(t, orders.KindVoice, plans.TierHybrid, 420)

	w := f.checkout(o.ID, "bo@example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := f.svc.Transition(context.Background(), o.ID, production.Actor{Role: workflow.RoleSystem}, workflow.ActionConfirmPayment, workflow.Payload{})
	require.NoError(t, err)

	w = f.checkout(o.ID, "ana@example.com")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, f.sessions.params, "stripe is not called")
}

func TestCheckoutStripeFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	f.sessions.err = errors.New("card_declined")
	o := f.order(t, orders.KindMusic, plans.TierEssential, 349)

	w := f.checkout(o.ID, "ana@example.com")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
