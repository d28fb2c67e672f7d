package stripewebhooks

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/production"
	"studio-orders/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

const endpointSecret = "whsec_test_secret"

type webhookFixture struct {
	db  *gorm.DB
	svc *production.Service
	r   *gin.Engine
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	svc := production.New(db, testutil.NewMemoryStorage(), production.Config{}, nil)
	r := gin.New()
	r.POST("/webhook", NewHandler(svc, db, endpointSecret).StripeWebhook)
	return &webhookFixture{db: db, svc: svc, r: r}
}

func (f *webhookFixture) order(t *testing.T) *orders.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), production.Actor{Role: workflow.RoleAdmin},
		production.NewOrder{Kind: orders.KindMusic, Tier: plans.TierEssential, PriceEUR: 349, Email: "ana@example.com"})
	require.NoError(t, err)
	return o
}

func eventPayload(t *testing.T, eventType string, session map[string]any) []byte {
	t.Helper()
	session["object"] = "checkout.session"
	b, err := json.Marshal(map[string]any{
		"id":          "evt_test",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": session},
	})
	require.NoError(t, err)
	return b
}

func (f *webhookFixture) deliver(payload []byte, secret string) *httptest.ResponseRecorder {
	now := time.Now()
	sig := hex.EncodeToString(webhook.ComputeSignature(now, payload, secret))
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), sig))
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func status(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body["status"]
}

func paidSession(orderID string) map[string]any {
	return map[string]any{
		"id":             "cs_test_1",
		"payment_status": "paid",
		"amount_total":   34900,
		"metadata":       map[string]string{"order_id": orderID},
	}
}

func TestCheckoutCompletedConfirmsPayment(t *testing.T) {
	f := newWebhookFixture(t)
	o := f.order(t)
	payload := eventPayload(t, "checkout.session.completed", paidSession(o.ID))

	w := f.deliver(payload, endpointSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", status(t, w))

	var reloaded orders.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", o.ID).Error)
	assert.Equal(t, orders.StatusPaid, reloaded.Status)

	var p billing.Payment
	require.NoError(t, f.db.Where("order_id = ?", o.ID).Take(&p).Error)
	assert.Equal(t, 349.0, p.AmountEUR)
	assert.Equal(t, "stripe", p.Source)
	assert.Equal(t, "paid", p.Status)

	// Stripe redelivers
	w = f.deliver(payload, endpointSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_confirmed", status(t, w))

	var n int64
	require.NoError(t, f.db.Model(&billing.Payment{}).Where("order_id = ?", o.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCheckoutFallsBackToClientReference(t *testing.T) {
	f := newWebhookFixture(t)
	o := f.order(t)
	session := paidSession("")
	delete(session, "metadata")
	session["client_reference_id"] = o.ID

	w := f.deliver(eventPayload(t, "checkout.session.async_payment_succeeded", session), endpointSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", status(t, w))
}

func TestUnpaidSessionLeavesOrderPending(t *testing.T) {
	f := newWebhookFixture(t)
	o := f.order(t)
	session := paidSession(o.ID)
	session["payment_status"] = "unpaid"

	w := f.deliver(eventPayload(t, "checkout.session.completed", session), endpointSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "awaiting_payment", status(t, w))

	var reloaded orders.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", o.ID).Error)
	assert.Equal(t, orders.StatusPendingPayment, reloaded.Status)
}

func TestUnknownOrderIsIgnored(t *testing.T) {
	f := newWebhookFixture(t)

	w := f.deliver(eventPayload(t, "checkout.session.completed", paidSession("00000000-0000-0000-0000-000000000000")), endpointSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", status(t, w))

	var n int64
	require.NoError(t, f.db.Model(&billing.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestOtherEventsAreIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	w := f.deliver(eventPayload(t, "customer.created", map[string]any{"id": "cus_1"}), endpointSecret)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", status(t, w))
}

func TestBadSignatureIsRejected(t *testing.T) {
	f := newWebhookFixture(t)
	o := f.order(t)

	w := f.deliver(eventPayload(t, "checkout.session.completed", paidSession(o.ID)), "whsec_other")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded orders.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", o.ID).Error)
	assert.Equal(t, orders.StatusPendingPayment, reloaded.Status)
}
