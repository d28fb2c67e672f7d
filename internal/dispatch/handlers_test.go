package dispatch

import (
	"context"
	"testing"

	"studio-orders/internal/domain/billing"
	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicenseHandlerIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	o := seedOrder(t, db, orders.Order{Title: "Audiobook"})
	h := LicenseHandler(db)
	ev := &outbox.Event{Type: outbox.TypeIssueLicense, OrderID: o.ID}

	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), ev))

	var certs []orders.LicenseCertificate
	require.NoError(t, db.Find(&certs).Error)
	require.Len(t, certs, 1)
	assert.Equal(t, "LIC-VOC-00001", certs[0].CertificateNumber)
	assert.Equal(t, "ana@example.com", certs[0].Email)
	assert.Equal(t, "fully_live", certs[0].Tier)

	var mails []outbox.Event
	require.NoError(t, db.Where("template = ?", "license_issued").Find(&mails).Error)
	require.Len(t, mails, 1, "the certificate mail is queued once")
	c, err := mails[0].Context()
	require.NoError(t, err)
	assert.Equal(t, "LIC-VOC-00001", c.Message)
	assert.Equal(t, "ana@example.com", mails[0].Recipient)
}

func TestLicenseHandlerNeedsCompletedOrder(t *testing.T) {
	db := testutil.NewDB(t)
	o := seedOrder(t, db, orders.Order{Status: orders.StatusAwaitingFinal})

	err := LicenseHandler(db)(context.Background(), &outbox.Event{OrderID: o.ID})
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	err = LicenseHandler(db)(context.Background(), &outbox.Event{OrderID: "7d0b7bb6-6a56-4d3c-9d8c-7b1f3e0c2a11"})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestEarningHandler(t *testing.T) {
	db := testutil.NewDB(t)
	talent := "0f5a7c3e-2b1d-4e6f-8a9b-1c2d3e4f5a6b"
	o := seedOrder(t, db, orders.Order{Tier: "hybrid", PriceEUR: 349, TalentID: &talent})
	h := EarningHandler(db, 0.4)
	ev := &outbox.Event{Type: outbox.TypeRecordTalentEarning, OrderID: o.ID}

	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), ev))

	var earnings []billing.TalentEarning
	require.NoError(t, db.Find(&earnings).Error)
	require.Len(t, earnings, 1)
	assert.Equal(t, talent, earnings[0].TalentID)
	assert.InDelta(t, 139.60, earnings[0].AmountEUR, 0.001)
	assert.Equal(t, "pending", earnings[0].Status)
}

func TestEarningHandlerSkipsOrdersWithoutTalent(t *testing.T) {
	db := testutil.NewDB(t)
	o := seedOrder(t, db, orders.Order{Tier: "ai_voice", PriceEUR: 99})

	require.NoError(t, EarningHandler(db, 0.4)(context.Background(), &outbox.Event{OrderID: o.ID}))

	var n int64
	require.NoError(t, db.Model(&billing.TalentEarning{}).Count(&n).Error)
	assert.Zero(t, n)
}
