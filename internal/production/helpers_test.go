package production_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/production"
	"studio-orders/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	admin  = production.Actor{Role: workflow.RoleAdmin, Email: "studio@example.com"}
	client = production.Actor{Role: workflow.RoleClient, Email: "ana@example.com"}
	system = production.Actor{Role: workflow.RoleSystem}
)

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	svc     *production.Service
	storage *testutil.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	storage := testutil.NewMemoryStorage()
	svc := production.New(db, storage, production.Config{AdminEmail: "studio@example.com"}, nil)
	return &fixture{ctx: context.Background(), db: db, svc: svc, storage: storage}
}

// paidOrder creates an order and confirms its payment.
func (f *fixture) paidOrder(t *testing.T, kind orders.Kind, tier string) *orders.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(f.ctx, client, production.NewOrder{Kind: kind, Tier: tier, PriceEUR: 500, Title: "Jingle"})
	require.NoError(t, err)
	require.Equal(t, orders.StatusPendingPayment, o.Status)
	return f.do(t, o.ID, system, workflow.ActionConfirmPayment, workflow.Payload{})
}

func (f *fixture) do(t *testing.T, orderID string, actor production.Actor, action workflow.Action, p workflow.Payload) *orders.Order {
	t.Helper()
	o, err := f.svc.Transition(f.ctx, orderID, actor, action, p)
	require.NoError(t, err, "%s", action)
	return o
}

func (f *fixture) upload(t *testing.T, orderID string, action workflow.Action, p workflow.Payload, names ...string) *orders.Order {
	t.Helper()
	o, err := f.svc.UploadAndTransition(f.ctx, orderID, admin, action, uploads(names...), p)
	require.NoError(t, err, "%s", action)
	return o
}

func uploads(names ...string) []production.Upload {
	out := make([]production.Upload, 0, len(names))
	for _, n := range names {
		out = append(out, production.Upload{Name: n, ContentType: "audio/mpeg", Body: strings.NewReader("bytes of " + n)})
	}
	return out
}

func (f *fixture) reload(t *testing.T, id string) *orders.Order {
	t.Helper()
	o, err := f.svc.GetOrder(f.ctx, admin, id)
	require.NoError(t, err)
	return o
}

func (f *fixture) versions(t *testing.T, orderID string, vt orders.VersionType) []orders.Version {
	t.Helper()
	all, err := f.svc.ListVersions(f.ctx, admin, orderID)
	require.NoError(t, err)
	var out []orders.Version
	for _, v := range all {
		if v.VersionType == vt {
			out = append(out, v)
		}
	}
	return out
}

func (f *fixture) templates(t *testing.T, orderID string) []string {
	t.Helper()
	var events []outbox.Event
	require.NoError(t, f.db.Where("order_id = ? AND type = ?", orderID, outbox.TypeNotification).
		Order("created_at ASC").Find(&events).Error)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Template)
	}
	return out
}

func (f *fixture) countEvents(t *testing.T, orderID string, typ outbox.EventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&outbox.Event{}).Where("order_id = ? AND type = ?", orderID, typ).Count(&n).Error)
	return n
}

// musicAtVersionReady walks a music order to its first full version.
func (f *fixture) musicAtVersionReady(t *testing.T, tier string) *orders.Order {
	t.Helper()
	o := f.paidOrder(t, orders.KindMusic, tier)
	date := time.Now().Add(14 * 24 * time.Hour)
	f.do(t, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{DeliveryDate: &date})
	f.upload(t, o.ID, workflow.ActionUploadDemos, workflow.Payload{}, "a.mp3", "b.mp3")
	demos := f.versions(t, o.ID, orders.VersionDemo)
	f.do(t, o.ID, client, workflow.ActionConfirmDirection, workflow.Payload{VersionID: demos[0].ID})
	return f.upload(t, o.ID, workflow.ActionUploadRevision, workflow.Payload{Notes: "first full mix"}, "full-v1.wav")
}

func productionOrder(kind orders.Kind, tier string, talent *string) production.NewOrder {
	return production.NewOrder{Kind: kind, Tier: tier, PriceEUR: 500, Email: client.Email, TalentID: talent}
}

func productionFeedback(rating *int, notes string) production.Feedback {
	fb := production.Feedback{Rating: rating}
	if notes != "" {
		fb.Notes = &notes
	}
	return fb
}
