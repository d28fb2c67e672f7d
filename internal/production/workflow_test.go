package production_test

import (
	"testing"
	"time"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/domain/plans"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/production"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMusicHappyPath(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, orders.KindMusic, plans.TierProfessional)
	assert.Equal(t, orders.StatusPaid, o.Status)
	assert.Equal(t, 3, o.MaxRevisions)
	assert.Equal(t, "MUS-00001", o.OrderNumber)

	_, err := f.svc.Transition(f.ctx, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{})
	assert.ErrorIs(t, err, orders.ErrValidation, "delivery date is required")

	date := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	o = f.do(t, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{DeliveryDate: &date})
	assert.Equal(t, orders.StatusInProduction, o.Status)
	require.NotNil(t, o.EstimatedDeliveryDate)

	o = f.upload(t, o.ID, workflow.ActionUploadDemos, workflow.Payload{}, "one.mp3", "two.mp3", "three.mp3")
	assert.Equal(t, orders.StatusDemoReady, o.Status)
	demos := f.versions(t, o.ID, orders.VersionDemo)
	require.Len(t, demos, 3)
	for i, d := range demos {
		assert.Equal(t, i+1, d.VersionNumber)
		assert.Equal(t, orders.VersionPendingReview, d.Status)
		assert.Contains(t, d.FileURL, "https://cdn.test/orders/MUS-00001/demos/")
	}

	o = f.do(t, o.ID, client, workflow.ActionSelectVersion, workflow.Payload{VersionID: demos[1].ID})
	assert.Equal(t, orders.StatusDemoReady, o.Status)
	assert.Nil(t, o.ConfirmedVersionID, "selection is provisional")
	demos = f.versions(t, o.ID, orders.VersionDemo)
	assert.Equal(t, orders.VersionPendingReview, demos[0].Status)
	assert.Equal(t, orders.VersionSelected, demos[1].Status)
	assert.Equal(t, orders.VersionPendingReview, demos[2].Status)

	o = f.do(t, o.ID, client, workflow.ActionConfirmDirection, workflow.Payload{})
	assert.Equal(t, orders.StatusInProduction, o.Status)
	require.NotNil(t, o.ConfirmedVersionID)
	assert.Equal(t, demos[1].ID, *o.ConfirmedVersionID)

	o = f.upload(t, o.ID, workflow.ActionUploadRevision, workflow.Payload{Notes: "full arrangement"}, "full.wav")
	assert.Equal(t, orders.StatusVersionReady, o.Status)
	assert.Equal(t, 0, o.RevisionsUsed, "first full version is free")
	revs := f.versions(t, o.ID, orders.VersionRevision)
	require.Len(t, revs, 1)
	assert.Equal(t, 1, revs[0].VersionNumber)
	assert.Equal(t, "full arrangement", revs[0].Notes)

	o = f.do(t, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})
	assert.Equal(t, orders.StatusAwaitingFinal, o.Status)
	assert.True(t, o.AwaitingFinalUpload())
	assert.Equal(t, revs[0].ID, *o.ConfirmedVersionID)

	o = f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "master.wav")
	assert.Equal(t, orders.StatusAwaitingFinal, o.Status)

	o = f.do(t, o.ID, admin, workflow.ActionComplete, workflow.Payload{})
	assert.Equal(t, orders.StatusCompleted, o.Status)
	assert.False(t, o.AwaitingFinalUpload())

	stored := f.reload(t, o.ID)
	assert.Equal(t, orders.StatusCompleted, stored.Status)
	assert.Equal(t, o.LockVersion, stored.LockVersion)

	assert.Equal(t, []string{
		"production_started", "demos_ready", "direction_confirmed",
		"revision_ready", "version_confirmed", "final_ready",
	}, f.templates(t, o.ID))
	assert.Zero(t, f.countEvents(t, o.ID, outbox.TypeRecordTalentEarning), "no talent assigned")
}

func TestMusicBudgetExhaustion(t *testing.T) {
	f := newFixture(t)
	o := f.musicAtVersionReady(t, plans.TierEssential)
	require.Equal(t, 2, o.MaxRevisions)

	for round := 1; round <= 2; round++ {
		o = f.do(t, o.ID, client, workflow.ActionRequestChanges, workflow.Payload{RevisionRequest: "more energy in the chorus"})
		assert.Equal(t, orders.StatusInProduction, o.Status)
		o = f.upload(t, o.ID, workflow.ActionUploadRevision, workflow.Payload{}, "full.wav")
		assert.Equal(t, round, o.RevisionsUsed)
	}
	assert.Equal(t, 2, o.RevisionsUsed)

	_, err := f.svc.Transition(f.ctx, o.ID, client, workflow.ActionRequestChanges, workflow.Payload{RevisionRequest: "one more"})
	require.ErrorIs(t, err, orders.ErrBudgetExhausted)

	o = f.reload(t, o.ID)
	assert.Equal(t, orders.StatusVersionReady, o.Status)
	assert.Equal(t, 2, o.RevisionsUsed)
	assert.Equal(t, 0, plans.Remaining(o.RevisionsUsed, o.MaxRevisions))

	// the order is still healthy: the client can accept the current version
	o = f.do(t, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})
	assert.Equal(t, orders.StatusAwaitingFinal, o.Status)
}

func TestChangeRequestIsStoredOnLatestRevision(t *testing.T) {
	f := newFixture(t)
	o := f.musicAtVersionReady(t, plans.TierAdvanced)

	f.do(t, o.ID, client, workflow.ActionRequestChanges, workflow.Payload{
		RevisionRequest: "swap the snare",
		Notes:           "love the intro",
	})

	revs := f.versions(t, o.ID, orders.VersionRevision)
	require.Len(t, revs, 1)
	assert.Equal(t, orders.VersionRevisionRequested, revs[0].Status)
	require.NotNil(t, revs[0].RevisionRequest)
	assert.Equal(t, "swap the snare", *revs[0].RevisionRequest)
	require.NotNil(t, revs[0].OverallNotes)
	assert.Equal(t, "love the intro", *revs[0].OverallNotes)

	var ev outbox.Event
	require.NoError(t, f.db.Where("order_id = ? AND template = ?", o.ID, "changes_requested").Take(&ev).Error)
	assert.Equal(t, "studio@example.com", ev.Recipient)
	c, err := ev.Context()
	require.NoError(t, err)
	assert.Equal(t, "swap the snare", c.Message)
	assert.Equal(t, 1, c.VersionNumber)
}

func TestVoiceHappyPathWithRevision(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, orders.KindVoice, plans.TierHybrid)
	assert.Equal(t, "VOC-00001", o.OrderNumber)
	assert.Equal(t, 2, o.MaxRevisions)

	o = f.do(t, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{})
	assert.Equal(t, orders.StatusInProduction, o.Status)

	_, err := f.svc.UploadAndTransition(f.ctx, o.ID, admin, workflow.ActionDeliverVersion, uploads("v1.wav"), workflow.Payload{})
	require.ErrorIs(t, err, orders.ErrValidation, "note is required")
	assert.Zero(t, f.storage.Len(), "rejected before storing")

	o = f.upload(t, o.ID, workflow.ActionDeliverVersion, workflow.Payload{Notes: "warm read"}, "v1.wav")
	assert.Equal(t, orders.StatusDelivered, o.Status)
	assert.Equal(t, 0, o.RevisionsUsed)

	o = f.do(t, o.ID, client, workflow.ActionRequestChanges, workflow.Payload{RevisionRequest: "slower on line two"})
	assert.Equal(t, orders.StatusInProduction, o.Status)
	assert.Equal(t, 0, o.RevisionsUsed, "v1 was free")

	o = f.upload(t, o.ID, workflow.ActionDeliverVersion, workflow.Payload{Notes: "slower pacing"}, "v2.wav")
	assert.Equal(t, orders.StatusDelivered, o.Status)
	assert.Equal(t, 1, o.RevisionsUsed)

	versions := f.versions(t, o.ID, orders.VersionRevision)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[1].VersionNumber)

	o = f.do(t, o.ID, client, workflow.ActionApproveVersion, workflow.Payload{})
	assert.Equal(t, orders.StatusAwaitingFinal, o.Status)
	assert.Equal(t, versions[1].ID, *o.ConfirmedVersionID)

	o = f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "final.wav")
	o = f.do(t, o.ID, admin, workflow.ActionComplete, workflow.Payload{})
	assert.Equal(t, orders.StatusCompleted, o.Status)

	assert.Equal(t, []string{
		"version_delivered", "revision_requested", "version_delivered", "version_approved", "final_ready",
	}, f.templates(t, o.ID))
	assert.Zero(t, f.countEvents(t, o.ID, outbox.TypeIssueLicense), "hybrid is not the top tier")
}

func TestTopTierVoiceCompletionQueuesLicense(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, orders.KindVoice, plans.TierFullyLive)
	f.do(t, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{})
	f.upload(t, o.ID, workflow.ActionDeliverVersion, workflow.Payload{Notes: "take one"}, "v1.wav")
	f.do(t, o.ID, client, workflow.ActionApproveVersion, workflow.Payload{})
	f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "final.wav")
	f.do(t, o.ID, admin, workflow.ActionComplete, workflow.Payload{})

	assert.EqualValues(t, 1, f.countEvents(t, o.ID, outbox.TypeIssueLicense))
	assert.Zero(t, f.countEvents(t, o.ID, outbox.TypeRecordTalentEarning))
}

func TestCompletionWithTalentQueuesEarning(t *testing.T) {
	f := newFixture(t)
	talent := "6f1c1d9e-8a4b-4c55-9d1e-2b7f0e3a9c11"
	o, err := f.svc.CreateOrder(f.ctx, admin, productionOrder(orders.KindVoice, plans.TierAIVoice, &talent))
	require.NoError(t, err)
	f.do(t, o.ID, admin, workflow.ActionConfirmPayment, workflow.Payload{})
	f.do(t, o.ID, admin, workflow.ActionStartProduction, workflow.Payload{})
	f.upload(t, o.ID, workflow.ActionDeliverVersion, workflow.Payload{Notes: "done"}, "v1.wav")
	f.do(t, o.ID, client, workflow.ActionApproveVersion, workflow.Payload{})
	f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "final.wav")
	f.do(t, o.ID, admin, workflow.ActionComplete, workflow.Payload{})

	assert.EqualValues(t, 1, f.countEvents(t, o.ID, outbox.TypeRecordTalentEarning))
}

func TestCompleteRequiresDeliverable(t *testing.T) {
	f := newFixture(t)
	o := f.musicAtVersionReady(t, plans.TierEssential)
	o = f.do(t, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})

	ok, err := f.svc.CanComplete(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Transition(f.ctx, o.ID, admin, workflow.ActionComplete, workflow.Payload{})
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	assert.Equal(t, orders.StatusAwaitingFinal, f.reload(t, o.ID).Status)

	f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "mix.wav", "stems.zip")
	list, err := f.svc.ListDeliverables(f.ctx, client, o.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].SortOrder)
	assert.Equal(t, 2, list[1].SortOrder)
	assert.Equal(t, orders.FileWAV, list[0].FileType)
	assert.Equal(t, orders.FileZip, list[1].FileType)

	// removing every deliverable closes the gate again
	for _, d := range list {
		f.do(t, o.ID, admin, workflow.ActionRemoveDeliverable, workflow.Payload{DeliverableID: d.ID})
	}
	_, err = f.svc.Transition(f.ctx, o.ID, admin, workflow.ActionComplete, workflow.Payload{})
	require.ErrorIs(t, err, orders.ErrInvalidTransition)

	_, err = f.svc.Transition(f.ctx, o.ID, admin, workflow.ActionRemoveDeliverable, workflow.Payload{DeliverableID: list[0].ID})
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestRepeatedTransitionIsRejected(t *testing.T) {
	f := newFixture(t)
	o := f.musicAtVersionReady(t, plans.TierProfessional)
	o = f.do(t, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})

	before := f.templates(t, o.ID)
	versions, err := f.svc.ListVersions(f.ctx, admin, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Transition(f.ctx, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	_, err = f.svc.Transition(f.ctx, o.ID, admin, workflow.ActionConfirmPayment, workflow.Payload{})
	require.ErrorIs(t, err, orders.ErrInvalidTransition)

	after := f.reload(t, o.ID)
	assert.Equal(t, orders.StatusAwaitingFinal, after.Status)
	assert.Equal(t, o.RevisionsUsed, after.RevisionsUsed)
	assert.Equal(t, o.LockVersion, after.LockVersion)
	again, err := f.svc.ListVersions(f.ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Len(t, again, len(versions))
	assert.Equal(t, before, f.templates(t, o.ID), "no duplicate notifications")
}

func TestCompletedOrderIsFrozen(t *testing.T) {
	f := newFixture(t)
	o := f.musicAtVersionReady(t, plans.TierEssential)
	f.do(t, o.ID, client, workflow.ActionConfirmVersion, workflow.Payload{})
	f.upload(t, o.ID, workflow.ActionAddDeliverable, workflow.Payload{}, "master.wav")
	f.do(t, o.ID, admin, workflow.ActionComplete, workflow.Payload{})

	for _, a := range []workflow.Action{workflow.ActionSelectVersion, workflow.ActionAddDeliverable, workflow.ActionComplete} {
		_, err := f.svc.Transition(f.ctx, o.ID, admin, a, workflow.Payload{})
		assert.ErrorIs(t, err, orders.ErrInvalidTransition, "%s", a)
	}
	list, err := f.svc.ListDeliverables(f.ctx, client, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1, "deliverables stay readable")
}

func TestRoleAndOwnershipChecks(t *testing.T) {
	f := newFixture(t)
	o := f.paidOrder(t, orders.KindMusic, plans.TierEssential)

	_, err := f.svc.Transition(f.ctx, o.ID, client, workflow.ActionStartProduction, workflow.Payload{})
	assert.ErrorIs(t, err, orders.ErrForbidden)

	stranger := client
	stranger.Email = "someone@else.com"
	_, err = f.svc.GetOrder(f.ctx, stranger, o.ID)
	assert.ErrorIs(t, err, orders.ErrForbidden)

	list, err := f.svc.ListOrders(f.ctx, stranger, production.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.ListOrders(f.ctx, client, production.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Transition(f.ctx, "00000000-0000-0000-0000-000000000000", admin, workflow.ActionComplete, workflow.Payload{})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.paidOrder(t, orders.KindMusic, plans.TierEssential)
	_, err := f.svc.CreateOrder(f.ctx, client, productionOrder(orders.KindVoice, "", nil))
	require.NoError(t, err)

	list, err := f.svc.ListOrders(f.ctx, admin, production.Filter{Status: orders.StatusPaid})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, orders.KindMusic, list[0].Kind)

	_, err = f.svc.ListOrders(f.ctx, admin, production.Filter{Status: "shipped"})
	assert.ErrorIs(t, err, orders.ErrValidation)
}

func TestOrderNumbersArePerKind(t *testing.T) {
	f := newFixture(t)
	var numbers []string
	for _, k := range []orders.Kind{orders.KindMusic, orders.KindVoice, orders.KindMusic} {
		o, err := f.svc.CreateOrder(f.ctx, client, productionOrder(k, "", nil))
		require.NoError(t, err)
		numbers = append(numbers, o.OrderNumber)
	}
	assert.Equal(t, []string{"MUS-00001", "VOC-00001", "MUS-00002"}, numbers)

	_, err := f.svc.CreateOrder(f.ctx, client, productionOrder("podcast", "", nil))
	assert.ErrorIs(t, err, orders.ErrValidation)
}
