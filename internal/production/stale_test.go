package production

import (
	"testing"

	"studio-orders/internal/domain/orders"
	"studio-orders/internal/domain/outbox"
	"studio-orders/internal/domain/workflow"
	"studio-orders/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyOnStaleOrderWritesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	svc := New(db, testutil.NewMemoryStorage(), Config{}, nil)

	o := &orders.Order{
		OrderNumber: "MUS-00001", Kind: orders.KindMusic, Status: orders.StatusInProduction,
		Tier: "essential", MaxRevisions: 2, Email: "ana@example.com",
	}
	require.NoError(t, db.Create(o).Error)

	p := workflow.Payload{Files: []workflow.FileRef{{URL: "https://cdn.test/a.mp3", Name: "a.mp3"}}}
	err := db.Transaction(func(tx *gorm.DB) error {
		var read orders.Order
		require.NoError(t, tx.Where("id = ?", o.ID).First(&read).Error)

		// someone else commits in between
		require.NoError(t, tx.Model(&orders.Order{}).Where("id = ?", o.ID).
			UpdateColumn("lock_version", gorm.Expr("lock_version + 1")).Error)

		_, err := svc.apply(tx, &read, Actor{Role: workflow.RoleAdmin}, workflow.ActionUploadDemos, p)
		return err
	})
	require.ErrorIs(t, err, orders.ErrStaleState)
	assert.True(t, orders.Retryable(err))

	var versions, events int64
	require.NoError(t, db.Model(&orders.Version{}).Count(&versions).Error)
	require.NoError(t, db.Model(&outbox.Event{}).Count(&events).Error)
	assert.Zero(t, versions)
	assert.Zero(t, events)

	var after orders.Order
	require.NoError(t, db.Where("id = ?", o.ID).First(&after).Error)
	assert.Equal(t, orders.StatusInProduction, after.Status)
	assert.Equal(t, 0, after.LockVersion, "rolled back with the transaction")
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "mix_final_.wav", cleanFileName("../mix final!.wav"))
	assert.Equal(t, "take.wav", cleanFileName(`C:\Users\ana\take.wav`))
	assert.Equal(t, "file", cleanFileName("..."))
}
