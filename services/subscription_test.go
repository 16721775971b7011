package services

import (
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededSubscriptionService(t *testing.T) (*SubscriptionService, *models.User) {
	t.Helper()
	db := newTestDB(t)
	svc := NewSubscriptionService(db)
	require.NoError(t, svc.SeedPlans())
	return svc, createTestUser(t, db, "阿白")
}

func TestSeedPlans(t *testing.T) {
	svc, _ := seededSubscriptionService(t)

	plans, err := svc.ListPlans()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, models.PlanPeriodMonthly, plans[0].Period)
	assert.Equal(t, 3600, plans[0].Price)
	assert.Equal(t, 28800, plans[1].Price)

	// Seeding again keeps two rows.
	require.NoError(t, svc.SeedPlans())
	plans, err = svc.ListPlans()
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestSubscribeSetsProStatus(t *testing.T) {
	svc, user := seededSubscriptionService(t)

	current, err := svc.GetCurrent(user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	plans, _ := svc.ListPlans()
	sub, err := svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-1"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), sub.ExpiresAt, time.Minute)

	var reloaded models.User
	require.NoError(t, svc.DB.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.IsPro)

	// The same transaction cannot be recorded twice.
	_, err = svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-1"})
	assert.ErrorIs(t, err, ErrDuplicatePurchase)
}

func TestSubscribeStacksFromCurrentExpiry(t *testing.T) {
	svc, user := seededSubscriptionService(t)
	plans, _ := svc.ListPlans()

	first, err := svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-1"})
	require.NoError(t, err)

	second, err := svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-2"})
	require.NoError(t, err)

	// Early renewal starts where the first period ends.
	assert.Equal(t, first.ExpiresAt.Unix(), second.StartAt.Unix())
}

func TestExpiredSubscriptionDropsPro(t *testing.T) {
	svc, user := seededSubscriptionService(t)
	plans, _ := svc.ListPlans()

	sub, err := svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-1"})
	require.NoError(t, err)

	require.NoError(t, svc.DB.Model(&models.ProSubscription{}).Where("id = ?", sub.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	current, err := svc.GetCurrent(user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	var reloaded models.User
	require.NoError(t, svc.DB.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.IsPro)

	var row models.ProSubscription
	require.NoError(t, svc.DB.First(&row, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusExpired, row.Status)

	_, err = svc.Restore(user.ID)
	assert.ErrorIs(t, err, ErrNothingToRestore)
}

func TestCancelKeepsPaidTime(t *testing.T) {
	svc, user := seededSubscriptionService(t)
	plans, _ := svc.ListPlans()

	_, err := svc.Subscribe(user.ID, SubscribeInput{PlanID: plans[0].ID, TransactionID: "tx-1"})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(user.ID))
	assert.ErrorIs(t, svc.Cancel(user.ID), ErrAlreadyCancelled)

	// Still Pro until the period lapses.
	current, err := svc.GetCurrent(user.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.NotNil(t, current.CancelledAt)

	isPro, err := svc.CalculateIsPro(user.ID)
	require.NoError(t, err)
	assert.True(t, isPro)
}
