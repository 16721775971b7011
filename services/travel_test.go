package services

import (
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTravelRejectsSecondActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")
	city := createTestCity(t, db, "成都")

	_, err := svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	require.NoError(t, err)

	_, err = svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	assert.ErrorIs(t, err, ErrActiveTravelExists)

	var activeCount int64
	db.Model(&models.Travel{}).
		Where("user_id = ? AND status = ?", user.ID, models.TravelStatusActive).
		Count(&activeCount)
	assert.EqualValues(t, 1, activeCount)
}

func TestStartTravelUnknownCity(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")

	_, err := svc.StartTravel(user.ID, StartTravelInput{CityID: 999})
	assert.ErrorIs(t, err, ErrCityNotFound)
}

func TestLazyExpiryCompletesStaleTravel(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")
	city := createTestCity(t, db, "成都")

	travel, err := svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	require.NoError(t, err)

	// Backdate past the 7-day window.
	stale := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, db.Model(travel).Update("start_date", stale).Error)

	current, err := svc.GetCurrentTravel(user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)

	var reloaded models.Travel
	require.NoError(t, db.First(&reloaded, travel.ID).Error)
	assert.Equal(t, models.TravelStatusCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)

	// A new travel can start now that the stale one is closed.
	_, err = svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	assert.NoError(t, err)
}

func TestSyncStepsRequiresActiveTravel(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")

	_, err := svc.SyncSteps(user.ID, SyncStepsInput{Steps: 1000})
	assert.ErrorIs(t, err, ErrNoActiveTravel)
}

func TestSyncStepsOverwritesSameDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")
	city := createTestCity(t, db, "成都")

	_, err := svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	require.NoError(t, err)

	_, err = svc.SyncSteps(user.ID, SyncStepsInput{Steps: 3000})
	require.NoError(t, err)
	result, err := svc.SyncSteps(user.ID, SyncStepsInput{Steps: 5000})
	require.NoError(t, err)

	// Re-syncing the day replaces, never accumulates.
	assert.Equal(t, 5000, result.TotalSteps)

	var count int64
	db.Model(&models.StepRecord{}).
		Where("user_id = ? AND city_id = ?", user.ID, city.ID).
		Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSyncStepsAccumulatesAcrossDays(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	user := createTestUser(t, db, "阿白")
	city := createTestCity(t, db, "成都")

	travel, err := svc.StartTravel(user.ID, StartTravelInput{CityID: city.ID})
	require.NoError(t, err)

	// Shift the travel start one day back so yesterday's row counts.
	require.NoError(t, db.Model(travel).
		Update("start_date", time.Now().Add(-24*time.Hour)).Error)

	yesterday := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	_, err = svc.SyncSteps(user.ID, SyncStepsInput{Steps: 3000, Date: yesterday})
	require.NoError(t, err)

	result, err := svc.SyncSteps(user.ID, SyncStepsInput{Steps: 4000})
	require.NoError(t, err)

	assert.Equal(t, 7000, result.TotalSteps)
	assert.Equal(t, 238, result.TotalCalories) // round(7000 × 0.034)

	var userCity models.UserCity
	require.NoError(t, db.Where("user_id = ? AND city_id = ?", user.ID, city.ID).
		First(&userCity).Error)
	assert.Equal(t, 7000, userCity.TotalSteps)

	// Completed-travel statistics see the same totals.
	require.NoError(t, db.Model(&models.Travel{}).Where("id = ?", travel.ID).
		Update("status", models.TravelStatusCompleted).Error)
	stats, err := svc.GetStatistics(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7000, stats.TotalSteps)
	assert.EqualValues(t, 1, stats.TotalTravels)
}

func TestSyncStepsDerivesCalories(t *testing.T) {
	assert.Equal(t, 0, DeriveCalories(0))
	assert.Equal(t, 102, DeriveCalories(3000))
	assert.Equal(t, 136, DeriveCalories(4000))
}

func TestDualTravelValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	alice := createTestUser(t, db, "阿白")
	bob := createTestUser(t, db, "阿黑")
	eve := createTestUser(t, db, "阿灰")
	city := createTestCity(t, db, "成都")

	partnership := acceptedPartnership(t, db, alice.ID, bob.ID)

	// Partner must be the counterpart in the partnership.
	_, err := svc.StartTravel(alice.ID, StartTravelInput{
		CityID:        city.ID,
		Type:          models.TravelTypeDual,
		PartnerID:     &eve.ID,
		PartnershipID: &partnership.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidPartnership)

	// A pending partnership is not usable.
	pending := &models.TravelPartnership{
		InviterID:      alice.ID,
		InvitationCode: "PENDING1",
		Status:         models.PartnershipStatusPending,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(pending).Error)
	_, err = svc.StartTravel(alice.ID, StartTravelInput{
		CityID:        city.ID,
		Type:          models.TravelTypeDual,
		PartnerID:     &bob.ID,
		PartnershipID: &pending.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidPartnership)

	travel, err := svc.StartTravel(alice.ID, StartTravelInput{
		CityID:        city.ID,
		Type:          models.TravelTypeDual,
		PartnerID:     &bob.ID,
		PartnershipID: &partnership.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TravelTypeDual, travel.Type)

	companions, err := svc.GetCurrentCompanions(alice.ID)
	require.NoError(t, err)
	require.Len(t, companions, 1)
	assert.Equal(t, bob.ID, companions[0].ID)
}

func TestSwitchToDual(t *testing.T) {
	db := newTestDB(t)
	svc := NewTravelService(db, nil)
	alice := createTestUser(t, db, "阿白")
	bob := createTestUser(t, db, "阿黑")
	city := createTestCity(t, db, "成都")
	partnership := acceptedPartnership(t, db, alice.ID, bob.ID)

	_, err := svc.SwitchToDual(alice.ID, bob.ID, partnership.ID)
	assert.ErrorIs(t, err, ErrNoActiveTravel)

	_, err = svc.StartTravel(alice.ID, StartTravelInput{CityID: city.ID})
	require.NoError(t, err)

	travel, err := svc.SwitchToDual(alice.ID, bob.ID, partnership.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TravelTypeDual, travel.Type)

	_, err = svc.SwitchToDual(alice.ID, bob.ID, partnership.ID)
	assert.ErrorIs(t, err, ErrAlreadyDual)
}
