package services

import (
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAchievements(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Achievement{
		{Name: "第一步", Condition: AchievementConditionTotalSteps, Threshold: 10000},
		{Name: "初来乍到", Condition: AchievementConditionCitiesVisited, Threshold: 1},
		{Name: "完美旅程", Condition: AchievementConditionTravelsCompleted, Threshold: 1},
		{Name: "结伴同行", Condition: AchievementConditionPartnerBound, Threshold: 1},
	}).Error)
}

func TestAchievementsUnlockOnThreshold(t *testing.T) {
	db := newTestDB(t)
	seedAchievements(t, db)
	svc := NewAchievementService(db)

	user := createTestUser(t, db, "小明")
	city := createTestCity(t, db, "成都")

	views, err := svc.List(user.ID)
	require.NoError(t, err)
	require.Len(t, views, 4)
	for _, view := range views {
		assert.False(t, view.Unlocked, view.Name)
	}

	now := time.Now()
	require.NoError(t, db.Create(&models.Travel{
		UserID:      user.ID,
		CityID:      city.ID,
		Type:        models.TravelTypeSingle,
		Status:      models.TravelStatusCompleted,
		StartDate:   now.Add(-8 * 24 * time.Hour),
		EndDate:     now,
		TotalSteps:  12000,
		Days:        7,
		CompletedAt: &now,
	}).Error)
	require.NoError(t, db.Create(&models.UserCity{
		UserID: user.ID, CityID: city.ID, VisitCount: 1,
	}).Error)

	views, err = svc.List(user.ID)
	require.NoError(t, err)

	unlocked := map[string]bool{}
	for _, view := range views {
		unlocked[view.Condition] = view.Unlocked
	}
	assert.True(t, unlocked[AchievementConditionTotalSteps])
	assert.True(t, unlocked[AchievementConditionCitiesVisited])
	assert.True(t, unlocked[AchievementConditionTravelsCompleted])
	assert.False(t, unlocked[AchievementConditionPartnerBound])
}

func TestAchievementEvaluateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	seedAchievements(t, db)
	svc := NewAchievementService(db)

	user := createTestUser(t, db, "小明")
	partner := createTestUser(t, db, "小红")
	acceptedPartnership(t, db, user.ID, partner.ID)

	require.NoError(t, svc.Evaluate(user.ID))
	require.NoError(t, svc.Evaluate(user.ID))

	var count int64
	require.NoError(t, db.Model(&models.UserAchievement{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStatsAggregateAcrossTravels(t *testing.T) {
	db := newTestDB(t)
	svc := NewAchievementService(db)

	user := createTestUser(t, db, "小明")
	chengdu := createTestCity(t, db, "成都")
	tokyo := createTestCity(t, db, "东京")

	now := time.Now()
	require.NoError(t, db.Create(&models.Travel{
		UserID: user.ID, CityID: chengdu.ID, Type: models.TravelTypeSingle,
		Status: models.TravelStatusCompleted, StartDate: now.Add(-20 * 24 * time.Hour),
		EndDate: now.Add(-13 * 24 * time.Hour), TotalSteps: 30000, Days: 7,
	}).Error)
	require.NoError(t, db.Create(&models.Travel{
		UserID: user.ID, CityID: tokyo.ID, Type: models.TravelTypeSingle,
		Status: models.TravelStatusActive, StartDate: now,
		EndDate: now.Add(7 * 24 * time.Hour), TotalSteps: 5000, Days: 2,
	}).Error)
	require.NoError(t, db.Create(&models.UserCity{UserID: user.ID, CityID: chengdu.ID, VisitCount: 1}).Error)
	require.NoError(t, db.Create(&models.UserCity{UserID: user.ID, CityID: tokyo.ID, VisitCount: 1}).Error)

	stats, err := svc.Stats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 35000, stats.TotalSteps)
	assert.Equal(t, 9, stats.TravelDays)
	assert.EqualValues(t, 2, stats.VisitedCities)
	assert.InDelta(t, 24.5, stats.TotalDistance, 0.001)
}

func TestDreamsListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewAchievementService(db)

	user := createTestUser(t, db, "小明")
	require.NoError(t, db.Create(&models.Dream{UserID: user.ID, Content: "去看海"}).Error)
	require.NoError(t, db.Create(&models.Dream{UserID: user.ID, Content: "环游世界"}).Error)

	other := createTestUser(t, db, "小红")
	require.NoError(t, db.Create(&models.Dream{UserID: other.ID, Content: "别人的梦"}).Error)

	dreams, err := svc.Dreams(user.ID)
	require.NoError(t, err)
	require.Len(t, dreams, 2)
	for _, dream := range dreams {
		assert.Equal(t, user.ID, dream.UserID)
	}
}
