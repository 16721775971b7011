package routes

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/kataras/iris/v12"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func onboardingTestApp(userID uint) *iris.Application {
	app := iris.New()
	api := app.Party("/api", asUser(userID))
	api.Post("/user/onboarding/complete", CompleteOnboarding)
	return app
}

func seedOnboardingCatalog(t *testing.T, db *gorm.DB) (*models.Pet, *models.City) {
	t.Helper()
	pet := &models.Pet{Name: "团子", EnglishName: "Tuanzi"}
	require.NoError(t, db.Create(pet).Error)
	continent := &models.Continent{Name: "亚洲", IsActive: true}
	require.NoError(t, db.Create(continent).Error)
	city := &models.City{ContinentID: continent.ID, Name: "成都", IsUnlocked: true}
	require.NoError(t, db.Create(city).Error)
	return pet, city
}

func TestCompleteOnboarding(t *testing.T) {
	db := newTestStorage(t)
	user := &models.User{Nickname: ""}
	require.NoError(t, db.Create(user).Error)
	pet, city := seedOnboardingCatalog(t, db)

	app := onboardingTestApp(user.ID)
	body := fmt.Sprintf(`{"nickname":"阿白","petID":%d,"petName":"小团","cityID":%d,"dream":"环游世界","steps":5000}`,
		pet.ID, city.ID)
	env := postJSON(t, app, "/api/user/onboarding/complete", body)
	assert.Equal(t, 200, env.Code)

	var travel models.Travel
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&travel).Error)
	assert.Equal(t, models.TravelStatusActive, travel.Status)
	assert.Equal(t, 5000, travel.TotalSteps)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.OnboardingCompleted)
}

func TestCompleteOnboardingRejectsSecondActiveTravel(t *testing.T) {
	db := newTestStorage(t)
	user := &models.User{Nickname: "阿白"}
	require.NoError(t, db.Create(user).Error)
	pet, city := seedOnboardingCatalog(t, db)

	now := time.Now()
	require.NoError(t, db.Create(&models.Travel{
		UserID:    user.ID,
		CityID:    city.ID,
		PetID:     pet.ID,
		Type:      models.TravelTypeSingle,
		Status:    models.TravelStatusActive,
		StartDate: now,
		EndDate:   now.Add(7 * 24 * time.Hour),
		Days:      1,
	}).Error)

	app := onboardingTestApp(user.ID)
	body := fmt.Sprintf(`{"nickname":"阿白","petID":%d,"cityID":%d,"steps":0}`, pet.ID, city.ID)
	env := postJSON(t, app, "/api/user/onboarding/complete", body)

	// The conflict surfaces as a named business error, not a raw
	// database message.
	assert.Equal(t, 400, env.Code)

	var data struct {
		ErrorCode string `json:"errorCode"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ACTIVE_TRAVEL_EXISTS", data.ErrorCode)

	var count int64
	require.NoError(t, db.Model(&models.Travel{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
