package services

import (
	"fmt"
	"testing"
	"time"

	"clawstep-server/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Pet{},
		&models.UserPet{},
		&models.Continent{},
		&models.City{},
		&models.UserCity{},
		&models.Travel{},
		&models.TravelPartnership{},
		&models.StepRecord{},
		&models.Friendship{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.LetterTemplate{},
		&models.Letter{},
		&models.Notification{},
		&models.SubscriptionPlan{},
		&models.ProSubscription{},
		&models.Coupon{},
		&models.UserCoupon{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Dream{},
	))

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, nickname string) *models.User {
	t.Helper()
	user := &models.User{Nickname: nickname}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestCity(t *testing.T, db *gorm.DB, name string) *models.City {
	t.Helper()
	continent := &models.Continent{Name: "亚洲", IsActive: true}
	require.NoError(t, db.Create(continent).Error)
	city := &models.City{ContinentID: continent.ID, Name: name, IsUnlocked: true}
	require.NoError(t, db.Create(city).Error)
	return city
}

var testCodeSeq int

func acceptedPartnership(t *testing.T, db *gorm.DB, inviterID, inviteeID uint) *models.TravelPartnership {
	t.Helper()
	testCodeSeq++
	now := time.Now()
	p := &models.TravelPartnership{
		InviterID:      inviterID,
		InviteeID:      &inviteeID,
		InvitationCode: fmt.Sprintf("TSTC%04d", testCodeSeq),
		Status:         models.PartnershipStatusAccepted,
		ExpiresAt:      now.Add(7 * 24 * time.Hour),
		AcceptedAt:     &now,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
