package routes

import (
	"time"

	"clawstep-server/models"
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
)

// GET /api/home — one call backing the home screen: profile, active
// pet, current travel, today's steps and unread counters.
func GetHomeSummary(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.FailNotFound(ctx)
		return
	}
	storage.DB.Model(&user).Update("last_active_at", time.Now())

	svc := travelService()
	travel, err := svc.GetCurrentTravel(userID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	var todaySteps *models.StepRecord
	if travel != nil {
		todaySteps, _ = svc.GetTodaySteps(userID)
	}

	var activePet *models.UserPet
	var userPet models.UserPet
	if err := storage.DB.Preload("Pet").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&userPet).Error; err == nil {
		activePet = &userPet
	}

	notifSvc := services.NewNotificationService(storage.DB, nil)
	unreadNotifications, _ := notifSvc.UnreadCount(userID)

	letterSvc := services.NewLetterService(storage.DB, nil)
	unreadLetters, _ := letterSvc.UnreadCount(userID)

	summary := iris.Map{
		"user":                user,
		"pet":                 activePet,
		"travel":              travel,
		"todaySteps":          todaySteps,
		"dailyStepGoal":       services.DailyStepGoal,
		"unreadNotifications": unreadNotifications,
		"unreadLetters":       unreadLetters,
	}

	if travel != nil && todaySteps != nil {
		summary["todayDistance"] = services.DeriveDistance(todaySteps.Steps)
	}

	utils.Success(ctx, summary)
}
