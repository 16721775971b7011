package routes

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"clawstep-server/models"
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// GET /api/user/profile
func GetProfile(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.FailNotFound(ctx)
		return
	}

	storage.DB.Model(&user).Update("last_active_at", time.Now())
	utils.Success(ctx, user)
}

type UpdateProfileInput struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Language *string `json:"language" validate:"omitempty,oneof=zh_CN en_US"`
}

// PATCH /api/user/profile
func UpdateProfile(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input UpdateProfileInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Nickname != nil {
		updates["nickname"] = *input.Nickname
	}
	if input.Avatar != nil {
		updates["avatar"] = *input.Avatar
	}
	if input.Language != nil {
		updates["language"] = *input.Language
	}
	if len(updates) == 0 {
		utils.Fail(ctx, utils.CodeError, "没有需要更新的字段")
		return
	}

	if err := storage.DB.Model(&models.User{}).Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}

	var user models.User
	storage.DB.First(&user, userID)
	utils.Success(ctx, user)
}

type CompleteOnboardingInput struct {
	Nickname string `json:"nickname" validate:"required"`
	PetID    uint   `json:"petID" validate:"required"`
	PetName  string `json:"petName"`
	CityID   uint   `json:"cityID" validate:"required"`
	Dream    string `json:"dream"`
	Steps    int    `json:"steps" validate:"min=0"`
}

// POST /api/user/onboarding/complete — one transaction covering the
// profile, the chosen pet, the first city, the first travel and the
// day-one step record.
func CompleteOnboarding(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input CompleteOnboardingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var travel models.Travel
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		var activeTravels int64
		err := tx.Model(&models.Travel{}).
			Where("user_id = ? AND status = ?", userID, models.TravelStatusActive).
			Count(&activeTravels).Error
		if err != nil {
			return err
		}
		if activeTravels > 0 {
			return services.ErrActiveTravelExists
		}

		var pet models.Pet
		if err := tx.First(&pet, input.PetID).Error; err != nil {
			return err
		}
		var city models.City
		if err := tx.First(&city, input.CityID).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"nickname":             input.Nickname,
			"onboarding_completed": true,
			"last_active_at":       now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.UserPet{
			UserID:     userID,
			PetID:      pet.ID,
			Nickname:   input.PetName,
			IsActive:   true,
			SelectedAt: now,
		}).Error; err != nil {
			return err
		}

		if input.Dream != "" {
			if err := tx.Create(&models.Dream{UserID: userID, Content: input.Dream}).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&models.UserCity{
			UserID:       userID,
			CityID:       city.ID,
			VisitCount:   1,
			FirstVisitAt: &now,
			LastVisitAt:  &now,
		}).Error; err != nil {
			return err
		}

		travel = models.Travel{
			UserID:    userID,
			CityID:    city.ID,
			PetID:     pet.ID,
			Type:      models.TravelTypeSingle,
			Status:    models.TravelStatusActive,
			StartDate: now,
			EndDate:   now.Add(services.TravelDuration),
			Days:      1,
		}
		if err := tx.Create(&travel).Error; err != nil {
			return err
		}

		if input.Steps > 0 {
			record := models.StepRecord{
				UserID:   userID,
				CityID:   city.ID,
				Date:     now.Format("2006-01-02"),
				Steps:    input.Steps,
				Calories: services.DeriveCalories(input.Steps),
				Distance: services.DeriveDistance(input.Steps),
				GoalMet:  input.Steps >= services.DailyStepGoal,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			if err := tx.Model(&travel).Updates(map[string]interface{}{
				"total_steps":    record.Steps,
				"total_calories": record.Calories,
			}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		// The partial unique index catches the race the pre-check misses.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = services.ErrActiveTravelExists
		}
		var svcErr *services.ServiceError
		if errors.As(err, &svcErr) {
			handleServiceError(ctx, err)
			return
		}
		log.Printf("onboarding for user %d failed: %v", userID, err)
		utils.Fail(ctx, utils.CodeError, "初始化失败，请稍后再试")
		return
	}

	utils.Success(ctx, iris.Map{"travel": travel})
}

type PushTokenInput struct {
	Token  string `json:"token" validate:"required"`
	Enable bool   `json:"enable"`
}

// PATCH /api/user/pushtoken — add or remove one device token.
func AlterPushToken(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input PushTokenInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		utils.FailNotFound(ctx)
		return
	}

	var tokens []string
	if user.PushTokens != nil {
		json.Unmarshal(user.PushTokens, &tokens)
	}

	if input.Enable {
		if !slices.Contains(tokens, input.Token) {
			tokens = append(tokens, input.Token)
		}
	} else {
		if idx := slices.Index(tokens, input.Token); idx >= 0 {
			tokens = slices.Delete(tokens, idx, idx+1)
		}
	}

	raw, _ := json.Marshal(tokens)
	if err := storage.DB.Model(&user).Update("push_tokens", raw).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, nil)
}

type NotificationSettingsInput struct {
	AllowsNotifications *bool `json:"allowsNotifications" validate:"required"`
}

// PATCH /api/user/settings/notifications
func AllowsNotifications(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input NotificationSettingsInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{"allows_notifications": *input.AllowsNotifications}
	if !*input.AllowsNotifications {
		updates["push_tokens"] = nil
	}

	if err := storage.DB.Model(&models.User{}).Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, nil)
}

// DELETE /api/user/account — removes the account and the per-user rows
// that reference it.
func DeleteAccount(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("session_id IN (?)",
			tx.Model(&models.ChatSession{}).Select("id").Where("user_id = ?", userID),
		).Delete(&models.ChatMessage{}).Error
		if err != nil {
			return err
		}

		for _, m := range []interface{}{
			&models.UserPet{}, &models.UserCity{}, &models.Travel{},
			&models.StepRecord{}, &models.Letter{}, &models.Notification{},
			&models.ProSubscription{}, &models.UserCoupon{}, &models.Dream{},
			&models.UserAchievement{}, &models.ChatSession{}, &models.Feedback{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.SuccessMsg(ctx, "账号已注销", nil)
}
