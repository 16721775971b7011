package routes

import (
	"errors"
	"time"

	"clawstep-server/models"
	"clawstep-server/services"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// GET /api/pets — the pet catalog.
func ListPets(ctx iris.Context) {
	var pets []models.Pet
	if err := storage.DB.Order("id ASC").Find(&pets).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, pets)
}

// GET /api/pets/{id:uint}
func GetPet(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	var pet models.Pet
	err := storage.DB.First(&pet, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.FailNotFound(ctx)
		return
	}
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, pet)
}

// GET /api/pets/mine — the user's adopted pets, active one first.
func MyPets(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var userPets []models.UserPet
	err := storage.DB.Preload("Pet").
		Where("user_id = ?", userID).
		Order("is_active DESC, selected_at DESC").
		Find(&userPets).Error
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, userPets)
}

// GET /api/pets/stats — lifetime travel stats for the pet profile.
func GetPetStats(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	stats, err := services.NewAchievementService(storage.DB).Stats(userID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, stats)
}

// GET /api/pets/achievements — catalog annotated with unlocks.
func GetAchievements(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	achievements, err := services.NewAchievementService(storage.DB).List(userID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, achievements)
}

// GET /api/pets/dreams
func GetDreams(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	dreams, err := services.NewAchievementService(storage.DB).Dreams(userID)
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, dreams)
}

type SwitchPetInput struct {
	PetID    uint   `json:"petID" validate:"required"`
	Nickname string `json:"nickname"`
}

// POST /api/pets/switch — adopt (if needed) and activate a pet.
func SwitchPet(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input SwitchPetInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var pet models.Pet
	if err := storage.DB.First(&pet, input.PetID).Error; err != nil {
		utils.FailNotFound(ctx)
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserPet{}).
			Where("user_id = ?", userID).
			Update("is_active", false).Error; err != nil {
			return err
		}

		now := time.Now()
		var userPet models.UserPet
		err := tx.Where("user_id = ? AND pet_id = ?", userID, input.PetID).
			First(&userPet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.UserPet{
				UserID:     userID,
				PetID:      input.PetID,
				Nickname:   input.Nickname,
				IsActive:   true,
				SelectedAt: now,
			}).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"is_active": true, "selected_at": now}
		if input.Nickname != "" {
			updates["nickname"] = input.Nickname
		}
		return tx.Model(&userPet).Updates(updates).Error
	})
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	utils.Success(ctx, nil)
}
