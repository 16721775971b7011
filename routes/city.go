package routes

import (
	"errors"
	"time"

	"clawstep-server/models"
	"clawstep-server/storage"
	"clawstep-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

var errNoTravelTickets = errors.New("travel tickets exhausted")

// GET /api/cities/continents — continents with their cities.
func ListContinents(ctx iris.Context) {
	var continents []models.Continent
	err := storage.DB.Preload("Cities").
		Where("is_active = ?", true).
		Order("\"order\" ASC").
		Find(&continents).Error
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, continents)
}

// GET /api/cities — optionally filtered by continent.
func ListCities(ctx iris.Context) {
	query := storage.DB.Order("id ASC")
	if continentID, err := ctx.URLParamInt("continentID"); err == nil && continentID > 0 {
		query = query.Where("continent_id = ?", continentID)
	}

	var cities []models.City
	if err := query.Find(&cities).Error; err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, cities)
}

// GET /api/cities/{id:uint}
func GetCity(ctx iris.Context) {
	id, _ := ctx.Params().GetUint("id")

	var city models.City
	err := storage.DB.Preload("Continent").First(&city, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.FailNotFound(ctx)
		return
	}
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, city)
}

// GET /api/cities/mine — the user's visit ledger.
func MyCities(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var userCities []models.UserCity
	err := storage.DB.Preload("City").Preload("City.Continent").
		Where("user_id = ?", userID).
		Order("last_visit_at DESC").
		Find(&userCities).Error
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	utils.Success(ctx, userCities)
}

type SwitchCityInput struct {
	CityID uint `json:"cityID" validate:"required"`
}

// POST /api/cities/switch — move the pet to another unlocked city and
// bump the visit ledger.
func SwitchCity(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)

	var input SwitchCityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var city models.City
	err := storage.DB.First(&city, input.CityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.FailNotFound(ctx)
		return
	}
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	now := time.Now()
	var userCity models.UserCity
	err = storage.DB.Where("user_id = ? AND city_id = ?", userID, city.ID).
		First(&userCity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if !city.IsUnlocked {
			utils.Fail(ctx, utils.CodeError, "该城市尚未解锁")
			return
		}
		userCity = models.UserCity{
			UserID:       userID,
			CityID:       city.ID,
			IsUnlocked:   true,
			VisitCount:   1,
			FirstVisitAt: &now,
			LastVisitAt:  &now,
		}
		if err := storage.DB.Create(&userCity).Error; err != nil {
			utils.FailInternal(ctx)
			return
		}
		userCity.City = city
		utils.Success(ctx, userCity)
		return
	}
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	if !city.IsUnlocked && !userCity.IsUnlocked {
		utils.Fail(ctx, utils.CodeError, "该城市尚未解锁")
		return
	}

	err = storage.DB.Model(&userCity).Updates(map[string]interface{}{
		"visit_count":   gorm.Expr("visit_count + 1"),
		"last_visit_at": now,
	}).Error
	if err != nil {
		utils.FailInternal(ctx)
		return
	}

	userCity.City = city
	utils.Success(ctx, userCity)
}

// POST /api/cities/{id:uint}/unlock — spend one travel ticket to unlock
// a locked city for this user.
func UnlockCity(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	cityID, _ := ctx.Params().GetUint("id")

	var city models.City
	err := storage.DB.First(&city, cityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.FailNotFound(ctx)
		return
	}
	if err != nil {
		utils.FailInternal(ctx)
		return
	}
	if city.IsUnlocked {
		utils.Fail(ctx, utils.CodeError, "该城市无需解锁")
		return
	}

	var userCity models.UserCity
	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		// Conditional decrement doubles as the balance check.
		result := tx.Model(&models.User{}).
			Where("id = ? AND travel_tickets > 0", userID).
			Update("travel_tickets", gorm.Expr("travel_tickets - 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNoTravelTickets
		}

		err := tx.Where("user_id = ? AND city_id = ?", userID, cityID).
			First(&userCity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			userCity = models.UserCity{UserID: userID, CityID: cityID, IsUnlocked: true}
			return tx.Create(&userCity).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&userCity).Update("is_unlocked", true).Error
	})
	if err != nil {
		if errors.Is(err, errNoTravelTickets) {
			utils.Fail(ctx, utils.CodeError, "旅行票不足")
			return
		}
		utils.FailInternal(ctx)
		return
	}

	userCity.City = city
	utils.Success(ctx, userCity)
}
