package services

import (
	"errors"
	"math"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	TravelDuration       = 7 * 24 * time.Hour
	CaloriesPerStep      = 0.034
	DailyStepGoal        = 4000
	KilometersPerStep    = 0.0007
	stepRecordDateLayout = "2006-01-02"
)

var (
	ErrActiveTravelExists = NewServiceError("ACTIVE_TRAVEL_EXISTS", "已有进行中的旅行")
	ErrNoActiveTravel     = NewServiceError("NO_ACTIVE_TRAVEL", "当前没有进行中的旅行")
	ErrCityNotFound       = NewServiceError("CITY_NOT_FOUND", "城市不存在")
	ErrAlreadyDual        = NewServiceError("ALREADY_DUAL", "当前旅行已是双人模式")
	ErrInvalidPartnership = NewServiceError("INVALID_PARTNERSHIP", "搭档关系无效")
	ErrInvalidSteps       = NewServiceError("INVALID_STEPS", "步数无效")
)

// TravelService owns the 7-day travel session lifecycle and the daily
// step ledger that feeds its totals.
type TravelService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewTravelService(db *gorm.DB, notifications *NotificationService) *TravelService {
	return &TravelService{DB: db, Notifications: notifications}
}

// CompleteExpiredTravels lazily closes active travels past their 7-day
// window. Every read path calls this first; there is no background job
// racing it, and the update is conditional so repeats are no-ops.
func (s *TravelService) CompleteExpiredTravels(userID uint) error {
	now := time.Now()
	return s.DB.Model(&models.Travel{}).
		Where("user_id = ? AND status = ? AND start_date < ?",
			userID, models.TravelStatusActive, now.Add(-TravelDuration)).
		Updates(map[string]interface{}{
			"status":       models.TravelStatusCompleted,
			"end_date":     now,
			"completed_at": now,
		}).Error
}

func (s *TravelService) GetCurrentTravel(userID uint) (*models.Travel, error) {
	if err := s.CompleteExpiredTravels(userID); err != nil {
		return nil, err
	}

	var travel models.Travel
	err := s.DB.Preload("City").Preload("City.Continent").Preload("Pet").
		Where("user_id = ? AND status = ?", userID, models.TravelStatusActive).
		First(&travel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &travel, nil
}

// validatePartnership checks that the partnership is accepted, includes
// the caller, and that partnerID is the caller's counterpart in it.
func (s *TravelService) validatePartnership(userID, partnerID, partnershipID uint) error {
	var partnership models.TravelPartnership
	if err := s.DB.First(&partnership, partnershipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidPartnership
		}
		return err
	}

	if partnership.Status != models.PartnershipStatusAccepted {
		return ErrInvalidPartnership
	}

	other, ok := partnership.OtherParty(userID)
	if !ok || other != partnerID {
		return ErrInvalidPartnership
	}
	return nil
}

type StartTravelInput struct {
	CityID        uint   `json:"cityID" validate:"required"`
	Type          string `json:"type" validate:"omitempty,oneof=single dual"`
	PetID         uint   `json:"petID"`
	PartnerID     *uint  `json:"partnerID"`
	PartnershipID *uint  `json:"partnershipID"`
}

func (s *TravelService) StartTravel(userID uint, input StartTravelInput) (*models.Travel, error) {
	if err := s.CompleteExpiredTravels(userID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.DB.Model(&models.Travel{}).
		Where("user_id = ? AND status = ?", userID, models.TravelStatusActive).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrActiveTravelExists
	}

	var city models.City
	if err := s.DB.First(&city, input.CityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}

	travelType := input.Type
	if travelType == "" {
		travelType = models.TravelTypeSingle
	}

	if travelType == models.TravelTypeDual {
		if input.PartnerID == nil || input.PartnershipID == nil {
			return nil, ErrInvalidPartnership
		}
		if err := s.validatePartnership(userID, *input.PartnerID, *input.PartnershipID); err != nil {
			return nil, err
		}
	}

	petID := input.PetID
	if petID == 0 {
		var userPet models.UserPet
		if err := s.DB.Where("user_id = ? AND is_active = ?", userID, true).
			First(&userPet).Error; err == nil {
			petID = userPet.PetID
		}
	}

	now := time.Now()
	travel := models.Travel{
		UserID:        userID,
		CityID:        city.ID,
		PetID:         petID,
		Type:          travelType,
		PartnerID:     input.PartnerID,
		PartnershipID: input.PartnershipID,
		Status:        models.TravelStatusActive,
		StartDate:     now,
		EndDate:       now.Add(TravelDuration),
		Days:          1,
	}

	// The partial unique index is the real guard; a concurrent start
	// that slipped past the count check surfaces here as a conflict.
	if err := s.DB.Create(&travel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveTravelExists
		}
		return nil, err
	}

	s.touchUserCity(userID, city.ID, now)

	if travelType == models.TravelTypeDual && s.Notifications != nil {
		var inviter models.User
		nickname := "你的旅伴"
		if err := s.DB.First(&inviter, userID).Error; err == nil && inviter.Nickname != "" {
			nickname = inviter.Nickname
		}
		s.Notifications.Create(*input.PartnerID, models.NotificationTypeTravel,
			"双人旅行开始啦", nickname+"邀请你一起去"+city.Name+"旅行",
			map[string]interface{}{"travelID": travel.ID, "cityID": city.ID})
	}

	travel.City = city
	return &travel, nil
}

// touchUserCity bumps the visit ledger for a city on travel start.
func (s *TravelService) touchUserCity(userID, cityID uint, now time.Time) {
	var userCity models.UserCity
	err := s.DB.Where("user_id = ? AND city_id = ?", userID, cityID).First(&userCity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.DB.Create(&models.UserCity{
			UserID:       userID,
			CityID:       cityID,
			VisitCount:   1,
			FirstVisitAt: &now,
			LastVisitAt:  &now,
		})
		return
	}
	if err != nil {
		return
	}
	s.DB.Model(&userCity).Updates(map[string]interface{}{
		"visit_count":   gorm.Expr("visit_count + 1"),
		"last_visit_at": now,
	})
}

func (s *TravelService) SwitchToDual(userID, partnerID, partnershipID uint) (*models.Travel, error) {
	travel, err := s.GetCurrentTravel(userID)
	if err != nil {
		return nil, err
	}
	if travel == nil {
		return nil, ErrNoActiveTravel
	}
	if travel.Type == models.TravelTypeDual {
		return nil, ErrAlreadyDual
	}

	if err := s.validatePartnership(userID, partnerID, partnershipID); err != nil {
		return nil, err
	}

	if err := s.DB.Model(travel).Updates(map[string]interface{}{
		"type":           models.TravelTypeDual,
		"partner_id":     partnerID,
		"partnership_id": partnershipID,
	}).Error; err != nil {
		return nil, err
	}

	travel.Type = models.TravelTypeDual
	travel.PartnerID = &partnerID
	travel.PartnershipID = &partnershipID

	if s.Notifications != nil {
		s.Notifications.Create(partnerID, models.NotificationTypeTravel,
			"双人旅行开始啦", "你的旅伴把当前旅行切换成了双人模式",
			map[string]interface{}{"travelID": travel.ID})
	}

	return travel, nil
}

func (s *TravelService) GetCurrentCompanions(userID uint) ([]models.PublicProfile, error) {
	travel, err := s.GetCurrentTravel(userID)
	if err != nil {
		return nil, err
	}

	companions := []models.PublicProfile{}
	if travel == nil || travel.Type != models.TravelTypeDual || travel.PartnerID == nil {
		return companions, nil
	}

	var partner models.User
	if err := s.DB.First(&partner, *travel.PartnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return companions, nil
		}
		return nil, err
	}

	companions = append(companions, partner.Public())
	return companions, nil
}

func DeriveCalories(steps int) int {
	return int(math.Round(float64(steps) * CaloriesPerStep))
}

func DeriveDistance(steps int) float64 {
	return math.Round(float64(steps)*KilometersPerStep*100) / 100
}

type SyncStepsInput struct {
	Steps    int    `json:"steps" validate:"min=0"`
	Calories *int   `json:"calories"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type SyncStepsResult struct {
	Record        models.StepRecord `json:"record"`
	TotalSteps    int               `json:"totalSteps"`
	TotalCalories int               `json:"totalCalories"`
	GoalMet       bool              `json:"goalMet"`
}

// SyncSteps upserts the day's ledger row, then, for same-day syncs,
// recomputes travel totals as the sum over the ledger since the travel
// started and mirrors them into the city visit ledger. Re-syncing a day
// overwrites, it does not accumulate.
func (s *TravelService) SyncSteps(userID uint, input SyncStepsInput) (*SyncStepsResult, error) {
	if input.Steps < 0 {
		return nil, ErrInvalidSteps
	}

	travel, err := s.GetCurrentTravel(userID)
	if err != nil {
		return nil, err
	}
	if travel == nil {
		return nil, ErrNoActiveTravel
	}

	today := time.Now().Format(stepRecordDateLayout)
	date := input.Date
	if date == "" {
		date = today
	}

	calories := DeriveCalories(input.Steps)
	if input.Calories != nil {
		calories = *input.Calories
	}

	record := models.StepRecord{
		UserID:   userID,
		CityID:   travel.CityID,
		Date:     date,
		Steps:    input.Steps,
		Calories: calories,
		Distance: DeriveDistance(input.Steps),
		GoalMet:  input.Steps >= DailyStepGoal,
	}

	err = s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "city_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"steps", "calories", "distance", "goal_met", "updated_at",
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	result := &SyncStepsResult{
		Record:        record,
		TotalSteps:    travel.TotalSteps,
		TotalCalories: travel.TotalCalories,
		GoalMet:       record.GoalMet,
	}

	if date != today {
		return result, nil
	}

	var totals struct {
		Steps    int
		Calories int
	}
	err = s.DB.Model(&models.StepRecord{}).
		Select("COALESCE(SUM(steps), 0) AS steps, COALESCE(SUM(calories), 0) AS calories").
		Where("user_id = ? AND city_id = ? AND date >= ?",
			userID, travel.CityID, travel.StartDate.Format(stepRecordDateLayout)).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	days := int(time.Since(travel.StartDate).Hours()/24) + 1
	if err := s.DB.Model(travel).Updates(map[string]interface{}{
		"total_steps":    totals.Steps,
		"total_calories": totals.Calories,
		"days":           days,
	}).Error; err != nil {
		return nil, err
	}

	s.DB.Model(&models.UserCity{}).
		Where("user_id = ? AND city_id = ?", userID, travel.CityID).
		Updates(map[string]interface{}{
			"total_steps":    totals.Steps,
			"total_calories": totals.Calories,
		})

	result.TotalSteps = totals.Steps
	result.TotalCalories = totals.Calories
	return result, nil
}

func (s *TravelService) GetTodaySteps(userID uint) (*models.StepRecord, error) {
	travel, err := s.GetCurrentTravel(userID)
	if err != nil {
		return nil, err
	}
	if travel == nil {
		return nil, ErrNoActiveTravel
	}

	today := time.Now().Format(stepRecordDateLayout)
	var record models.StepRecord
	err = s.DB.Where("user_id = ? AND city_id = ? AND date = ?",
		userID, travel.CityID, today).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.StepRecord{
			UserID: userID,
			CityID: travel.CityID,
			Date:   today,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type TravelStatistics struct {
	TotalTravels  int64 `json:"totalTravels"`
	TotalSteps    int   `json:"totalSteps"`
	TotalCalories int   `json:"totalCalories"`
	TotalDays     int   `json:"totalDays"`
	CitiesVisited int64 `json:"citiesVisited"`
}

func (s *TravelService) GetStatistics(userID uint) (*TravelStatistics, error) {
	if err := s.CompleteExpiredTravels(userID); err != nil {
		return nil, err
	}

	var stats TravelStatistics
	err := s.DB.Model(&models.Travel{}).
		Where("user_id = ? AND status = ?", userID, models.TravelStatusCompleted).
		Count(&stats.TotalTravels).Error
	if err != nil {
		return nil, err
	}

	var totals struct {
		Steps    int
		Calories int
		Days     int
	}
	err = s.DB.Model(&models.Travel{}).
		Select("COALESCE(SUM(total_steps), 0) AS steps, COALESCE(SUM(total_calories), 0) AS calories, COALESCE(SUM(days), 0) AS days").
		Where("user_id = ? AND status = ?", userID, models.TravelStatusCompleted).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	stats.TotalSteps = totals.Steps
	stats.TotalCalories = totals.Calories
	stats.TotalDays = totals.Days

	err = s.DB.Model(&models.Travel{}).
		Where("user_id = ? AND status = ?", userID, models.TravelStatusCompleted).
		Distinct("city_id").
		Count(&stats.CitiesVisited).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

type CityTravelStatistics struct {
	CityID        uint   `json:"cityID"`
	CityName      string `json:"cityName"`
	TravelCount   int64  `json:"travelCount"`
	TotalSteps    int    `json:"totalSteps"`
	TotalCalories int    `json:"totalCalories"`
}

func (s *TravelService) GetCityStatistics(userID uint) ([]CityTravelStatistics, error) {
	if err := s.CompleteExpiredTravels(userID); err != nil {
		return nil, err
	}

	var stats []CityTravelStatistics
	err := s.DB.Model(&models.Travel{}).
		Select("travels.city_id AS city_id, cities.name AS city_name, COUNT(*) AS travel_count, COALESCE(SUM(travels.total_steps), 0) AS total_steps, COALESCE(SUM(travels.total_calories), 0) AS total_calories").
		Joins("JOIN cities ON cities.id = travels.city_id").
		Where("travels.user_id = ? AND travels.status = ?", userID, models.TravelStatusCompleted).
		Group("travels.city_id, cities.name").
		Order("total_steps DESC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []CityTravelStatistics{}
	}
	return stats, nil
}
