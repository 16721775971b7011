package services

import (
	"log"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Achievement conditions evaluated against the user's ledgers.
const (
	AchievementConditionTotalSteps       = "total_steps"
	AchievementConditionCitiesVisited    = "cities_visited"
	AchievementConditionTravelsCompleted = "travels_completed"
	AchievementConditionPartnerBound     = "partner_bound"
)

// AchievementService serves the pet profile screens: lifetime stats,
// the achievement catalog with per-user unlocks, and dreams.
type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

type PetStats struct {
	TravelDays    int     `json:"travelDays"`
	VisitedCities int64   `json:"visitedCities"`
	TotalSteps    int     `json:"totalSteps"`
	TotalDistance float64 `json:"totalDistance"`
}

// Stats aggregates the user's whole travel history, active travel
// included, for the pet profile.
func (s *AchievementService) Stats(userID uint) (*PetStats, error) {
	var stats PetStats

	var totals struct {
		Steps int
		Days  int
	}
	err := s.DB.Model(&models.Travel{}).
		Select("COALESCE(SUM(total_steps), 0) AS steps, COALESCE(SUM(days), 0) AS days").
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	stats.TotalSteps = totals.Steps
	stats.TravelDays = totals.Days
	stats.TotalDistance = DeriveDistance(totals.Steps)

	err = s.DB.Model(&models.UserCity{}).
		Where("user_id = ? AND visit_count > 0", userID).
		Count(&stats.VisitedCities).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

type AchievementView struct {
	models.Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// List returns the full catalog annotated with the user's unlocks,
// evaluating pending conditions first so fresh progress shows up.
func (s *AchievementService) List(userID uint) ([]AchievementView, error) {
	if err := s.Evaluate(userID); err != nil {
		log.Printf("achievement evaluation for user %d failed: %v", userID, err)
	}

	var catalog []models.Achievement
	if err := s.DB.Order("threshold ASC, id ASC").Find(&catalog).Error; err != nil {
		return nil, err
	}

	var unlocks []models.UserAchievement
	if err := s.DB.Where("user_id = ?", userID).Find(&unlocks).Error; err != nil {
		return nil, err
	}
	unlockedAt := make(map[uint]time.Time, len(unlocks))
	for _, unlock := range unlocks {
		unlockedAt[unlock.AchievementID] = unlock.UnlockedAt
	}

	views := make([]AchievementView, 0, len(catalog))
	for _, achievement := range catalog {
		view := AchievementView{Achievement: achievement}
		if at, ok := unlockedAt[achievement.ID]; ok {
			view.Unlocked = true
			view.UnlockedAt = &at
		}
		views = append(views, view)
	}
	return views, nil
}

// Evaluate unlocks every achievement whose condition the user now
// meets. Inserts are conflict-tolerant so repeat runs are no-ops.
func (s *AchievementService) Evaluate(userID uint) error {
	metrics, err := s.metrics(userID)
	if err != nil {
		return err
	}

	var catalog []models.Achievement
	if err := s.DB.Find(&catalog).Error; err != nil {
		return err
	}

	now := time.Now()
	for _, achievement := range catalog {
		value, ok := metrics[achievement.Condition]
		if !ok || value < achievement.Threshold {
			continue
		}
		err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserAchievement{
				UserID:        userID,
				AchievementID: achievement.ID,
				UnlockedAt:    now,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AchievementService) metrics(userID uint) (map[string]int, error) {
	var totalSteps int
	err := s.DB.Model(&models.Travel{}).
		Select("COALESCE(SUM(total_steps), 0)").
		Where("user_id = ?", userID).
		Scan(&totalSteps).Error
	if err != nil {
		return nil, err
	}

	var citiesVisited int64
	err = s.DB.Model(&models.UserCity{}).
		Where("user_id = ? AND visit_count > 0", userID).
		Count(&citiesVisited).Error
	if err != nil {
		return nil, err
	}

	var travelsCompleted int64
	err = s.DB.Model(&models.Travel{}).
		Where("user_id = ? AND status = ?", userID, models.TravelStatusCompleted).
		Count(&travelsCompleted).Error
	if err != nil {
		return nil, err
	}

	var partnerships int64
	err = s.DB.Model(&models.TravelPartnership{}).
		Where("status = ? AND (inviter_id = ? OR invitee_id = ?)",
			models.PartnershipStatusAccepted, userID, userID).
		Count(&partnerships).Error
	if err != nil {
		return nil, err
	}

	return map[string]int{
		AchievementConditionTotalSteps:       totalSteps,
		AchievementConditionCitiesVisited:    int(citiesVisited),
		AchievementConditionTravelsCompleted: int(travelsCompleted),
		AchievementConditionPartnerBound:     int(partnerships),
	}, nil
}

func (s *AchievementService) Dreams(userID uint) ([]models.Dream, error) {
	var dreams []models.Dream
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&dreams).Error
	return dreams, err
}
