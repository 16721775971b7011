package services

import (
	"errors"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPlanNotFound      = NewServiceError("PLAN_NOT_FOUND", "订阅套餐不存在")
	ErrNoSubscription    = NewServiceError("NO_SUBSCRIPTION", "当前没有有效的订阅")
	ErrDuplicatePurchase = NewServiceError("DUPLICATE_TRANSACTION", "该交易已处理过")
	ErrNothingToRestore  = NewServiceError("NOTHING_TO_RESTORE", "没有可恢复的订阅")
	ErrAlreadyCancelled  = NewServiceError("ALREADY_CANCELLED", "订阅已取消")
)

// SubscriptionService manages Pro plans and recomputes the cached
// User.IsPro flag from the active subscription rows.
type SubscriptionService struct {
	DB *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{DB: db}
}

// SeedPlans upserts the two built-in plans. Prices are fen.
func (s *SubscriptionService) SeedPlans() error {
	plans := []models.SubscriptionPlan{
		{
			Name:          "月度会员",
			Period:        models.PlanPeriodMonthly,
			Price:         3600,
			OriginalPrice: 3600,
			DurationDays:  30,
			Description:   "按月订阅，随时取消",
			IsActive:      true,
		},
		{
			Name:          "年度会员",
			Period:        models.PlanPeriodYearly,
			Price:         28800,
			OriginalPrice: 43200,
			Discount:      35,
			DurationDays:  365,
			Description:   "一次开通，畅享一整年",
			IsActive:      true,
		},
	}

	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price", "original_price", "discount", "duration_days", "description", "is_active",
		}),
	}).Create(&plans).Error
}

func (s *SubscriptionService) ListPlans() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := s.DB.Where("is_active = ?", true).Order("price ASC").Find(&plans).Error
	return plans, err
}

// CalculateIsPro is the single source of truth for Pro status.
func (s *SubscriptionService) CalculateIsPro(userID uint) (bool, error) {
	var count int64
	err := s.DB.Model(&models.ProSubscription{}).
		Where("user_id = ? AND status = ? AND expires_at > ?",
			userID, models.SubscriptionStatusActive, time.Now()).
		Count(&count).Error
	return count > 0, err
}

func (s *SubscriptionService) updateUserProStatus(userID uint) error {
	isPro, err := s.CalculateIsPro(userID)
	if err != nil {
		return err
	}
	return s.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("is_pro", isPro).Error
}

// expireLapsed flips lapsed active rows to expired so status reads stay
// truthful without a background job.
func (s *SubscriptionService) expireLapsed(userID uint) error {
	return s.DB.Model(&models.ProSubscription{}).
		Where("user_id = ? AND status = ? AND expires_at <= ?",
			userID, models.SubscriptionStatusActive, time.Now()).
		Update("status", models.SubscriptionStatusExpired).Error
}

func (s *SubscriptionService) GetCurrent(userID uint) (*models.ProSubscription, error) {
	if err := s.expireLapsed(userID); err != nil {
		return nil, err
	}
	if err := s.updateUserProStatus(userID); err != nil {
		return nil, err
	}

	var sub models.ProSubscription
	err := s.DB.Preload("Plan").
		Where("user_id = ? AND status = ? AND expires_at > ?",
			userID, models.SubscriptionStatusActive, time.Now()).
		Order("expires_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

type SubscribeInput struct {
	PlanID        uint   `json:"planID" validate:"required"`
	TransactionID string `json:"transactionID"`
	Source        string `json:"source"`
}

// Subscribe records a purchase. Stacking extends from the current
// expiry rather than now, so renewing early never loses paid days.
func (s *SubscriptionService) Subscribe(userID uint, input SubscribeInput) (*models.ProSubscription, error) {
	var plan models.SubscriptionPlan
	err := s.DB.Where("id = ? AND is_active = ?", input.PlanID, true).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	if input.TransactionID != "" {
		var dup int64
		if err := s.DB.Model(&models.ProSubscription{}).
			Where("transaction_id = ?", input.TransactionID).Count(&dup).Error; err != nil {
			return nil, err
		}
		if dup > 0 {
			return nil, ErrDuplicatePurchase
		}
	}

	now := time.Now()
	startAt := now
	current, err := s.GetCurrent(userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		startAt = current.ExpiresAt
	}

	sub := models.ProSubscription{
		UserID:        userID,
		PlanID:        plan.ID,
		Status:        models.SubscriptionStatusActive,
		StartAt:       startAt,
		ExpiresAt:     startAt.Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
		TransactionID: input.TransactionID,
		Source:        input.Source,
	}
	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}

	if err := s.updateUserProStatus(userID); err != nil {
		return nil, err
	}

	sub.Plan = plan
	return &sub, nil
}

// VerifyReceipt is the App Store callback path. Receipt validation
// itself is out of scope; the transaction id is trusted after the
// duplicate check, same as Subscribe.
func (s *SubscriptionService) VerifyReceipt(userID uint, planID uint, transactionID string) (*models.ProSubscription, error) {
	return s.Subscribe(userID, SubscribeInput{
		PlanID:        planID,
		TransactionID: transactionID,
		Source:        "app_store",
	})
}

// Cancel stops renewal; paid time keeps running until expiry.
func (s *SubscriptionService) Cancel(userID uint) error {
	current, err := s.GetCurrent(userID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNoSubscription
	}
	if current.CancelledAt != nil {
		return ErrAlreadyCancelled
	}

	now := time.Now()
	return s.DB.Model(current).Update("cancelled_at", now).Error
}

// Restore re-derives Pro status from whatever subscription rows exist,
// for a user reinstalling on a new device.
func (s *SubscriptionService) Restore(userID uint) (*models.ProSubscription, error) {
	current, err := s.GetCurrent(userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNothingToRestore
	}
	return current, nil
}

func (s *SubscriptionService) History(userID uint) ([]models.ProSubscription, error) {
	var subs []models.ProSubscription
	err := s.DB.Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

type SubscriptionStats struct {
	IsPro          bool       `json:"isPro"`
	TotalPurchases int64      `json:"totalPurchases"`
	MemberSince    *time.Time `json:"memberSince"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

func (s *SubscriptionService) Stats(userID uint) (*SubscriptionStats, error) {
	stats := &SubscriptionStats{}

	isPro, err := s.CalculateIsPro(userID)
	if err != nil {
		return nil, err
	}
	stats.IsPro = isPro

	if err := s.DB.Model(&models.ProSubscription{}).
		Where("user_id = ?", userID).Count(&stats.TotalPurchases).Error; err != nil {
		return nil, err
	}

	var first models.ProSubscription
	if err := s.DB.Where("user_id = ?", userID).Order("created_at ASC").
		First(&first).Error; err == nil {
		stats.MemberSince = &first.CreatedAt
	}

	current, err := s.GetCurrent(userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		stats.ExpiresAt = &current.ExpiresAt
	}

	return stats, nil
}
