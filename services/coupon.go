package services

import (
	"errors"
	"strings"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
)

var (
	ErrCouponNotFound = NewServiceError("COUPON_NOT_FOUND", "兑换码不存在")
	ErrCouponExpired  = NewServiceError("COUPON_EXPIRED", "兑换码已过期")
	ErrCouponUsedUp   = NewServiceError("COUPON_USED_UP", "兑换码已被用完")
	ErrCouponRedeemed = NewServiceError("COUPON_REDEEMED", "你已经兑换过这个码了")
)

// CouponService redeems codes for travel tickets or Pro days.
type CouponService struct {
	DB *gorm.DB
}

func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{DB: db}
}

type RedeemResult struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// Redeem applies the coupon inside one transaction: the usage counter,
// the per-user redemption row, and the granted benefit move together.
func (s *CouponService) Redeem(userID uint, code string) (*RedeemResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var result *RedeemResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var coupon models.Coupon
		err := tx.Where("code = ? AND is_active = ?", code, true).First(&coupon).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCouponNotFound
		}
		if err != nil {
			return err
		}

		if coupon.ExpiresAt != nil && time.Now().After(*coupon.ExpiresAt) {
			return ErrCouponExpired
		}

		var redeemed int64
		if err := tx.Model(&models.UserCoupon{}).
			Where("user_id = ? AND coupon_id = ?", userID, coupon.ID).
			Count(&redeemed).Error; err != nil {
			return err
		}
		if redeemed > 0 {
			return ErrCouponRedeemed
		}

		// Conditional increment guards the max-uses cap under
		// concurrent redemptions.
		bump := tx.Model(&models.Coupon{}).
			Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", coupon.ID).
			Update("used_count", gorm.Expr("used_count + 1"))
		if bump.Error != nil {
			return bump.Error
		}
		if bump.RowsAffected == 0 {
			return ErrCouponUsedUp
		}

		now := time.Now()
		userCoupon := models.UserCoupon{
			UserID:   userID,
			CouponID: coupon.ID,
			Status:   models.CouponStatusUsed,
			UsedAt:   &now,
		}
		if err := tx.Create(&userCoupon).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCouponRedeemed
			}
			return err
		}

		switch coupon.Type {
		case models.CouponTypeTickets:
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Update("travel_tickets", gorm.Expr("travel_tickets + ?", coupon.Value)).Error; err != nil {
				return err
			}
		case models.CouponTypeProDays:
			sub := models.ProSubscription{
				UserID:    userID,
				Status:    models.SubscriptionStatusActive,
				StartAt:   now,
				ExpiresAt: now.Add(time.Duration(coupon.Value) * 24 * time.Hour),
				Source:    "coupon",
			}
			if err := tx.Create(&sub).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Update("is_pro", true).Error; err != nil {
				return err
			}
		}

		result = &RedeemResult{Type: coupon.Type, Value: coupon.Value}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CouponService) History(userID uint) ([]models.UserCoupon, error) {
	var coupons []models.UserCoupon
	err := s.DB.Preload("Coupon").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&coupons).Error
	return coupons, err
}
