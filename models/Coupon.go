package models

import "time"

const (
	CouponTypeTickets  = "travel_tickets"
	CouponTypeProDays  = "pro_days"
	CouponStatusUnused = "unused"
	CouponStatusUsed   = "used"
)

type Coupon struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Code      string     `json:"code" gorm:"size:16;uniqueIndex"`
	Type      string     `json:"type" gorm:"size:32"`
	Value     int        `json:"value"`
	MaxUses   int        `json:"maxUses"`
	UsedCount int        `json:"usedCount"`
	ExpiresAt *time.Time `json:"expiresAt"`
	IsActive  bool       `json:"isActive" gorm:"default:true"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// UserCoupon records one user's redemption; a user can redeem a given
// coupon at most once.
type UserCoupon struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"userID" gorm:"not null;uniqueIndex:idx_user_coupons_user_coupon"`
	User      User       `json:"-" gorm:"foreignKey:UserID"`
	CouponID  uint       `json:"couponID" gorm:"not null;uniqueIndex:idx_user_coupons_user_coupon"`
	Coupon    Coupon     `json:"coupon" gorm:"foreignKey:CouponID"`
	Status    string     `json:"status" gorm:"size:16;default:used"`
	UsedAt    *time.Time `json:"usedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}
