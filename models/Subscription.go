package models

import "time"

const (
	PlanPeriodMonthly = "monthly"
	PlanPeriodYearly  = "yearly"

	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// SubscriptionPlan prices are in fen to avoid float money.
type SubscriptionPlan struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"size:64"`
	Period        string    `json:"period" gorm:"size:16;uniqueIndex"`
	Price         int       `json:"price"`
	OriginalPrice int       `json:"originalPrice"`
	Discount      int       `json:"discount"`
	DurationDays  int       `json:"durationDays"`
	Description   string    `json:"description" gorm:"size:255"`
	IsActive      bool      `json:"isActive" gorm:"default:true"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ProSubscription struct {
	ID            uint             `json:"id" gorm:"primaryKey"`
	UserID        uint             `json:"userID" gorm:"not null;index"`
	User          User             `json:"-" gorm:"foreignKey:UserID"`
	PlanID        uint             `json:"planID" gorm:"not null"`
	Plan          SubscriptionPlan `json:"plan" gorm:"foreignKey:PlanID"`
	Status        string           `json:"status" gorm:"size:16;default:active;index"`
	StartAt       time.Time        `json:"startAt"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	CancelledAt   *time.Time       `json:"cancelledAt"`
	TransactionID string           `json:"transactionID" gorm:"size:128;index"`
	Source        string           `json:"source" gorm:"size:32"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (s *ProSubscription) IsActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.Before(s.ExpiresAt)
}
