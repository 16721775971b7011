package models

import "time"

type Achievement struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:64"`
	Description string    `json:"description" gorm:"size:255"`
	IconURL     string    `json:"iconUrl"`
	Condition   string    `json:"condition" gorm:"size:64"`
	Threshold   int       `json:"threshold"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserAchievement struct {
	ID            uint        `json:"id" gorm:"primaryKey"`
	UserID        uint        `json:"userID" gorm:"not null;uniqueIndex:idx_user_achievements"`
	AchievementID uint        `json:"achievementID" gorm:"not null;uniqueIndex:idx_user_achievements"`
	Achievement   Achievement `json:"achievement" gorm:"foreignKey:AchievementID"`
	UnlockedAt    time.Time   `json:"unlockedAt"`
}

// Dream is the onboarding wish a user writes for their pet.
type Dream struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
	Content   string    `json:"content" gorm:"size:255"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
