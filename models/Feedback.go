package models

import (
	"time"

	"gorm.io/datatypes"
)

type Feedback struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"userID" gorm:"not null;index"`
	User      User           `json:"-" gorm:"foreignKey:UserID"`
	Category  string         `json:"category" gorm:"size:32"`
	Content   string         `json:"content" gorm:"type:text"`
	Images    datatypes.JSON `json:"images"`
	Contact   string         `json:"contact" gorm:"size:128"`
	CreatedAt time.Time      `json:"createdAt"`
}
