package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationTypeSystem      = "system"
	NotificationTypeTravel      = "travel"
	NotificationTypePartnership = "partnership"
	NotificationTypeFriendship  = "friendship"
	NotificationTypeLetter      = "letter"
)

type Notification struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"userID" gorm:"not null;index"`
	User      User           `json:"-" gorm:"foreignKey:UserID"`
	Type      string         `json:"type" gorm:"size:32;index"`
	Title     string         `json:"title" gorm:"size:128"`
	Body      string         `json:"body" gorm:"type:text"`
	Data      datatypes.JSON `json:"data"`
	IsRead    bool           `json:"isRead" gorm:"default:false;index"`
	ReadAt    *time.Time     `json:"readAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
