package models

import (
	"time"

	"gorm.io/datatypes"
)

// LetterTemplate is authored content scheduled for delivery, written in
// one pet's voice. HistoryItems is the ordered source list merged into
// each user's letter history.
type LetterTemplate struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	PetID        uint           `json:"petID" gorm:"not null;index"`
	Pet          Pet            `json:"pet" gorm:"foreignKey:PetID"`
	Title        string         `json:"title" gorm:"size:128"`
	Content      string         `json:"content" gorm:"type:text"`
	Sender       string         `json:"sender" gorm:"size:64"`
	ImageURL     string         `json:"imageUrl"`
	HistoryItems datatypes.JSON `json:"historyItems"`
	ScheduledAt  *time.Time     `json:"scheduledAt"`
	IsActive     bool           `json:"isActive" gorm:"default:true;index"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Letter is one user's copy of a delivered template.
type Letter struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	UserID      uint           `json:"userID" gorm:"not null;uniqueIndex:idx_letters_user_template"`
	User        User           `json:"-" gorm:"foreignKey:UserID"`
	TemplateID  uint           `json:"templateID" gorm:"not null;uniqueIndex:idx_letters_user_template"`
	Title       string         `json:"title" gorm:"size:128"`
	Content     string         `json:"content" gorm:"type:text"`
	Sender      string         `json:"sender" gorm:"size:64"`
	ImageURL    string         `json:"imageUrl"`
	PreviewText string         `json:"previewText" gorm:"size:255"`
	History     datatypes.JSON `json:"history"`
	IsRead      bool           `json:"isRead" gorm:"default:false;index"`
	ReadAt      *time.Time     `json:"readAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// LetterHistoryItem is the JSON shape stored in Letter.History and
// LetterTemplate.HistoryItems. Merge matches by TemplateItemID and keeps
// the user's original ID and CreatedAt for items already delivered.
type LetterHistoryItem struct {
	ID             string    `json:"id"`
	TemplateItemID string    `json:"templateItemId"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}
