package models

import "time"

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

const (
	ChatMediaImage = "image"
	ChatMediaVoice = "voice"
)

// ChatSession is one conversation between a user and one of their pets.
// A user keeps at most one session per pet; ending it stamps the
// duration and a later message reactivates it.
type ChatSession struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	UserID          uint          `json:"userID" gorm:"not null;index:idx_chat_sessions_user_pet,unique"`
	User            User          `json:"-" gorm:"foreignKey:UserID"`
	PetID           uint          `json:"petID" gorm:"index:idx_chat_sessions_user_pet,unique"`
	Pet             Pet           `json:"pet" gorm:"foreignKey:PetID"`
	Title           string        `json:"title" gorm:"size:128"`
	IsActive        bool          `json:"isActive" gorm:"default:true"`
	MessageCount    int           `json:"messageCount"`
	DurationSeconds int           `json:"durationSeconds"`
	LastMessageAt   *time.Time    `json:"lastMessageAt"`
	EndedAt         *time.Time    `json:"endedAt"`
	Messages        []ChatMessage `json:"messages,omitempty" gorm:"foreignKey:SessionID"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type ChatMessage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID uint      `json:"sessionID" gorm:"not null;index"`
	Role      string    `json:"role" gorm:"size:16"`
	Content   string    `json:"content" gorm:"type:text"`
	MediaURL  string    `json:"mediaUrl"`
	MediaType string    `json:"mediaType" gorm:"size:16"`
	CreatedAt time.Time `json:"createdAt"`
}
