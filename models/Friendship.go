package models

import "time"

// Friendship is a Pro-only pair bond made through a friend code. One row
// per pair, userID < friendID by convention at creation time. Rows past
// the unbind grace window are hard-deleted by the sweep.
type Friendship struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	UserID            uint       `json:"userID" gorm:"not null;uniqueIndex:idx_friendships_pair"`
	User              User       `json:"-" gorm:"foreignKey:UserID"`
	FriendID          uint       `json:"friendID" gorm:"not null;uniqueIndex:idx_friendships_pair"`
	Friend            User       `json:"-" gorm:"foreignKey:FriendID"`
	BoundAt           time.Time  `json:"boundAt"`
	UnbindRequestedAt *time.Time `json:"unbindRequestedAt"`
	UnbindRequestedBy *uint      `json:"unbindRequestedBy"`
	UnbindExpiresAt   *time.Time `json:"unbindExpiresAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (f *Friendship) OtherParty(userID uint) uint {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}
