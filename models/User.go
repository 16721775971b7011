package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	// Social-login accounts have no phone; the partial index lets any
	// number of rows carry the empty string.
	Phone                string         `json:"phone" gorm:"size:20;index:idx_users_phone,unique,where:phone <> ''"`
	Openid               string         `json:"openid" gorm:"index;size:128"`
	Email                string         `json:"email"`
	Username             string         `json:"username"`
	Nickname             string         `json:"nickname"`
	Avatar               string         `json:"avatar"`
	Language             string         `json:"language" gorm:"size:16;default:zh_CN"`
	IsPro                bool           `json:"isPro"`
	TravelTickets        int            `json:"travelTickets"`
	FriendInvitationCode *string        `json:"friendInvitationCode" gorm:"uniqueIndex;size:16"`
	FriendCodeCreatedAt  *time.Time     `json:"friendCodeCreatedAt"`
	PushTokens           datatypes.JSON `json:"pushTokens"`
	AllowsNotifications  *bool          `json:"allowsNotifications"`
	OnboardingCompleted  bool           `json:"onboardingCompleted"`
	LastActiveAt         *time.Time     `json:"lastActiveAt" gorm:"index"`
}

// PublicProfile is the subset of User shown to other users
// (travel partners, friends, invitation previews).
type PublicProfile struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

func (u *User) Public() PublicProfile {
	nickname := u.Nickname
	if nickname == "" {
		nickname = "旅伴"
	}
	return PublicProfile{ID: u.ID, Nickname: nickname, Avatar: u.Avatar}
}

// Custom JSON marshaling so PushTokens renders as a string array
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		PushTokens []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		PushTokens: []string{},
		Alias:      (*Alias)(u),
	}

	if u.PushTokens != nil {
		var tokens []string
		if err := json.Unmarshal(u.PushTokens, &tokens); err == nil {
			aux.PushTokens = tokens
		}
	}

	return json.Marshal(aux)
}
