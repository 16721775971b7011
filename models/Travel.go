package models

import "time"

const (
	TravelStatusActive    = "active"
	TravelStatusCompleted = "completed"
	TravelStatusPaused    = "paused"

	TravelTypeSingle = "single"
	TravelTypeDual   = "dual"
)

// Travel is a 7-day session in one city. The partial unique index keeps
// at most one active row per user regardless of concurrent starts.
type Travel struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	UserID        uint               `json:"userID" gorm:"not null;index:idx_travels_user_active,unique,where:status = 'active'"`
	User          User               `json:"-" gorm:"foreignKey:UserID"`
	CityID        uint               `json:"cityID" gorm:"not null;index"`
	City          City               `json:"city" gorm:"foreignKey:CityID"`
	PetID         uint               `json:"petID"`
	Pet           Pet                `json:"pet" gorm:"foreignKey:PetID"`
	Type          string             `json:"type" gorm:"size:16;default:single"`
	PartnerID     *uint              `json:"partnerID"`
	Partner       *User              `json:"-" gorm:"foreignKey:PartnerID"`
	PartnershipID *uint              `json:"partnershipID"`
	Partnership   *TravelPartnership `json:"-" gorm:"foreignKey:PartnershipID"`
	Status        string             `json:"status" gorm:"size:16;default:active;index"`
	StartDate     time.Time          `json:"startDate"`
	EndDate       time.Time          `json:"endDate"`
	CompletedAt   *time.Time         `json:"completedAt"`
	TotalSteps    int                `json:"totalSteps"`
	TotalCalories int                `json:"totalCalories"`
	Days          int                `json:"days"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (t *Travel) IsExpired(now time.Time) bool {
	return t.Status == TravelStatusActive && now.Sub(t.StartDate) > 7*24*time.Hour
}

const (
	PartnershipStatusPending  = "pending"
	PartnershipStatusAccepted = "accepted"
	PartnershipStatusExpired  = "expired"
)

// TravelPartnership links two users walking together. No soft delete:
// the unbind sweep hard-deletes rows past their 24h grace window.
type TravelPartnership struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	InviterID         uint       `json:"inviterID" gorm:"not null;index"`
	Inviter           User       `json:"-" gorm:"foreignKey:InviterID"`
	InviteeID         *uint      `json:"inviteeID" gorm:"index"`
	Invitee           *User      `json:"-" gorm:"foreignKey:InviteeID"`
	InvitationCode    string     `json:"invitationCode" gorm:"size:16;uniqueIndex"`
	Status            string     `json:"status" gorm:"size:16;default:pending;index"`
	ExpiresAt         time.Time  `json:"expiresAt"`
	AcceptedAt        *time.Time `json:"acceptedAt"`
	UnbindRequestedAt *time.Time `json:"unbindRequestedAt"`
	UnbindExpiresAt   *time.Time `json:"unbindExpiresAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// OtherParty returns the counterpart of userID in an accepted partnership.
func (p *TravelPartnership) OtherParty(userID uint) (uint, bool) {
	if p.InviterID == userID && p.InviteeID != nil {
		return *p.InviteeID, true
	}
	if p.InviteeID != nil && *p.InviteeID == userID {
		return p.InviterID, true
	}
	return 0, false
}

// StepRecord is the daily step ledger, one row per user/city/day.
// Sync upserts by the composite key and recomputes derived fields.
type StepRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userID" gorm:"not null;uniqueIndex:idx_step_records_user_city_date"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
	CityID    uint      `json:"cityID" gorm:"not null;uniqueIndex:idx_step_records_user_city_date"`
	City      City      `json:"-" gorm:"foreignKey:CityID"`
	Date      string    `json:"date" gorm:"size:10;not null;uniqueIndex:idx_step_records_user_city_date"`
	Steps     int       `json:"steps"`
	Calories  int       `json:"calories"`
	Distance  float64   `json:"distance"`
	GoalMet   bool      `json:"goalMet"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
