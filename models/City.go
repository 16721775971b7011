package models

import "time"

type Continent struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	EnglishName string    `json:"englishName"`
	ImageURL    string    `json:"imageUrl"`
	Order       int       `json:"order" gorm:"index"`
	IsActive    bool      `json:"isActive" gorm:"default:true"`
	Cities      []City    `json:"cities,omitempty" gorm:"foreignKey:ContinentID"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type City struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ContinentID     uint      `json:"continentID" gorm:"not null;index"`
	Continent       Continent `json:"continent" gorm:"foreignKey:ContinentID"`
	Name            string    `json:"name"`
	EnglishName     string    `json:"englishName"`
	Country         string    `json:"country"`
	ImageURL        string    `json:"imageUrl"`
	IsUnlocked      bool      `json:"isUnlocked"`
	UnlockCondition string    `json:"unlockCondition"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UserCity is the per-user visit ledger for a city. One row per
// (user, city); totals are mirrored from the step ledger on sync.
type UserCity struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	UserID        uint       `json:"userID" gorm:"not null;uniqueIndex:idx_user_cities_user_city"`
	User          User       `json:"-" gorm:"foreignKey:UserID"`
	CityID        uint       `json:"cityID" gorm:"not null;uniqueIndex:idx_user_cities_user_city"`
	City          City       `json:"city" gorm:"foreignKey:CityID"`
	IsUnlocked    bool       `json:"isUnlocked"`
	VisitCount    int        `json:"visitCount"`
	TotalSteps    int        `json:"totalSteps"`
	TotalCalories int        `json:"totalCalories"`
	FirstVisitAt  *time.Time `json:"firstVisitAt"`
	LastVisitAt   *time.Time `json:"lastVisitAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
