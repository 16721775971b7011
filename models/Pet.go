package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Pet struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Name             string         `json:"name"`
	EnglishName      string         `json:"englishName"`
	ShortDescription string         `json:"shortDescription"`
	LongDescription  string         `json:"longDescription"`
	ImageURL         string         `json:"imageUrl"`
	PersonalityTags  datatypes.JSON `json:"personalityTags"`
	ClassicLines     datatypes.JSON `json:"classicLines"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// PersonalityTagList decodes the PersonalityTags JSON column.
func (p *Pet) PersonalityTagList() []string {
	var tags []string
	if p.PersonalityTags != nil {
		json.Unmarshal(p.PersonalityTags, &tags)
	}
	return tags
}

func (p *Pet) MarshalJSON() ([]byte, error) {
	type Alias Pet
	aux := &struct {
		PersonalityTags []string `json:"personalityTags"`
		ClassicLines    []string `json:"classicLines"`
		*Alias
	}{
		PersonalityTags: []string{},
		ClassicLines:    []string{},
		Alias:           (*Alias)(p),
	}

	if p.PersonalityTags != nil {
		var tags []string
		if err := json.Unmarshal(p.PersonalityTags, &tags); err == nil {
			aux.PersonalityTags = tags
		}
	}
	if p.ClassicLines != nil {
		var lines []string
		if err := json.Unmarshal(p.ClassicLines, &lines); err == nil {
			aux.ClassicLines = lines
		}
	}

	return json.Marshal(aux)
}

type UserPet struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"userID" gorm:"not null;uniqueIndex:idx_user_pets_user_pet"`
	User       User      `json:"-" gorm:"foreignKey:UserID"`
	PetID      uint      `json:"petID" gorm:"not null;uniqueIndex:idx_user_pets_user_pet"`
	Pet        Pet       `json:"pet" gorm:"foreignKey:PetID"`
	Nickname   string    `json:"nickname" gorm:"size:64"`
	IsActive   bool      `json:"isActive" gorm:"index"`
	SelectedAt time.Time `json:"selectedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
