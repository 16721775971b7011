package services

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"clawstep-server/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const letterActiveUserWindow = 7 * 24 * time.Hour

var ErrLetterNotFound = NewServiceError("LETTER_NOT_FOUND", "信件不存在")

// LetterService delivers scheduled narrative letters and keeps each
// user's letter history merged against the template's item list.
type LetterService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewLetterService(db *gorm.DB, notifications *NotificationService) *LetterService {
	return &LetterService{DB: db, Notifications: notifications}
}

func (s *LetterService) List(userID uint) ([]models.Letter, error) {
	var letters []models.Letter
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&letters).Error
	return letters, err
}

func (s *LetterService) Get(letterID, userID uint) (*models.Letter, error) {
	var letter models.Letter
	err := s.DB.Where("id = ? AND user_id = ?", letterID, userID).First(&letter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLetterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

func (s *LetterService) MarkRead(letterID, userID uint) error {
	result := s.DB.Model(&models.Letter{}).
		Where("id = ? AND user_id = ?", letterID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLetterNotFound
	}
	return nil
}

func (s *LetterService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Letter{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// AddHistoryItem records a reply against one history item. An item the
// letter already carries is updated in place, keeping its id and
// createdAt; an unknown templateItemID appends. Replying marks the
// letter read.
func (s *LetterService) AddHistoryItem(letterID, userID uint, templateItemID, title, content string) (*models.Letter, error) {
	letter, err := s.Get(letterID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := decodeHistory(letter.History)

	updated := false
	for i := range items {
		if templateItemID != "" && items[i].TemplateItemID == templateItemID {
			items[i].Title = title
			items[i].Content = content
			updated = true
			break
		}
	}
	if !updated {
		if templateItemID == "" {
			templateItemID = uuid.New().String()
		}
		items = append(items, models.LetterHistoryItem{
			ID:             uuid.New().String(),
			TemplateItemID: templateItemID,
			Title:          title,
			Content:        content,
			CreatedAt:      now,
		})
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	err = s.DB.Model(letter).Updates(map[string]interface{}{
		"history": raw,
		"is_read": true,
		"read_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	letter.History = raw
	letter.IsRead = true
	letter.ReadAt = &now
	return letter, nil
}

// mergeHistory folds template items into the user's existing history.
// Matching is by templateItemId: items the user already has keep their
// original id and createdAt, new items get fresh ones. Order follows
// the template.
func mergeHistory(existing []models.LetterHistoryItem, templateItems []models.LetterHistoryItem, now time.Time) []models.LetterHistoryItem {
	byTemplateID := make(map[string]models.LetterHistoryItem, len(existing))
	for _, item := range existing {
		byTemplateID[item.TemplateItemID] = item
	}

	merged := make([]models.LetterHistoryItem, 0, len(templateItems))
	for _, tmpl := range templateItems {
		if prev, ok := byTemplateID[tmpl.TemplateItemID]; ok {
			prev.Title = tmpl.Title
			prev.Content = tmpl.Content
			merged = append(merged, prev)
			continue
		}
		merged = append(merged, models.LetterHistoryItem{
			ID:             uuid.New().String(),
			TemplateItemID: tmpl.TemplateItemID,
			Title:          tmpl.Title,
			Content:        tmpl.Content,
			CreatedAt:      now,
		})
	}
	return merged
}

func decodeHistory(raw []byte) []models.LetterHistoryItem {
	if raw == nil {
		return nil
	}
	var items []models.LetterHistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// deliverTemplate creates or refreshes one user's copy of a template.
func (s *LetterService) deliverTemplate(user *models.User, template *models.LetterTemplate, now time.Time) error {
	templateItems := decodeHistory(template.HistoryItems)

	preview := template.Content
	if len(templateItems) > 0 {
		preview = templateItems[0].Content
	}

	var letter models.Letter
	err := s.DB.Where("user_id = ? AND template_id = ?", user.ID, template.ID).
		First(&letter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		history, _ := json.Marshal(mergeHistory(nil, templateItems, now))
		letter = models.Letter{
			UserID:      user.ID,
			TemplateID:  template.ID,
			Title:       template.Title,
			Content:     template.Content,
			Sender:      template.Sender,
			ImageURL:    template.ImageURL,
			PreviewText: preview,
			History:     history,
		}
		if err := s.DB.Create(&letter).Error; err != nil {
			return err
		}

		if s.Notifications != nil {
			s.Notifications.Create(user.ID, models.NotificationTypeLetter,
				"你收到了一封新的信", template.Title,
				map[string]interface{}{"letterID": letter.ID})
		}
		return nil
	}
	if err != nil {
		return err
	}

	merged, _ := json.Marshal(mergeHistory(decodeHistory(letter.History), templateItems, now))
	return s.DB.Model(&letter).Updates(map[string]interface{}{
		"title":        template.Title,
		"content":      template.Content,
		"sender":       template.Sender,
		"image_url":    template.ImageURL,
		"preview_text": preview,
		"history":      merged,
	}).Error
}

// HandleScheduledLetters runs at 09:00 and 20:00. Each user active in
// the last 7 days gets one randomly chosen due template written in
// their active pet's voice; users without an active pet are skipped.
func (s *LetterService) HandleScheduledLetters() error {
	now := time.Now()

	var users []models.User
	err := s.DB.Where("last_active_at IS NOT NULL AND last_active_at > ?",
		now.Add(-letterActiveUserWindow)).
		Find(&users).Error
	if err != nil {
		return err
	}

	delivered := 0
	for i := range users {
		user := &users[i]

		var userPet models.UserPet
		err := s.DB.Where("user_id = ? AND is_active = ?", user.ID, true).
			First(&userPet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		var templates []models.LetterTemplate
		err = s.DB.Where("pet_id = ? AND is_active = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			userPet.PetID, true, now).
			Find(&templates).Error
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			continue
		}

		template := &templates[rand.Intn(len(templates))]
		if err := s.deliverTemplate(user, template, now); err != nil {
			log.Printf("letter delivery to user %d failed: %v", user.ID, err)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		log.Printf("scheduled letters: delivered %d letters", delivered)
	}
	return nil
}
