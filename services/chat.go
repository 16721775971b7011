package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
)

const chatContextWindow = 10

var (
	ErrSessionNotFound = NewServiceError("SESSION_NOT_FOUND", "会话不存在")
	ErrEmptyMessage    = NewServiceError("EMPTY_MESSAGE", "消息内容不能为空")
	ErrAIUnavailable   = NewServiceError("AI_UNAVAILABLE", "宠物开小差了，请稍后再试")
)

// ChatService runs conversations between a user and their pet. The pet's
// persona (tags, catchphrases) is folded into the system prompt; the
// last chatContextWindow messages go to the model as context.
type ChatService struct {
	DB *gorm.DB
	AI AIClient
}

func NewChatService(db *gorm.DB, ai AIClient) *ChatService {
	return &ChatService{DB: db, AI: ai}
}

func (s *ChatService) getSession(sessionID, userID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession returns the user's session with the given pet,
// reactivating an ended one, creating it only the first time.
func (s *ChatService) CreateSession(userID, petID uint) (*models.ChatSession, error) {
	if petID == 0 {
		var userPet models.UserPet
		if err := s.DB.Where("user_id = ? AND is_active = ?", userID, true).
			First(&userPet).Error; err == nil {
			petID = userPet.PetID
		}
	}

	var session models.ChatSession
	err := s.DB.Where("user_id = ? AND pet_id = ?", userID, petID).First(&session).Error
	if err == nil {
		if !session.IsActive {
			updates := map[string]interface{}{"is_active": true, "ended_at": nil}
			if err := s.DB.Model(&session).Updates(updates).Error; err != nil {
				return nil, err
			}
			session.IsActive = true
			session.EndedAt = nil
		}
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session = models.ChatSession{
		UserID:   userID,
		PetID:    petID,
		Title:    "新的对话",
		IsActive: true,
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession closes a session and stamps how long it ran.
func (s *ChatService) EndSession(sessionID, userID uint) (*models.ChatSession, error) {
	session, err := s.getSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	duration := int(now.Sub(session.CreatedAt).Seconds())
	err = s.DB.Model(session).Updates(map[string]interface{}{
		"is_active":        false,
		"ended_at":         now,
		"duration_seconds": duration,
	}).Error
	if err != nil {
		return nil, err
	}
	session.IsActive = false
	session.EndedAt = &now
	session.DurationSeconds = duration
	return session, nil
}

func (s *ChatService) ListSessions(userID uint) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.DB.Preload("Pet").
		Where("user_id = ?", userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&sessions).Error
	return sessions, err
}

func (s *ChatService) GetMessages(sessionID, userID uint, limit int) ([]models.ChatMessage, error) {
	if _, err := s.getSession(sessionID, userID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var messages []models.ChatMessage
	err := s.DB.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (s *ChatService) DeleteSession(sessionID, userID uint) error {
	session, err := s.getSession(sessionID, userID)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(session).Error
	})
}

func petSystemPrompt(pet *models.Pet) string {
	if pet == nil || pet.ID == 0 {
		return "你是用户的虚拟旅行宠物伙伴，语气温暖、俏皮、简短。用中文回复。"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "你是一只叫「%s」的虚拟旅行宠物，正陪伴主人环游世界。", pet.Name)
	if tags := pet.PersonalityTagList(); len(tags) > 0 {
		fmt.Fprintf(&b, "你的性格是：%s。", strings.Join(tags, "、"))
	}
	b.WriteString("用第一人称和主人聊天，语气符合你的性格，回复简短温暖，用中文。")
	return b.String()
}

type ChatMessageInput struct {
	Content   string `json:"content"`
	MediaURL  string `json:"mediaUrl" validate:"omitempty,url"`
	MediaType string `json:"mediaType" validate:"omitempty,oneof=image voice"`
}

type SendMessageResult struct {
	UserMessage models.ChatMessage `json:"userMessage"`
	Reply       models.ChatMessage `json:"reply"`
}

// turnContent is what the model sees for a message; media-only turns
// get a placeholder so the context stays textual.
func turnContent(msg *models.ChatMessage) string {
	if msg.Content != "" {
		return msg.Content
	}
	switch msg.MediaType {
	case models.ChatMediaImage:
		return "[主人发来了一张照片]"
	case models.ChatMediaVoice:
		return "[主人发来了一段语音]"
	}
	return msg.Content
}

// SendMessage stores the user's turn, asks the model for the pet's
// reply, and stores that too. The user's message survives even when the
// model call fails, so history never loses a turn.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, userID uint, input ChatMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.MediaURL == "" {
		return nil, ErrEmptyMessage
	}

	session, err := s.getSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	userMsg := models.ChatMessage{
		SessionID: session.ID,
		Role:      models.ChatRoleUser,
		Content:   content,
		MediaURL:  input.MediaURL,
		MediaType: input.MediaType,
	}
	if err := s.DB.Create(&userMsg).Error; err != nil {
		return nil, err
	}
	s.DB.Model(session).Update("message_count", gorm.Expr("message_count + 1"))

	var history []models.ChatMessage
	if err := s.DB.Where("session_id = ?", session.ID).
		Order("created_at DESC").
		Limit(chatContextWindow).
		Find(&history).Error; err != nil {
		return nil, err
	}

	turns := make([]AIMessage, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		turns = append(turns, AIMessage{Role: history[i].Role, Content: turnContent(&history[i])})
	}

	var pet models.Pet
	s.DB.First(&pet, session.PetID)

	replyText, err := s.AI.Complete(ctx, petSystemPrompt(&pet), turns)
	if err != nil {
		return nil, ErrAIUnavailable
	}

	reply := models.ChatMessage{
		SessionID: session.ID,
		Role:      models.ChatRoleAssistant,
		Content:   replyText,
	}
	if err := s.DB.Create(&reply).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_message_at": now,
		"message_count":   gorm.Expr("message_count + 1"),
	}
	if session.Title == "新的对话" {
		updates["title"] = truncateTitle(turnContent(&userMsg))
	}
	s.DB.Model(session).Updates(updates)

	return &SendMessageResult{UserMessage: userMsg, Reply: reply}, nil
}

func truncateTitle(content string) string {
	runes := []rune(content)
	if len(runes) > 20 {
		return string(runes[:20])
	}
	return content
}
