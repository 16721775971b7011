package services

import (
	"crypto/rand"
	"errors"
	"log"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
)

const (
	invitationCodeLength  = 8
	invitationCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	invitationCodeTTL     = 7 * 24 * time.Hour
	codeGenerateAttempts  = 10

	UnbindGracePeriod = 24 * time.Hour
)

var (
	ErrCodeGeneration     = NewServiceError("CODE_GENERATION_FAILED", "邀请码生成失败，请重试")
	ErrPartnershipInUse   = NewServiceError("PARTNERSHIP_IN_USE", "当前有进行中的双人旅行，无法解绑")
	ErrNotInUnbindWindow  = NewServiceError("NOT_IN_UNBIND_WINDOW", "当前没有待处理的解绑请求")
	ErrUnbindAlreadyDone  = NewServiceError("UNBIND_ALREADY_DONE", "解绑已生效，无法撤销")
	ErrPartnershipMissing = NewServiceError("PARTNERSHIP_NOT_FOUND", "搭档关系不存在")
	ErrNotPartnershipSide = NewServiceError("FORBIDDEN", "无权操作该搭档关系")
)

// InvitationService is the partnership broker: invitation codes, the
// pending→accepted state machine, and the 24-hour unbind window.
type InvitationService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewInvitationService(db *gorm.DB, notifications *NotificationService) *InvitationService {
	return &InvitationService{DB: db, Notifications: notifications}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = invitationCodeCharset[int(b)%len(invitationCodeCharset)]
	}
	return string(buf), nil
}

// generateUniqueCode retries on collision. The same policy applies to
// every code generator in the app.
func (s *InvitationService) generateUniqueCode(model interface{}, column string) (string, error) {
	for i := 0; i < codeGenerateAttempts; i++ {
		code, err := randomCode(invitationCodeLength)
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.DB.Model(model).Where(column+" = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrCodeGeneration
}

type InvitationResult struct {
	InvitationCode string    `json:"invitationCode"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// GenerateInvitation reuses an existing unexpired pending invitation,
// otherwise replaces any stale one with a fresh 8-character code.
func (s *InvitationService) GenerateInvitation(userID uint) (*InvitationResult, error) {
	now := time.Now()

	var existing models.TravelPartnership
	err := s.DB.Where("inviter_id = ? AND status = ? AND invitee_id IS NULL",
		userID, models.PartnershipStatusPending).First(&existing).Error
	if err == nil {
		if existing.ExpiresAt.After(now) {
			return &InvitationResult{InvitationCode: existing.InvitationCode, ExpiresAt: existing.ExpiresAt}, nil
		}
		s.DB.Delete(&existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := s.generateUniqueCode(&models.TravelPartnership{}, "invitation_code")
	if err != nil {
		return nil, err
	}

	partnership := models.TravelPartnership{
		InviterID:      userID,
		InvitationCode: code,
		Status:         models.PartnershipStatusPending,
		ExpiresAt:      now.Add(invitationCodeTTL),
	}
	if err := s.DB.Create(&partnership).Error; err != nil {
		return nil, err
	}

	return &InvitationResult{InvitationCode: code, ExpiresAt: partnership.ExpiresAt}, nil
}

// ValidateInvitation checks a code for the given prospective invitee and
// returns the inviter's public profile. Its one side effect is stamping
// a lapsed pending invitation as expired.
func (s *InvitationService) ValidateInvitation(code string, userID uint) (*models.PublicProfile, error) {
	var partnership models.TravelPartnership
	err := s.DB.Where("invitation_code = ?", code).First(&partnership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if partnership.Status == models.PartnershipStatusExpired {
		return nil, ErrCodeExpired
	}
	if partnership.Status == models.PartnershipStatusAccepted || partnership.InviteeID != nil {
		return nil, ErrCodeUsed
	}
	if time.Now().After(partnership.ExpiresAt) {
		s.DB.Model(&partnership).Update("status", models.PartnershipStatusExpired)
		return nil, ErrCodeExpired
	}
	if partnership.InviterID == userID {
		return nil, ErrSelfInvitation
	}

	var existingCount int64
	err = s.DB.Model(&models.TravelPartnership{}).
		Where("status = ?", models.PartnershipStatusAccepted).
		Where("(inviter_id = ? AND invitee_id = ?) OR (inviter_id = ? AND invitee_id = ?)",
			partnership.InviterID, userID, userID, partnership.InviterID).
		Count(&existingCount).Error
	if err != nil {
		return nil, err
	}
	if existingCount > 0 {
		return nil, ErrAlreadyPartner
	}

	var inviter models.User
	if err := s.DB.First(&inviter, partnership.InviterID).Error; err != nil {
		return nil, err
	}

	profile := inviter.Public()
	return &profile, nil
}

type AcceptResult struct {
	Partnership models.TravelPartnership `json:"partnership"`
	Partner     models.PublicProfile     `json:"partner"`
}

func (s *InvitationService) AcceptInvitation(code string, userID uint) (*AcceptResult, error) {
	partnerProfile, err := s.ValidateInvitation(code, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := s.DB.Model(&models.TravelPartnership{}).
		Where("invitation_code = ? AND status = ? AND invitee_id IS NULL",
			code, models.PartnershipStatusPending).
		Updates(map[string]interface{}{
			"invitee_id":  userID,
			"status":      models.PartnershipStatusAccepted,
			"accepted_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Someone else accepted between validation and the update.
		return nil, ErrCodeUsed
	}

	var partnership models.TravelPartnership
	if err := s.DB.Where("invitation_code = ?", code).First(&partnership).Error; err != nil {
		return nil, err
	}

	if s.Notifications != nil {
		var invitee models.User
		nickname := "一位旅伴"
		if err := s.DB.First(&invitee, userID).Error; err == nil && invitee.Nickname != "" {
			nickname = invitee.Nickname
		}
		s.Notifications.Create(partnership.InviterID, models.NotificationTypePartnership,
			"搭档邀请已接受", nickname+"接受了你的旅行搭档邀请",
			map[string]interface{}{"partnershipID": partnership.ID})
	}

	return &AcceptResult{Partnership: partnership, Partner: *partnerProfile}, nil
}

type PartnershipView struct {
	models.TravelPartnership
	Partner         models.PublicProfile `json:"partner"`
	HasActiveTravel bool                 `json:"hasActiveTravel"`
}

// GetPartnerships lists accepted (including mid-unbind) partnerships for
// the user, each annotated with whether an active travel references it.
func (s *InvitationService) GetPartnerships(userID uint) ([]PartnershipView, error) {
	var partnerships []models.TravelPartnership
	err := s.DB.Where("status = ? AND (inviter_id = ? OR invitee_id = ?)",
		models.PartnershipStatusAccepted, userID, userID).
		Order("accepted_at DESC").
		Find(&partnerships).Error
	if err != nil {
		return nil, err
	}

	views := make([]PartnershipView, 0, len(partnerships))
	for _, p := range partnerships {
		otherID, ok := p.OtherParty(userID)
		if !ok {
			continue
		}

		var other models.User
		if err := s.DB.First(&other, otherID).Error; err != nil {
			continue
		}

		var activeCount int64
		s.DB.Model(&models.Travel{}).
			Where("partnership_id = ? AND status = ?", p.ID, models.TravelStatusActive).
			Count(&activeCount)

		views = append(views, PartnershipView{
			TravelPartnership: p,
			Partner:           other.Public(),
			HasActiveTravel:   activeCount > 0,
		})
	}
	return views, nil
}

func (s *InvitationService) getMemberPartnership(partnershipID, userID uint) (*models.TravelPartnership, error) {
	var partnership models.TravelPartnership
	err := s.DB.First(&partnership, partnershipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnershipMissing
	}
	if err != nil {
		return nil, err
	}

	if _, ok := partnership.OtherParty(userID); !ok {
		return nil, ErrNotPartnershipSide
	}
	return &partnership, nil
}

type UnbindResult struct {
	UnbindExpiresAt time.Time `json:"unbindExpiresAt"`
}

// UnbindPartnership opens (or returns the already-open) 24h grace
// window. Refused while an active travel still uses the partnership.
func (s *InvitationService) UnbindPartnership(partnershipID, userID uint) (*UnbindResult, error) {
	partnership, err := s.getMemberPartnership(partnershipID, userID)
	if err != nil {
		return nil, err
	}

	var activeCount int64
	if err := s.DB.Model(&models.Travel{}).
		Where("partnership_id = ? AND status = ?", partnershipID, models.TravelStatusActive).
		Count(&activeCount).Error; err != nil {
		return nil, err
	}
	if activeCount > 0 {
		return nil, ErrPartnershipInUse
	}

	now := time.Now()
	if partnership.UnbindExpiresAt != nil && partnership.UnbindExpiresAt.After(now) {
		return &UnbindResult{UnbindExpiresAt: *partnership.UnbindExpiresAt}, nil
	}

	expiresAt := now.Add(UnbindGracePeriod)
	if err := s.DB.Model(partnership).Updates(map[string]interface{}{
		"unbind_requested_at": now,
		"unbind_expires_at":   expiresAt,
	}).Error; err != nil {
		return nil, err
	}

	if other, ok := partnership.OtherParty(userID); ok && s.Notifications != nil {
		s.Notifications.Create(other, models.NotificationTypePartnership,
			"搭档解绑提醒", "你的旅行搭档发起了解绑，24小时内可以撤销",
			map[string]interface{}{"partnershipID": partnership.ID})
	}

	return &UnbindResult{UnbindExpiresAt: expiresAt}, nil
}

// CancelUnbind clears the grace window with a single conditional update
// so a cancel that races the hourly sweep either wins cleanly or fails
// cleanly; there is no in-between state.
func (s *InvitationService) CancelUnbind(partnershipID, userID uint) error {
	partnership, err := s.getMemberPartnership(partnershipID, userID)
	if err != nil {
		return err
	}

	if partnership.UnbindExpiresAt == nil {
		return ErrNotInUnbindWindow
	}

	result := s.DB.Model(&models.TravelPartnership{}).
		Where("id = ? AND unbind_expires_at > ?", partnershipID, time.Now()).
		Updates(map[string]interface{}{
			"unbind_requested_at": nil,
			"unbind_expires_at":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUnbindAlreadyDone
	}
	return nil
}

// HandleExpiredUnbindRequests hard-deletes partnerships whose grace
// window has passed. Runs hourly; duplicate runs are no-ops.
func (s *InvitationService) HandleExpiredUnbindRequests() error {
	result := s.DB.Where("unbind_expires_at IS NOT NULL AND unbind_expires_at <= ?", time.Now()).
		Delete(&models.TravelPartnership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("unbind sweep removed %d partnerships", result.RowsAffected)
	}
	return nil
}
