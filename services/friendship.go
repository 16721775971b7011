package services

import (
	"errors"
	"log"
	"time"

	"clawstep-server/models"

	"gorm.io/gorm"
)

const friendCodeTTL = 7 * 24 * time.Hour

var (
	ErrAlreadyFriends    = NewServiceError("ALREADY_FRIENDS", "你们已经是好友了")
	ErrFriendshipMissing = NewServiceError("FRIENDSHIP_NOT_FOUND", "好友关系不存在")
	ErrNotFriendshipSide = NewServiceError("FORBIDDEN", "无权操作该好友关系")
)

// FriendshipService manages the Pro-only friend bond. Friend codes live
// on the User row and share the retry-until-unique generation policy.
type FriendshipService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewFriendshipService(db *gorm.DB, notifications *NotificationService) *FriendshipService {
	return &FriendshipService{DB: db, Notifications: notifications}
}

func (s *FriendshipService) requirePro(userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return nil, err
	}
	if !user.IsPro {
		return nil, ErrProRequired
	}
	return &user, nil
}

type FriendCodeResult struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GenerateFriendCode returns the user's current unexpired code or mints
// a new one.
func (s *FriendshipService) GenerateFriendCode(userID uint) (*FriendCodeResult, error) {
	user, err := s.requirePro(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if user.FriendInvitationCode != nil && user.FriendCodeCreatedAt != nil &&
		now.Sub(*user.FriendCodeCreatedAt) < friendCodeTTL {
		return &FriendCodeResult{
			Code:      *user.FriendInvitationCode,
			ExpiresAt: user.FriendCodeCreatedAt.Add(friendCodeTTL),
		}, nil
	}

	code := ""
	for i := 0; i < codeGenerateAttempts; i++ {
		candidate, err := randomCode(invitationCodeLength)
		if err != nil {
			return nil, err
		}
		var count int64
		if err := s.DB.Model(&models.User{}).
			Where("friend_invitation_code = ?", candidate).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, ErrCodeGeneration
	}

	if err := s.DB.Model(user).Updates(map[string]interface{}{
		"friend_invitation_code": code,
		"friend_code_created_at": now,
	}).Error; err != nil {
		return nil, err
	}

	return &FriendCodeResult{Code: code, ExpiresAt: now.Add(friendCodeTTL)}, nil
}

// BindFriend creates the friendship from a friend code. Both sides must
// be Pro; the pair row is stored with the smaller user ID first.
func (s *FriendshipService) BindFriend(userID uint, code string) (*models.Friendship, error) {
	if _, err := s.requirePro(userID); err != nil {
		return nil, err
	}

	var owner models.User
	err := s.DB.Where("friend_invitation_code = ?", code).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if owner.ID == userID {
		return nil, ErrSelfInvitation
	}
	if owner.FriendCodeCreatedAt == nil ||
		time.Since(*owner.FriendCodeCreatedAt) >= friendCodeTTL {
		return nil, ErrCodeExpired
	}

	a, b := userID, owner.ID
	if a > b {
		a, b = b, a
	}

	var existing int64
	if err := s.DB.Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", a, b).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyFriends
	}

	friendship := models.Friendship{
		UserID:   a,
		FriendID: b,
		BoundAt:  time.Now(),
	}
	if err := s.DB.Create(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyFriends
		}
		return nil, err
	}

	if s.Notifications != nil {
		var binder models.User
		nickname := "一位旅伴"
		if err := s.DB.First(&binder, userID).Error; err == nil && binder.Nickname != "" {
			nickname = binder.Nickname
		}
		s.Notifications.Create(owner.ID, models.NotificationTypeFriendship,
			"好友绑定成功", nickname+"通过好友码和你绑定为好友",
			map[string]interface{}{"friendshipID": friendship.ID})
	}

	return &friendship, nil
}

type FriendView struct {
	FriendshipID      uint                 `json:"friendshipID"`
	Friend            models.PublicProfile `json:"friend"`
	BoundAt           time.Time            `json:"boundAt"`
	UnbindRequestedAt *time.Time           `json:"unbindRequestedAt"`
	UnbindExpiresAt   *time.Time           `json:"unbindExpiresAt"`
}

func (s *FriendshipService) ListFriends(userID uint) ([]FriendView, error) {
	var friendships []models.Friendship
	err := s.DB.Where("user_id = ? OR friend_id = ?", userID, userID).
		Order("bound_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	views := make([]FriendView, 0, len(friendships))
	for _, f := range friendships {
		var other models.User
		if err := s.DB.First(&other, f.OtherParty(userID)).Error; err != nil {
			continue
		}
		views = append(views, FriendView{
			FriendshipID:      f.ID,
			Friend:            other.Public(),
			BoundAt:           f.BoundAt,
			UnbindRequestedAt: f.UnbindRequestedAt,
			UnbindExpiresAt:   f.UnbindExpiresAt,
		})
	}
	return views, nil
}

func (s *FriendshipService) getMemberFriendship(friendshipID, userID uint) (*models.Friendship, error) {
	var friendship models.Friendship
	err := s.DB.First(&friendship, friendshipID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFriendshipMissing
	}
	if err != nil {
		return nil, err
	}
	if friendship.UserID != userID && friendship.FriendID != userID {
		return nil, ErrNotFriendshipSide
	}
	return &friendship, nil
}

// RequestUnbind opens the 24h grace window, idempotently.
func (s *FriendshipService) RequestUnbind(friendshipID, userID uint) (*UnbindResult, error) {
	friendship, err := s.getMemberFriendship(friendshipID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if friendship.UnbindExpiresAt != nil && friendship.UnbindExpiresAt.After(now) {
		return &UnbindResult{UnbindExpiresAt: *friendship.UnbindExpiresAt}, nil
	}

	expiresAt := now.Add(UnbindGracePeriod)
	if err := s.DB.Model(friendship).Updates(map[string]interface{}{
		"unbind_requested_at": now,
		"unbind_requested_by": userID,
		"unbind_expires_at":   expiresAt,
	}).Error; err != nil {
		return nil, err
	}

	if s.Notifications != nil {
		s.Notifications.Create(friendship.OtherParty(userID), models.NotificationTypeFriendship,
			"好友解绑提醒", "你的好友发起了解绑，24小时内可以撤销",
			map[string]interface{}{"friendshipID": friendship.ID})
	}

	return &UnbindResult{UnbindExpiresAt: expiresAt}, nil
}

func (s *FriendshipService) CancelUnbind(friendshipID, userID uint) error {
	friendship, err := s.getMemberFriendship(friendshipID, userID)
	if err != nil {
		return err
	}
	if friendship.UnbindExpiresAt == nil {
		return ErrNotInUnbindWindow
	}

	result := s.DB.Model(&models.Friendship{}).
		Where("id = ? AND unbind_expires_at > ?", friendshipID, time.Now()).
		Updates(map[string]interface{}{
			"unbind_requested_at": nil,
			"unbind_requested_by": nil,
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

// HandleExpiredUnbindRequests hard-deletes friendships whose grace
// window has passed. Runs hourly alongside the partnership sweep.
func (s *FriendshipService) HandleExpiredUnbindRequests() error {
	result := s.DB.Where("unbind_expires_at IS NOT NULL AND unbind_expires_at <= ?", time.Now()).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("friendship sweep removed %d rows", result.RowsAffected)
	}
	return nil
}
