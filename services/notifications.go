package services

import (
	"encoding/json"
	"fmt"
	"log"

	"clawstep-server/models"

	"gorm.io/gorm"
)

// PushSender is implemented by utils.PushClient.
type PushSender interface {
	Send(deviceToken, title, body string, data map[string]interface{}) error
}

// NotificationService persists in-app notifications and mirrors them to
// APNs when the user allows it.
type NotificationService struct {
	DB   *gorm.DB
	Push PushSender
}

func NewNotificationService(db *gorm.DB, push PushSender) *NotificationService {
	return &NotificationService{DB: db, Push: push}
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := ns.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// Create stores the notification and pushes it to the user's devices.
// Push failures are logged, never surfaced; the row is the record.
func (ns *NotificationService) Create(userID uint, typ, title, body string, data map[string]interface{}) (*models.Notification, error) {
	var raw []byte
	if data != nil {
		raw, _ = json.Marshal(data)
	}

	notification := models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   raw,
	}
	if err := ns.DB.Create(&notification).Error; err != nil {
		return nil, err
	}

	ns.pushToUser(userID, title, body, data)
	return &notification, nil
}

func (ns *NotificationService) pushToUser(userID uint, title, body string, data map[string]interface{}) {
	if ns.Push == nil {
		return
	}

	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("skip push for user %d: %v", userID, err)
		return
	}

	for _, token := range tokens {
		if err := ns.Push.Send(token, title, body, data); err != nil {
			log.Printf("push to user %d failed: %v", userID, err)
		}
	}
}

func (ns *NotificationService) List(userID uint, page, pageSize int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := ns.DB.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := ns.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error
	return notifications, total, err
}

func (ns *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := ns.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (ns *NotificationService) MarkRead(userID, notificationID uint) error {
	result := ns.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("CURRENT_TIMESTAMP")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (ns *NotificationService) MarkAllRead(userID uint) error {
	return ns.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error
}
