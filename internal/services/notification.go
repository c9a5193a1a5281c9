package services

import (
	"context"
	"fmt"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const PusherNotificationEvent = "new_notification"

// NotificationService stores notifications and fans them out over the
// socket server and Pusher.
type NotificationService struct {
	db     *gorm.DB
	rt     realtime.Broadcaster
	pusher Pusher
}

func NewNotificationService(db *gorm.DB, rt realtime.Broadcaster, p Pusher) *NotificationService {
	if rt == nil {
		rt = realtime.Nop{}
	}
	return &NotificationService{db: db, rt: rt, pusher: p}
}

var notificationTitles = map[models.NotificationType]string{
	models.NotificationPasswordChange:  "Password changed",
	models.Notification2FAActivation:   "Two-factor authentication enabled",
	models.Notification2FADeactivation: "Two-factor authentication disabled",
	models.NotificationContactRequest:  "New contact request",
	models.NotificationContactAccepted: "Contact request accepted",
	models.NotificationProductRedeemed: "Product redeemed",
}

// Notify persists a notification for userID and pushes it. Delivery
// failures are logged.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationType, description string, data map[string]interface{}) (*models.Notification, error) {
	title, ok := notificationTitles[kind]
	if !ok {
		title = "Notification"
	}
	n := models.Notification{
		UserID:      userID,
		Type:        kind,
		Title:       title,
		Description: description,
		Data:        datatypes.JSONMap(data),
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}

	s.rt.ToUser(userID, realtime.EventNotification, n)
	if s.pusher != nil {
		if err := s.pusher.Trigger(NotificationChannel(userID), PusherNotificationEvent, n); err != nil {
			logger.Warn().Err(err).Str("userId", userID).Msg("Pusher trigger failed")
		}
	}
	return &n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, offset, limit int) ([]models.Notification, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Notification
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

// MarkRead marks one notification (or all when id is empty) as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if id != "" {
		q = q.Where("id = ?", id)
	}
	res := q.Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Events sends the account security notifications: a stored notification
// plus an email.
type Events struct {
	notifications *NotificationService
	mailer        Mailer
	now           func() time.Time
}

func NewEvents(n *NotificationService, mailer Mailer) *Events {
	return &Events{notifications: n, mailer: mailer, now: time.Now}
}

func (e *Events) PasswordChanged(ctx context.Context, user *models.User) {
	when := e.now().Format(time.RFC1123)
	e.notify(ctx, user, models.NotificationPasswordChange,
		fmt.Sprintf("Your password was changed on %s", when), nil)
	e.mail(ctx, user, "Your password was changed", "password_changed", map[string]interface{}{"When": when})
}

func (e *Events) TwoFactorChanged(ctx context.Context, user *models.User, enabled bool) {
	when := e.now().Format(time.RFC1123)
	kind := models.Notification2FADeactivation
	desc := "Two-factor authentication was disabled on your account"
	if enabled {
		kind = models.Notification2FAActivation
		desc = "Two-factor authentication was enabled on your account"
	}
	e.notify(ctx, user, kind, desc, map[string]interface{}{"enabled": enabled})
	e.mail(ctx, user, "Two-factor authentication updated", "2fa_changed", map[string]interface{}{"When": when, "Enabled": enabled})
}

func (e *Events) notify(ctx context.Context, user *models.User, kind models.NotificationType, desc string, data map[string]interface{}) {
	if e.notifications == nil {
		return
	}
	if _, err := e.notifications.Notify(ctx, user.ID, kind, desc, data); err != nil {
		logger.Error().Err(err).Str("userId", user.ID).Str("type", string(kind)).Msg("Failed to store notification")
	}
}

func (e *Events) mail(ctx context.Context, user *models.User, subject, tmpl string, data map[string]interface{}) {
	if e.mailer == nil || user.Email == "" {
		return
	}
	data["Name"] = user.FullName()
	body, err := RenderMail(tmpl, data)
	if err != nil {
		logger.Error().Err(err).Str("template", tmpl).Msg("Failed to render mail")
		return
	}
	if err := e.mailer.Send(ctx, user.Email, subject, body); err != nil {
		logger.Error().Err(err).Str("userId", user.ID).Msg("Failed to send mail")
	}
}
