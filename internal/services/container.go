package services

import (
	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"gorm.io/gorm"
)

// Deps are the collaborators the services are built from. Nil fields get
// the logging or no-op fallback.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Realtime realtime.Broadcaster
	Storage  Storage
	SMS      SMSSender
	Mailer   Mailer
	Pusher   Pusher
}

// Container wires every service once per process.
type Container struct {
	Attachments   *AttachmentService
	Otps          *OtpService
	Notifications *NotificationService
	Events        *Events
	Chat          *ChatService
	Contacts      *ContactService
	Posts         *PostService
	Products      *ProductService
	Settings      *SettingsService
}

func NewContainer(d Deps) *Container {
	if d.Realtime == nil {
		d.Realtime = realtime.Nop{}
	}
	if d.SMS == nil {
		d.SMS = LogSMSSender{}
	}
	if d.Mailer == nil {
		d.Mailer = LogMailer{}
	}

	attachments := NewAttachmentService(d.DB, d.Storage)
	notifications := NewNotificationService(d.DB, d.Realtime, d.Pusher)
	contacts := NewContactService(d.DB, notifications, d.SMS)

	return &Container{
		Attachments:   attachments,
		Otps:          NewOtpService(d.DB, d.SMS, d.Mailer, d.Config),
		Notifications: notifications,
		Events:        NewEvents(notifications, d.Mailer),
		Chat:          NewChatService(d.DB, d.Realtime, attachments),
		Contacts:      contacts,
		Posts:         NewPostService(d.DB, attachments, contacts),
		Products:      NewProductService(d.DB, notifications),
		Settings:      NewSettingsService(d.DB),
	}
}
