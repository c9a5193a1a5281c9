package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationPasswordChange  NotificationType = "password_change"
	Notification2FAActivation   NotificationType = "2fa_activation"
	Notification2FADeactivation NotificationType = "2fa_deactivation"
	NotificationContactRequest  NotificationType = "contact_request"
	NotificationContactAccepted NotificationType = "contact_accepted"
	NotificationProductRedeemed NotificationType = "product_redeemed"
	NotificationGeneral         NotificationType = "general"
)

type Notification struct {
	ID          string            `gorm:"primaryKey;type:text" json:"id"`
	UserID      string            `gorm:"type:text;not null;index" json:"userId"`
	Type        NotificationType  `gorm:"type:varchar(40);not null" json:"type"`
	Title       string            `json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Data        datatypes.JSONMap `json:"data,omitempty"`
	IsRead      bool              `gorm:"default:false;index" json:"isRead"`
	CreatedAt   time.Time         `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return nil
}
