package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActionType string

const (
	ActionCreateUser     ActionType = "CREATE_USER"
	ActionUpdateUser     ActionType = "UPDATE_USER"
	ActionDeleteUser     ActionType = "DELETE_USER"
	ActionBlockUser      ActionType = "BLOCK_USER"
	ActionChangePassword ActionType = "CHANGE_PASSWORD"
	ActionToggle2FA      ActionType = "TOGGLE_2FA"
	ActionUpdateConfig   ActionType = "UPDATE_CONFIG"
)

// AdminAction is an audit row written whenever a dashboard user changes
// another account or a system setting.
type AdminAction struct {
	ID         string     `gorm:"primaryKey;type:text" json:"id"`
	AdminID    string     `gorm:"type:text;index" json:"adminId"`
	Action     ActionType `gorm:"type:varchar(40);index" json:"action"`
	TargetID   string     `gorm:"type:text" json:"targetId"`
	TargetType string     `gorm:"type:varchar(20)" json:"targetType"` // user, setting
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`

	Admin *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

func (a *AdminAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return nil
}
