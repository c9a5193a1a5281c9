package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is one side of a contact edge. A request creates two rows, sent
// for the requester and received for the target, both turn active on accept.
type Contact struct {
	ID        string        `gorm:"primaryKey;type:text" json:"id"`
	OwnerID   string        `gorm:"type:text;not null;uniqueIndex:idx_contact_owner_user" json:"ownerId"`
	UserID    string        `gorm:"type:text;not null;uniqueIndex:idx_contact_owner_user;index" json:"userId"`
	Status    ContactStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
