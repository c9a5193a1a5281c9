package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a short-lived story shown to the author's contacts.
type Post struct {
	ID           string    `gorm:"primaryKey;type:text" json:"id"`
	UserID       string    `gorm:"type:text;not null;index:idx_posts_user_created" json:"userId"`
	AttachmentID string    `gorm:"type:text;not null" json:"attachmentId"`
	Caption      string    `gorm:"type:text" json:"caption"`
	Likes        int       `gorm:"default:0" json:"likes"`
	CreatedAt    time.Time `gorm:"index:idx_posts_user_created" json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Attachment *Attachment `gorm:"foreignKey:AttachmentID" json:"attachment,omitempty"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
