package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttachmentCriteria string

const (
	CriteriaMessage AttachmentCriteria = "message"
	CriteriaProfile AttachmentCriteria = "profile"
	CriteriaCover   AttachmentCriteria = "cover"
	CriteriaStory   AttachmentCriteria = "story"
	CriteriaPost    AttachmentCriteria = "post"
)

type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentDocument AttachmentType = "document"
	AttachmentSticker  AttachmentType = "sticker"
	AttachmentGIF      AttachmentType = "gif"
)

// Attachment is metadata for a file already written to object storage.
type Attachment struct {
	ID        string             `gorm:"primaryKey;type:text" json:"id"`
	UserID    string             `gorm:"type:text;not null;index" json:"userId"`
	Criteria  AttachmentCriteria `gorm:"type:varchar(20);default:'message'" json:"criteria"`
	Type      AttachmentType     `gorm:"type:varchar(20)" json:"type"`
	URL       string             `gorm:"not null" json:"url"`
	Key       string             `json:"key"`
	Name      string             `json:"name"`
	MimeType  string             `json:"mimeType"`
	Size      int64              `json:"size"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// AttachmentTypeFor maps a MIME type onto the attachment kinds clients render.
func AttachmentTypeFor(mimeType string) AttachmentType {
	mimeType = strings.ToLower(mimeType)
	switch {
	case mimeType == "image/gif":
		return AttachmentGIF
	case mimeType == "image/webp" || mimeType == "application/x-tgsticker":
		return AttachmentSticker
	case strings.HasPrefix(mimeType, "image/"):
		return AttachmentImage
	case strings.HasPrefix(mimeType, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return AttachmentAudio
	}
	return AttachmentDocument
}
