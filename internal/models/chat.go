package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionType string

const (
	SessionPersonal SessionType = "personal"
	SessionGroup    SessionType = "group"
)

type RecipientRole string

const (
	RecipientAdmin  RecipientRole = "admin"
	RecipientMember RecipientRole = "member"
)

type RecipientStatus string

const (
	RecipientActive   RecipientStatus = "active"
	RecipientPending  RecipientStatus = "pending"
	RecipientRejected RecipientStatus = "rejected"
)

// ChatSession is a personal pair or a group. Personal sessions carry a
// PairKey (sorted user ids) under a unique index so a pair maps to at most
// one session; group sessions leave it NULL.
type ChatSession struct {
	ID            string          `gorm:"primaryKey;type:text" json:"id"`
	Type          SessionType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Title         string          `json:"title"`
	Photo         string          `json:"photo"`
	CreatedByID   *string         `gorm:"type:text" json:"createdBy,omitempty"`
	Status        RecipientStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	PairKey       *string         `gorm:"type:varchar(80);uniqueIndex" json:"-"`
	LastMessageID *string         `gorm:"type:text" json:"lastMessageId,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	LastMessage *Message        `gorm:"foreignKey:LastMessageID" json:"lastMessage,omitempty"`
	Recipients  []ChatRecipient `gorm:"foreignKey:ChatSessionID" json:"receipients"`

	OtherUser *User `gorm:"-" json:"otherUser,omitempty"`
}

func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = RecipientActive
	}
	return nil
}

type ChatRecipient struct {
	ID            string          `gorm:"primaryKey;type:text" json:"id"`
	ChatSessionID string          `gorm:"type:text;not null;uniqueIndex:idx_recipient_session_user" json:"chatSessionId"`
	UserID        string          `gorm:"type:text;not null;uniqueIndex:idx_recipient_session_user;index" json:"userId"`
	Role          RecipientRole   `gorm:"type:varchar(20);default:'member'" json:"role"`
	IsMute        bool            `gorm:"default:false" json:"isMute"`
	Status        RecipientStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *ChatRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Role == "" {
		r.Role = RecipientMember
	}
	if r.Status == "" {
		r.Status = RecipientActive
	}
	return nil
}

// Shape fills the caller-relative presentation fields: for personal
// sessions the title and photo come from the other participant.
func (s *ChatSession) Shape(viewerID string) {
	for i := range s.Recipients {
		r := s.Recipients[i]
		if r.UserID != viewerID && r.User != nil {
			s.OtherUser = r.User
			break
		}
	}
	if s.Type == SessionPersonal && s.OtherUser != nil {
		s.Title = s.OtherUser.FullName()
		s.Photo = s.OtherUser.Photo
	}
}
