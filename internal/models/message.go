package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionLaugh ReactionType = "laugh"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
	ReactionWow   ReactionType = "wow"
	ReactionCry   ReactionType = "cry"
)

var ReactionTypes = []ReactionType{
	ReactionLike, ReactionLove, ReactionLaugh, ReactionSad, ReactionAngry, ReactionWow, ReactionCry,
}

func (r ReactionType) Valid() bool {
	for _, t := range ReactionTypes {
		if t == r {
			return true
		}
	}
	return false
}

type Message struct {
	ID            string        `gorm:"primaryKey;type:text" json:"id"`
	ChatSessionID string        `gorm:"type:text;not null;index:idx_messages_session_created" json:"chatSessionId"`
	SenderID      string        `gorm:"type:text;not null;index" json:"senderId"`
	Content       string        `gorm:"type:text" json:"content"`
	Status        MessageStatus `gorm:"type:varchar(20);default:'sent'" json:"status"`
	ReplyToID     *string       `gorm:"type:text" json:"replyToId,omitempty"`
	CreatedAt     time.Time     `gorm:"index:idx_messages_session_created" json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`

	Sender      *User             `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReplyTo     *Message          `gorm:"foreignKey:ReplyToID" json:"replyTo,omitempty"`
	Attachments []Attachment      `gorm:"many2many:message_attachments;" json:"attachments"`
	Reactions   []MessageReaction `gorm:"foreignKey:MessageID" json:"-"`

	ReactionGroups []ReactionGroup `gorm:"-" json:"reactions"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = MessageSent
	}
	return nil
}

// MessageReaction is the single active reaction of a user on a message.
type MessageReaction struct {
	ID        string       `gorm:"primaryKey;type:text" json:"id"`
	MessageID string       `gorm:"type:text;not null;uniqueIndex:idx_reaction_message_user" json:"messageId"`
	UserID    string       `gorm:"type:text;not null;uniqueIndex:idx_reaction_message_user" json:"userId"`
	Reaction  ReactionType `gorm:"type:varchar(20);not null" json:"reaction"`
	CreatedAt time.Time    `json:"reactedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (r *MessageReaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// ReactionGroup is the client-facing aggregate of reactions of one kind.
type ReactionGroup struct {
	Reaction ReactionType  `json:"reaction"`
	Users    []ReactedUser `json:"users"`
}

type ReactedUser struct {
	ID        string       `json:"id"`
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Reaction  ReactionType `json:"reaction"`
	ReactedAt time.Time    `json:"reactedAt"`
}

// GroupReactions folds reactions by kind. Groups are ordered by the
// earliest reaction of their kind; users by reaction time.
func GroupReactions(reactions []MessageReaction) []ReactionGroup {
	groups := []ReactionGroup{}
	index := map[ReactionType]int{}
	for _, r := range sortedReactions(reactions) {
		i, ok := index[r.Reaction]
		if !ok {
			i = len(groups)
			index[r.Reaction] = i
			groups = append(groups, ReactionGroup{Reaction: r.Reaction, Users: []ReactedUser{}})
		}
		ru := ReactedUser{ID: r.UserID, Reaction: r.Reaction, ReactedAt: r.CreatedAt}
		if r.User != nil {
			ru.FirstName = r.User.FirstName
			ru.LastName = r.User.LastName
		}
		groups[i].Users = append(groups[i].Users, ru)
	}
	return groups
}

func sortedReactions(in []MessageReaction) []MessageReaction {
	out := make([]MessageReaction, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
