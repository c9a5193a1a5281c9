package services

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

const MaxMessageAttachments = 5

var (
	ErrSessionNotFound  = apperrors.NotFound("Chat session not found")
	ErrMessageNotFound  = apperrors.NotFound("Message not found")
	ErrNotRecipient     = apperrors.Forbidden("You are not a member of this chat")
	ErrMessageRequired  = apperrors.BadRequest("Message is required")
	ErrSelfChat         = apperrors.BadRequest("You cannot start a chat with yourself")
	ErrTooManyFiles     = apperrors.BadRequest("A message can carry at most 5 attachments")
	ErrInvalidReplyTo   = apperrors.BadRequest("Reply target must belong to the same chat")
	ErrInvalidReaction  = apperrors.Validation("Invalid reaction type", map[string]string{"reactionType": "reactionType is invalid"})
	ErrRecipientMissing = apperrors.NotFound("Recipient not found")
)

// ChatService owns chat sessions, messages and reactions.
type ChatService struct {
	db          *gorm.DB
	rt          realtime.Broadcaster
	attachments *AttachmentService
}

func NewChatService(db *gorm.DB, rt realtime.Broadcaster, attachments *AttachmentService) *ChatService {
	if rt == nil {
		rt = realtime.Nop{}
	}
	return &ChatService{db: db, rt: rt, attachments: attachments}
}

func preloadSession(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Recipients").
		Preload("Recipients.User", models.SelectUserSummary).
		Preload("LastMessage")
}

func preloadMessage(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sender", models.SelectUserSummary).
		Preload("Attachments").
		Preload("ReplyTo", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "chat_session_id", "sender_id", "content", "created_at")
		}).
		Preload("Reactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Reactions.User", models.SelectUserSummary)
}

func shapeMessage(m *models.Message) {
	m.ReactionGroups = models.GroupReactions(m.Reactions)
	if m.Attachments == nil {
		m.Attachments = []models.Attachment{}
	}
}

// FindOrCreatePersonal returns the single personal session between caller
// and target, creating it on first use.
func (s *ChatService) FindOrCreatePersonal(ctx context.Context, callerID, targetID string) (*models.ChatSession, error) {
	if callerID == targetID {
		return nil, ErrSelfChat
	}
	db := s.db.WithContext(ctx)

	var target models.User
	if err := db.Scopes(models.NotDeleted).Select("id").First(&target, "id = ?", targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientMissing
		}
		return nil, err
	}

	pairKey := utils.PairKey(callerID, targetID)
	var session models.ChatSession
	err := db.Where("pair_key = ? AND type = ?", pairKey, models.SessionPersonal).First(&session).Error
	if err == nil {
		return s.LoadSession(ctx, session.ID, callerID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		session = models.ChatSession{
			Type:        models.SessionPersonal,
			CreatedByID: &callerID,
			PairKey:     &pairKey,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		recipients := []models.ChatRecipient{
			{ChatSessionID: session.ID, UserID: callerID, Role: models.RecipientAdmin},
			{ChatSessionID: session.ID, UserID: targetID, Role: models.RecipientMember},
		}
		return tx.Create(&recipients).Error
	})
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		// Lost the race against a concurrent creator.
		if err := db.Where("pair_key = ?", pairKey).First(&session).Error; err != nil {
			return nil, err
		}
	}
	return s.LoadSession(ctx, session.ID, callerID)
}

// CreateGroup creates a group session with the creator as admin.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID, title, photo string, memberIDs []string) (*models.ChatSession, error) {
	members := map[string]bool{}
	for _, id := range memberIDs {
		if id != "" && id != creatorID {
			members[id] = true
		}
	}
	if len(members) == 0 {
		return nil, apperrors.BadRequest("A group needs at least one other member")
	}

	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	var found int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(models.NotDeleted).
		Where("id IN ?", ids).Count(&found).Error; err != nil {
		return nil, err
	}
	if int(found) != len(ids) {
		return nil, ErrRecipientMissing
	}

	session := models.ChatSession{
		Type:        models.SessionGroup,
		Title:       utils.StripHTML(title),
		Photo:       photo,
		CreatedByID: &creatorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		recipients := []models.ChatRecipient{{ChatSessionID: session.ID, UserID: creatorID, Role: models.RecipientAdmin}}
		for _, id := range ids {
			recipients = append(recipients, models.ChatRecipient{ChatSessionID: session.ID, UserID: id})
		}
		return tx.Create(&recipients).Error
	})
	if err != nil {
		return nil, err
	}
	return s.LoadSession(ctx, session.ID, creatorID)
}

// applyPresence overrides the stored online flag of participants with the
// socket server's live view.
func (s *ChatService) applyPresence(session *models.ChatSession) {
	checker, ok := s.rt.(realtime.OnlineChecker)
	if !ok {
		return
	}
	for i := range session.Recipients {
		if u := session.Recipients[i].User; u != nil {
			u.IsOnline = checker.IsOnline(u.ID)
		}
	}
}

// LoadSession loads a session with its recipients shaped for viewerID.
func (s *ChatService) LoadSession(ctx context.Context, id, viewerID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := s.db.WithContext(ctx).Scopes(preloadSession).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	session.Shape(viewerID)
	s.applyPresence(&session)
	return &session, nil
}

// ListSessions pages the sessions userID is an active recipient of, most
// recently active first.
func (s *ChatService) ListSessions(ctx context.Context, userID, search string, q utils.PageQuery) (utils.Page[models.ChatSession], error) {
	db := s.db.WithContext(ctx)
	member := db.Model(&models.ChatRecipient{}).Select("chat_session_id").
		Where("user_id = ? AND status = ?", userID, models.RecipientActive)

	query := db.Model(&models.ChatSession{}).Where("chat_sessions.id IN (?)", member)
	if search != "" {
		like := utils.SanitizeSearchQuery(search)
		named := db.Model(&models.ChatRecipient{}).Select("chat_recipients.chat_session_id").
			Joins("JOIN users ON users.id = chat_recipients.user_id").
			Where("chat_recipients.user_id <> ?", userID).
			Where("LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ?", like, like)
		query = query.Where("LOWER(chat_sessions.title) LIKE ? OR chat_sessions.id IN (?)", like, named)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Page[models.ChatSession]{}, err
	}

	var sessions []models.ChatSession
	err := query.Scopes(preloadSession).
		Order("chat_sessions.updated_at DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&sessions).Error
	if err != nil {
		return utils.Page[models.ChatSession]{}, err
	}
	for i := range sessions {
		sessions[i].Shape(userID)
		s.applyPresence(&sessions[i])
	}
	return utils.NewPage(sessions, total, q), nil
}

// IsActiveRecipient reports whether userID is an active member of the session.
func (s *ChatService) IsActiveRecipient(ctx context.Context, sessionID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ChatRecipient{}).
		Where("chat_session_id = ? AND user_id = ? AND status = ?", sessionID, userID, models.RecipientActive).
		Count(&count).Error
	return count > 0, err
}

// CheckCanSend returns ErrSessionNotFound or ErrNotRecipient when userID may
// not post to the session.
func (s *ChatService) CheckCanSend(ctx context.Context, sessionID, userID string) error {
	var session models.ChatSession
	if err := s.db.WithContext(ctx).Select("id").First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	ok, err := s.IsActiveRecipient(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotRecipient
	}
	return nil
}

type SendMessageInput struct {
	SessionID string
	SenderID  string
	Content   string
	ReplyToID string
	Files     []*multipart.FileHeader
}

// SendMessage stores a message with its uploaded attachments and broadcasts
// it to the session room.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content, err := utils.SanitizeMessageContent(in.Content)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if content == "" && len(in.Files) == 0 {
		return nil, ErrMessageRequired
	}
	if len(in.Files) > MaxMessageAttachments {
		return nil, ErrTooManyFiles
	}
	if err := s.CheckCanSend(ctx, in.SessionID, in.SenderID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var replyTo *string
	if in.ReplyToID != "" {
		var parent models.Message
		if err := db.Select("id", "chat_session_id").First(&parent, "id = ?", in.ReplyToID).Error; err != nil || parent.ChatSessionID != in.SessionID {
			return nil, ErrInvalidReplyTo
		}
		replyTo = &parent.ID
	}

	attachments := make([]models.Attachment, 0, len(in.Files))
	for _, fh := range in.Files {
		if s.attachments == nil {
			return nil, apperrors.NewAppError(503, "File storage is not configured")
		}
		a, err := s.attachments.Upload(ctx, in.SenderID, "messages", models.CriteriaMessage, fh)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}

	msg := models.Message{
		ChatSessionID: in.SessionID,
		SenderID:      in.SenderID,
		Content:       content,
		ReplyToID:     replyTo,
		Attachments:   attachments,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attachments.*").Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSession{ID: in.SessionID}).Update("last_message_id", msg.ID).Error
	})
	if err != nil {
		if len(attachments) > 0 {
			logger.Warn().Err(err).Int("attachments", len(attachments)).Msg("Message create failed after upload, attachments orphaned")
		}
		return nil, err
	}

	loaded, err := s.LoadMessage(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	s.rt.ToRoom(in.SessionID, realtime.EventNewMessage, loaded)
	return loaded, nil
}

// LoadMessage loads a message with sender, attachments, reply preview and
// grouped reactions. Soft-deleted senders are still loaded.
func (s *ChatService) LoadMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).Scopes(preloadMessage).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	shapeMessage(&msg)
	return &msg, nil
}

// Messages pages a session's messages newest first. The viewer must be a
// recipient.
func (s *ChatService) Messages(ctx context.Context, sessionID, viewerID string, q utils.PageQuery) (utils.Page[models.Message], error) {
	if err := s.CheckCanSend(ctx, sessionID, viewerID); err != nil {
		return utils.Page[models.Message]{}, err
	}

	db := s.db.WithContext(ctx)
	query := db.Model(&models.Message{}).
		Where("chat_session_id = ? AND status <> ?", sessionID, models.MessageDeleted).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Page[models.Message]{}, err
	}

	var messages []models.Message
	err := query.Scopes(preloadMessage).
		Order("created_at DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&messages).Error
	if err != nil {
		return utils.Page[models.Message]{}, err
	}
	for i := range messages {
		shapeMessage(&messages[i])
	}
	return utils.NewPage(messages, total, q), nil
}

// ToggleReaction sets, switches or clears userID's reaction on a message.
// Reacting with the kind already set clears it.
func (s *ChatService) ToggleReaction(ctx context.Context, userID, messageID string, reaction models.ReactionType) (*models.Message, error) {
	if !reaction.Valid() {
		return nil, ErrInvalidReaction
	}

	db := s.db.WithContext(ctx)
	var msg models.Message
	if err := db.Select("id", "chat_session_id").First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	ok, err := s.IsActiveRecipient(ctx, msg.ChatSessionID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRecipient
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing models.MessageReaction
		found := tx.Where("message_id = ? AND user_id = ?", messageID, userID).Limit(1).Find(&existing)
		if found.Error != nil {
			return found.Error
		}
		if found.RowsAffected > 0 {
			if err := tx.Delete(&models.MessageReaction{}, "id = ?", existing.ID).Error; err != nil {
				return err
			}
			if existing.Reaction == reaction {
				return nil
			}
		}
		return tx.Create(&models.MessageReaction{MessageID: messageID, UserID: userID, Reaction: reaction}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("Reaction was changed concurrently, please retry")
		}
		return nil, err
	}

	loaded, err := s.LoadMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.rt.ToRoom(msg.ChatSessionID, realtime.EventReactionsUpdated, map[string]interface{}{
		"messageId": messageID,
		"reactions": loaded.ReactionGroups,
	})
	return loaded, nil
}

// MarkSeen marks every message in the session not sent by userID as seen.
func (s *ChatService) MarkSeen(ctx context.Context, sessionID, userID string) (int64, error) {
	if err := s.CheckCanSend(ctx, sessionID, userID); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_session_id = ? AND sender_id <> ? AND status IN ?", sessionID, userID,
			[]models.MessageStatus{models.MessageSent, models.MessageDelivered}).
		Update("status", models.MessageSeen)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.rt.ToRoom(sessionID, realtime.EventSeen, map[string]interface{}{
			"chatSessionId": sessionID,
			"userId":        userID,
		})
	}
	return res.RowsAffected, nil
}
