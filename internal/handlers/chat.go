package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/services"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
)

// FindChatSessionByRecipient POST /api/user/chat/findChatSessionByReceipient/:receipientId
func (h *Handler) FindChatSessionByRecipient(c *gin.Context) {
	session, err := h.svc.Chat.FindOrCreatePersonal(c.Request.Context(), middleware.CurrentUserID(c), c.Param("receipientId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Chat session fetched", session)
}

type createChatSessionRequest struct {
	Title     string   `json:"title" binding:"required,max=150"`
	Photo     string   `json:"photo" binding:"omitempty,url"`
	MemberIDs []string `json:"memberIds" binding:"required,min=1,dive,required"`
}

// CreateChatSession POST /api/user/chat/createChatSession creates a group.
func (h *Handler) CreateChatSession(c *gin.Context) {
	var input createChatSessionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	session, err := h.svc.Chat.CreateGroup(c.Request.Context(), middleware.CurrentUserID(c), input.Title, input.Photo, input.MemberIDs)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Chat session created", session)
}

// SessionList GET /api/user/chat/sessionList
func (h *Handler) SessionList(c *gin.Context) {
	page, err := h.svc.Chat.ListSessions(c.Request.Context(), middleware.CurrentUserID(c), strings.TrimSpace(c.Query("search")), pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Chat sessions fetched", page)
}

type sendMessageForm struct {
	ChatSessionID string `form:"chatSessionId" binding:"required"`
	Message       string `form:"message"`
	ReplyTo       string `form:"replyTo"`
}

// SendMessage POST /api/user/chat/sendMessage (multipart, up to five
// attachments under "attachments").
func (h *Handler) SendMessage(c *gin.Context) {
	var input sendMessageForm
	if err := c.ShouldBind(&input); err != nil {
		bindFailed(c, err)
		return
	}

	in := services.SendMessageInput{
		SessionID: input.ChatSessionID,
		SenderID:  middleware.CurrentUserID(c),
		Content:   input.Message,
		ReplyToID: input.ReplyTo,
	}
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		in.Files = form.File["attachments"]
	case !errors.Is(err, http.ErrNotMultipart):
		fail(c, apperrors.BadRequest("Invalid multipart form"))
		return
	}

	msg, err := h.svc.Chat.SendMessage(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Message sent", msg)
}

// GetMessages GET /api/user/chat/getMessages/:chatSessionId
func (h *Handler) GetMessages(c *gin.Context) {
	page, err := h.svc.Chat.Messages(c.Request.Context(), c.Param("chatSessionId"), middleware.CurrentUserID(c), pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Messages fetched", page)
}

type toggleReactionRequest struct {
	MessageID    string              `json:"messageId" binding:"required"`
	ReactionType models.ReactionType `json:"reactionType" binding:"required"`
}

// ToggleReaction POST /api/user/chat/toggleReaction
func (h *Handler) ToggleReaction(c *gin.Context) {
	var input toggleReactionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindFailed(c, err)
		return
	}
	msg, err := h.svc.Chat.ToggleReaction(c.Request.Context(), middleware.CurrentUserID(c), input.MessageID, input.ReactionType)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Reaction updated", msg)
}

// MarkSeen POST /api/user/chat/markSeen/:chatSessionId
func (h *Handler) MarkSeen(c *gin.Context) {
	n, err := h.svc.Chat.MarkSeen(c.Request.Context(), c.Param("chatSessionId"), middleware.CurrentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Messages marked as seen", gin.H{"updated": n})
}
