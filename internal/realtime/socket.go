package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/rs/zerolog"
	"github.com/triggah61/acent-messenger-backend/internal/database"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

const (
	namespace              = "/"
	presenceRoom           = "presence"
	typingThrottleInterval = 3 * time.Second
)

var (
	ErrNotMember       = errors.New("not a member of this chat session")
	ErrMessageNotFound = errors.New("message not found")

	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrUserInactive   = errors.New("user not found or inactive")
	ErrUserBlocked    = errors.New("your account has been blocked")
	ErrUserNotActivated = errors.New("account is not activated")
)

var (
	_ Broadcaster   = (*Server)(nil)
	_ OnlineChecker = (*Server)(nil)
)

// Server wraps the socket.io server and implements Broadcaster.
type Server struct {
	io       *socketio.Server
	db       *gorm.DB
	presence *Presence
	typing   *Throttle
	log      zerolog.Logger
}

type typingPayload struct {
	ChatSessionID string `json:"chatSessionId"`
	ReceiverID    string `json:"receiverId"`
}

type deliveredPayload struct {
	MessageID string `json:"messageId"`
}

func NewServer(db *gorm.DB) *Server {
	s := &Server{
		db:       db,
		presence: NewPresence(),
		typing:   NewThrottle(typingThrottleInterval),
		log:      logger.Component("socket"),
	}

	s.io = socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	s.io.OnConnect(namespace, s.onConnect)
	s.io.OnEvent(namespace, "join_chat", s.onJoinChat)
	s.io.OnEvent(namespace, "leave_chat", func(c socketio.Conn, chatSessionID string) {
		c.Leave(chatSessionID)
	})
	s.io.OnEvent(namespace, EventTypingStart, func(c socketio.Conn, data typingPayload) {
		s.onTyping(c, EventTypingStart, data)
	})
	s.io.OnEvent(namespace, EventTypingStop, func(c socketio.Conn, data typingPayload) {
		s.onTyping(c, EventTypingStop, data)
	})
	s.io.OnEvent(namespace, EventDelivered, s.onDelivered)
	s.io.OnEvent(namespace, "get_online_users", func(c socketio.Conn) {
		c.Emit(EventOnlineUsers, s.presence.Online())
	})
	s.io.OnDisconnect(namespace, s.onDisconnect)
	s.io.OnError(namespace, func(c socketio.Conn, err error) {
		s.log.Warn().Err(err).Msg("socket error")
	})

	return s
}

// Serve runs the socket.io event loop in the background.
func (s *Server) Serve() {
	go func() {
		if err := s.io.Serve(); err != nil {
			s.log.Error().Err(err).Msg("socket server stopped")
		}
	}()
}

func (s *Server) Close() error {
	return s.io.Close()
}

// Handler mounts the socket.io endpoint on gin.
func (s *Server) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.io.ServeHTTP(c.Writer, c.Request)
	}
}

func (s *Server) ToRoom(room, event string, payload interface{}) {
	s.io.BroadcastToRoom(namespace, room, event, payload)
}

func (s *Server) ToUser(userID, event string, payload interface{}) {
	s.io.BroadcastToRoom(namespace, UserRoom(userID), event, payload)
}

func (s *Server) IsOnline(userID string) bool {
	return s.presence.IsOnline(userID)
}

func (s *Server) onConnect(c socketio.Conn) error {
	c.SetContext("")
	u := c.URL()
	token := u.Query().Get("token")
	if token == "" {
		token = u.Query().Get("auth_token")
	}
	if token == "" {
		s.log.Debug().Str("socket", c.ID()).Msg("connection rejected: no token")
		return fmt.Errorf("authentication required")
	}

	user, err := s.authenticate(context.Background(), token)
	if err != nil {
		s.log.Debug().Err(err).Str("socket", c.ID()).Msg("connection rejected")
		return err
	}

	userID := user.ID
	c.SetContext(userID)
	c.Join(UserRoom(userID))
	c.Join(presenceRoom)

	if s.presence.Add(userID, c.ID()) {
		s.setOnline(userID, true)
		s.ToRoom(presenceRoom, EventUserOnline, gin.H{"userId": userID})
	}
	c.Emit(EventOnlineUsers, s.presence.Online())

	s.log.Debug().Str("socket", c.ID()).Str("user_id", userID).Msg("socket authenticated")
	return nil
}

func (s *Server) onJoinChat(c socketio.Conn, chatSessionID string) {
	userID, _ := c.Context().(string)
	if err := s.authorizeJoin(userID, chatSessionID); err != nil {
		c.Emit("error", gin.H{"event": "join_chat", "message": err.Error()})
		return
	}
	c.Join(chatSessionID)
}

func (s *Server) onTyping(c socketio.Conn, event string, data typingPayload) {
	userID, _ := c.Context().(string)
	if userID == "" {
		return
	}
	key := typingKeyPrefix(userID) + data.ChatSessionID + data.ReceiverID
	if event == EventTypingStart && !s.typing.Allow(key) {
		return
	}
	if event == EventTypingStop {
		s.typing.Reset(key)
	}

	payload := gin.H{
		"userId":        userID,
		"chatSessionId": data.ChatSessionID,
		"expiresAt":     time.Now().Add(4 * time.Second).Unix(),
	}
	switch {
	case data.ChatSessionID != "":
		if s.authorizeJoin(userID, data.ChatSessionID) == nil {
			s.ToRoom(data.ChatSessionID, event, payload)
		}
	case data.ReceiverID != "":
		s.ToUser(data.ReceiverID, event, payload)
	}
}

func typingKeyPrefix(userID string) string {
	return userID + ":"
}

func (s *Server) onDelivered(c socketio.Conn, data deliveredPayload) {
	userID, _ := c.Context().(string)
	if userID == "" || data.MessageID == "" {
		return
	}
	msg, err := s.markDelivered(userID, data.MessageID)
	if err != nil {
		s.log.Debug().Err(err).Str("message_id", data.MessageID).Msg("delivery ack ignored")
		return
	}
	s.ToUser(msg.SenderID, EventDelivered, gin.H{
		"messageId":     msg.ID,
		"chatSessionId": msg.ChatSessionID,
		"deliveredTo":   userID,
		"status":        models.MessageDelivered,
	})
}

func (s *Server) onDisconnect(c socketio.Conn, reason string) {
	userID, last := s.presence.Remove(c.ID())
	if userID == "" || !last {
		return
	}
	s.typing.ResetPrefix(typingKeyPrefix(userID))
	now := s.setOnline(userID, false)
	s.ToRoom(presenceRoom, EventUserOffline, gin.H{"userId": userID, "lastSeen": now})
	s.log.Debug().Str("user_id", userID).Str("reason", reason).Msg("user offline")
}

// authenticate applies the same rules as the HTTP auth middleware: a
// valid, unrevoked session token of an activated account.
func (s *Server) authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ValidateSessionToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if database.IsTokenBlacklisted(ctx, claims.GetJTI()) {
		return nil, ErrTokenRevoked
	}

	var user models.User
	if err := s.db.WithContext(ctx).Scopes(models.NotDeleted).
		Select("id", "status").First(&user, "id = ?", claims.UserID).Error; err != nil {
		return nil, ErrUserInactive
	}
	switch user.Status {
	case models.UserBlocked:
		return nil, ErrUserBlocked
	case models.UserPending:
		return nil, ErrUserNotActivated
	}
	return &user, nil
}

// authorizeJoin checks that userID is an active recipient of the session.
func (s *Server) authorizeJoin(userID, chatSessionID string) error {
	if userID == "" || chatSessionID == "" {
		return ErrNotMember
	}
	var count int64
	err := s.db.Model(&models.ChatRecipient{}).
		Where("chat_session_id = ? AND user_id = ? AND status = ?", chatSessionID, userID, models.RecipientActive).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotMember
	}
	return nil
}

// markDelivered moves a message from sent to delivered when acknowledged
// by a recipient other than its sender.
func (s *Server) markDelivered(userID, messageID string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, "id = ?", messageID).Error; err != nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID == userID {
		return nil, errors.New("sender cannot acknowledge own message")
	}
	if err := s.authorizeJoin(userID, msg.ChatSessionID); err != nil {
		return nil, err
	}
	if err := models.CheckTransition("message", msg.Status, models.MessageDelivered); err != nil {
		return nil, err
	}
	res := s.db.Model(&models.Message{}).
		Where("id = ? AND status = ?", msg.ID, models.MessageSent).
		Update("status", models.MessageDelivered)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.New("message already acknowledged")
	}
	msg.Status = models.MessageDelivered
	return &msg, nil
}

func (s *Server) setOnline(userID string, online bool) time.Time {
	now := time.Now()
	updates := map[string]interface{}{"is_online": online}
	if !online {
		updates["last_seen"] = now
	}
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist presence")
	}
	return now
}
