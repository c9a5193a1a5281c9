package services

import (
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
	apperrors "github.com/triggah61/acent-messenger-backend/pkg/errors"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
	"gorm.io/gorm"
)

func newChatService(t *testing.T) (*ChatService, *gorm.DB, *recordingBroadcaster) {
	t.Helper()
	testutil.InitConfig()
	db := testutil.NewDB(t)
	rt := &recordingBroadcaster{}
	return NewChatService(db, rt, NewAttachmentService(db, newMemoryStorage())), db, rt
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestFindOrCreatePersonalIsIdempotent(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{FirstName: "Alice"})
	bob := testutil.CreateUser(t, db, models.User{FirstName: "Bob", Photo: "bob.png"})

	first, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	second, err := svc.FindOrCreatePersonal(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.SessionPersonal, first.Type)
	assert.Len(t, first.Recipients, 2)
	require.NotNil(t, first.OtherUser)
	assert.Equal(t, bob.ID, first.OtherUser.ID)
	assert.Equal(t, "Bob User", first.Title)
	assert.Equal(t, "bob.png", first.Photo)
	assert.Equal(t, "Alice User", second.Title)

	var count int64
	db.Model(&models.ChatSession{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFindOrCreatePersonalRejectsSelfAndUnknown(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	gone := testutil.CreateUser(t, db, models.User{Status: models.UserDeleted})

	_, err := svc.FindOrCreatePersonal(ctx, alice.ID, alice.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = svc.FindOrCreatePersonal(ctx, alice.ID, gone.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = svc.FindOrCreatePersonal(ctx, alice.ID, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestSendMessageRequiresContent(t *testing.T) {
	svc, db, rt := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	bob := testutil.CreateUser(t, db, models.User{})
	session, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: alice.ID, Content: "   "})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
	assert.Empty(t, rt.roomEvents(realtime.EventNewMessage))
}

func TestSendMessageWithAttachmentOnly(t *testing.T) {
	svc, db, rt := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	bob := testutil.CreateUser(t, db, models.User{})
	session, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	files := []*multipart.FileHeader{
		testutil.FileHeader(t, "attachments", "cat.png", "image/png", []byte("png-bytes")),
	}
	msg, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: alice.ID, Files: files})
	require.NoError(t, err)

	assert.Empty(t, msg.Content)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, models.AttachmentImage, msg.Attachments[0].Type)
	assert.Equal(t, models.CriteriaMessage, msg.Attachments[0].Criteria)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, alice.ID, msg.Sender.ID)

	events := rt.roomEvents(realtime.EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, session.ID, events[0].Target)

	var reloaded models.ChatSession
	require.NoError(t, db.First(&reloaded, "id = ?", session.ID).Error)
	require.NotNil(t, reloaded.LastMessageID)
	assert.Equal(t, msg.ID, *reloaded.LastMessageID)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	bob := testutil.CreateUser(t, db, models.User{})
	eve := testutil.CreateUser(t, db, models.User{})
	session, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: eve.ID, Content: "hi"})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = svc.SendMessage(ctx, SendMessageInput{SessionID: "nope", SenderID: alice.ID, Content: "hi"})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestSendMessageSanitizesAndReplies(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	bob := testutil.CreateUser(t, db, models.User{})
	session, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: alice.ID, Content: "hello<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.Equal(t, "hello", first.Content)

	reply, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: bob.ID, Content: "hey", ReplyToID: first.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, "hello", reply.ReplyTo.Content)
}

func TestToggleReaction(t *testing.T) {
	svc, db, rt := newChatService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, models.User{})
	bob := testutil.CreateUser(t, db, models.User{FirstName: "Bob"})
	session, err := svc.FindOrCreatePersonal(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: alice.ID, Content: "hi"})
	require.NoError(t, err)

	t.Run("same kind twice clears", func(t *testing.T) {
		_, err := svc.ToggleReaction(ctx, bob.ID, msg.ID, models.ReactionLike)
		require.NoError(t, err)
		out, err := svc.ToggleReaction(ctx, bob.ID, msg.ID, models.ReactionLike)
		require.NoError(t, err)
		assert.Empty(t, out.ReactionGroups)
	})

	t.Run("different kinds keep one", func(t *testing.T) {
		_, err := svc.ToggleReaction(ctx, bob.ID, msg.ID, models.ReactionLike)
		require.NoError(t, err)
		out, err := svc.ToggleReaction(ctx, bob.ID, msg.ID, models.ReactionLove)
		require.NoError(t, err)
		require.Len(t, out.ReactionGroups, 1)
		assert.Equal(t, models.ReactionLove, out.ReactionGroups[0].Reaction)

		var count int64
		db.Model(&models.MessageReaction{}).Where("message_id = ?", msg.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := svc.ToggleReaction(ctx, bob.ID, msg.ID, "meh")
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})

	t.Run("outsider", func(t *testing.T) {
		eve := testutil.CreateUser(t, db, models.User{})
		_, err := svc.ToggleReaction(ctx, eve.ID, msg.ID, models.ReactionLike)
		assert.Equal(t, http.StatusForbidden, statusOf(t, err))
	})

	assert.NotEmpty(t, rt.roomEvents(realtime.EventReactionsUpdated))
}

func TestChatEndToEnd(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, models.User{FirstName: "Ann"})
	b := testutil.CreateUser(t, db, models.User{FirstName: "Ben", LastName: "Stone"})

	session, err := svc.FindOrCreatePersonal(ctx, a.ID, b.ID)
	require.NoError(t, err)
	m1, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: a.ID, Content: "hi"})
	require.NoError(t, err)
	_, err = svc.ToggleReaction(ctx, b.ID, m1.ID, models.ReactionLike)
	require.NoError(t, err)

	page, err := svc.Messages(ctx, session.ID, a.ID, utils.PageQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	got := page.Docs[0]
	assert.Equal(t, m1.ID, got.ID)
	require.Len(t, got.ReactionGroups, 1)
	assert.Equal(t, models.ReactionLike, got.ReactionGroups[0].Reaction)
	require.Len(t, got.ReactionGroups[0].Users, 1)
	assert.Equal(t, b.ID, got.ReactionGroups[0].Users[0].ID)
	assert.Equal(t, "Ben", got.ReactionGroups[0].Users[0].FirstName)
	assert.Equal(t, "Stone", got.ReactionGroups[0].Users[0].LastName)
}

func TestSoftDeletedSenderStillLoads(t *testing.T) {
	svc, db, _ := newChatService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, models.User{})
	b := testutil.CreateUser(t, db, models.User{})
	session, err := svc.FindOrCreatePersonal(ctx, a.ID, b.ID)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, SendMessageInput{SessionID: session.ID, SenderID: a.ID, Content: "bye"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", a.ID).Update("status", models.UserDeleted).Error)

	var found int64
	db.Model(&models.User{}).Scopes(models.NotDeleted).Where("id = ?", a.ID).Count(&found)
	assert.Zero(t, found)

	loaded, err := svc.LoadMessage(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Sender)
	assert.Equal(t, models.UserDeleted, loaded.Sender.Status)
}

func TestListSessionsAndMarkSeen(t *testing.T) {
	svc, db, rt := newChatService(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, models.User{FirstName: "Ann"})
	b := testutil.CreateUser(t, db, models.User{FirstName: "Ben"})
	c := testutil.CreateUser(t, db, models.User{FirstName: "Cat"})

	ab, err := svc.FindOrCreatePersonal(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, a.ID, "Climbing", "", []string{b.ID, c.ID})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, SendMessageInput{SessionID: ab.ID, SenderID: b.ID, Content: "yo"})
	require.NoError(t, err)

	all, err := svc.ListSessions(ctx, a.ID, "", utils.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.TotalDocs)

	byName, err := svc.ListSessions(ctx, a.ID, "ben", utils.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byName.TotalDocs)

	byTitle, err := svc.ListSessions(ctx, a.ID, "climb", utils.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, byTitle.Docs, 1)
	assert.Equal(t, models.SessionGroup, byTitle.Docs[0].Type)

	n, err := svc.MarkSeen(ctx, ab.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, rt.roomEvents(realtime.EventSeen), 1)

	n, err = svc.MarkSeen(ctx, ab.ID, a.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type presenceBroadcaster struct {
	recordingBroadcaster
	online map[string]bool
}

func (p *presenceBroadcaster) IsOnline(userID string) bool {
	return p.online[userID]
}

func TestSessionsReflectLivePresence(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	rt := &presenceBroadcaster{online: map[string]bool{}}
	svc := NewChatService(db, rt, NewAttachmentService(db, newMemoryStorage()))
	ctx := context.Background()

	a := testutil.CreateUser(t, db, models.User{})
	// Stored flag is stale: b closed every socket without a clean disconnect.
	b := testutil.CreateUser(t, db, models.User{IsOnline: true})
	session, err := svc.FindOrCreatePersonal(ctx, a.ID, b.ID)
	require.NoError(t, err)

	loaded, err := svc.LoadSession(ctx, session.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.OtherUser)
	assert.False(t, loaded.OtherUser.IsOnline)

	rt.online[b.ID] = true
	page, err := svc.ListSessions(ctx, a.ID, "", utils.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	require.NotNil(t, page.Docs[0].OtherUser)
	assert.True(t, page.Docs[0].OtherUser.IsOnline)
}
