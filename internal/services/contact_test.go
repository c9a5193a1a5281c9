package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
	"github.com/triggah61/acent-messenger-backend/pkg/utils"
)

func TestContactRequestAndAccept(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	rt := &recordingBroadcaster{}
	notifications := NewNotificationService(db, rt, nil)
	svc := NewContactService(db, notifications, &recordingSMS{})
	ctx := context.Background()

	ann := testutil.CreateUser(t, db, models.User{FirstName: "Ann"})
	ben := testutil.CreateUser(t, db, models.User{FirstName: "Ben"})

	_, err := svc.Request(ctx, ann, ben.ID)
	require.NoError(t, err)

	_, err = svc.Request(ctx, ann, ben.ID)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	// The requester holds the sent row and cannot accept.
	err = svc.Accept(ctx, ann, ben.ID)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, svc.Accept(ctx, ben, ann.ID))

	annIDs, err := svc.ContactIDs(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ben.ID}, annIDs)
	benIDs, err := svc.ContactIDs(ctx, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ann.ID}, benIDs)

	page, err := svc.List(ctx, ann.ID, models.ContactActive, "be", utils.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	require.NotNil(t, page.Docs[0].User)
	assert.Equal(t, "Ben", page.Docs[0].User.FirstName)

	var kinds []models.NotificationType
	db.Model(&models.Notification{}).Order("created_at ASC").Pluck("type", &kinds)
	assert.Equal(t, []models.NotificationType{models.NotificationContactRequest, models.NotificationContactAccepted}, kinds)
	assert.Len(t, rt.users, 2)
}

func TestContactInviteAndLookup(t *testing.T) {
	cfg := testutil.InitConfig()
	cfg.AppURL = "https://acent.test"
	db := testutil.NewDB(t)
	sms := &recordingSMS{}
	svc := NewContactService(db, nil, sms)
	ctx := context.Background()

	testutil.CreateUser(t, db, models.User{Phone: "5550100", DialCode: "+1"})

	err := svc.Invite(ctx, "1", "5550100")
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, svc.Invite(ctx, "1", "5550199"))
	assert.Contains(t, sms.sent["+15550199"], "https://acent.test")

	found, err := svc.Find(ctx, "5550100")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.Find(ctx, "5550199")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	known, err := svc.CheckPhoneNumbers(ctx, []string{"5550100", "5550199"})
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, "5550100", known[0].Phone)
}

func TestPostFeedShowsRecentContactPosts(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	ctx := context.Background()
	contacts := NewContactService(db, nil, nil)
	posts := NewPostService(db, NewAttachmentService(db, newMemoryStorage()), contacts)

	ann := testutil.CreateUser(t, db, models.User{})
	ben := testutil.CreateUser(t, db, models.User{})
	cat := testutil.CreateUser(t, db, models.User{})
	_, err := contacts.Request(ctx, ann, ben.ID)
	require.NoError(t, err)
	require.NoError(t, contacts.Accept(ctx, ben, ann.ID))

	_, err = posts.Create(ctx, ben.ID, "sunset", nil)
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	fresh, err := posts.Create(ctx, ben.ID, "<b>sunset</b>", testutil.FileHeader(t, "attachment", "s.jpg", "image/jpeg", []byte("jpg")))
	require.NoError(t, err)
	assert.Equal(t, "sunset", fresh.Caption)

	old, err := posts.Create(ctx, ben.ID, "old", testutil.FileHeader(t, "attachment", "o.jpg", "image/jpeg", []byte("jpg")))
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", old.ID).Update("created_at", time.Now().Add(-25*time.Hour)).Error)

	_, err = posts.Create(ctx, cat.ID, "stranger", testutil.FileHeader(t, "attachment", "c.jpg", "image/jpeg", []byte("jpg")))
	require.NoError(t, err)

	feed, err := posts.Feed(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, fresh.ID, feed[0].ID)
	require.NotNil(t, feed[0].Attachment)
	assert.Equal(t, models.CriteriaPost, feed[0].Attachment.Criteria)
}
