package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triggah61/acent-messenger-backend/internal/models"
	"github.com/triggah61/acent-messenger-backend/internal/realtime"
	"github.com/triggah61/acent-messenger-backend/internal/testutil"
)

func TestProductRedeemOnce(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	pusher := &recordingPusher{}
	svc := NewProductService(db, NewNotificationService(db, nil, pusher))
	ctx := context.Background()

	category := models.Category{Name: "Headphones"}
	require.NoError(t, db.Create(&category).Error)
	require.NoError(t, db.Create(&models.Product{Name: "Aero", Series: "X1", Code: "ABCD-EFGH", CategoryID: &category.ID}).Error)

	ann := testutil.CreateUser(t, db, models.User{FirstName: "Ann", Email: "ann@example.com"})
	ben := testutil.CreateUser(t, db, models.User{FirstName: "Ben"})

	check, err := svc.Check(ctx, "ABCD-EFGH")
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, "Headphones", check.Product.Category)
	assert.Nil(t, check.User)

	redeemed, err := svc.Redeem(ctx, ann, "ABCD-EFGH")
	require.NoError(t, err)
	assert.True(t, redeemed.Valid)
	require.NotNil(t, redeemed.User)
	assert.Equal(t, "ann@example.com", redeemed.User.Email)

	again, err := svc.Redeem(ctx, ben, "ABCD-EFGH")
	require.NoError(t, err)
	assert.False(t, again.Valid)
	require.NotNil(t, again.User)
	assert.Equal(t, "Ann", again.User.FirstName)

	var product models.Product
	require.NoError(t, db.First(&product, "code = ?", "ABCD-EFGH").Error)
	assert.Equal(t, models.ProductExpired, product.Status)
	require.NotNil(t, product.UserID)
	assert.Equal(t, ann.ID, *product.UserID)
	assert.NotNil(t, product.RedeemedAt)

	assert.Equal(t, []string{NotificationChannel(ann.ID)}, pusher.channels)
	assert.Equal(t, []string{PusherNotificationEvent}, pusher.events)

	_, err = svc.Check(ctx, "NOPE")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestEventsNotifyAndMail(t *testing.T) {
	testutil.InitConfig()
	db := testutil.NewDB(t)
	rt := &recordingBroadcaster{}
	mailer := &recordingMailer{}
	events := NewEvents(NewNotificationService(db, rt, nil), mailer)
	ctx := context.Background()

	ann := testutil.CreateUser(t, db, models.User{FirstName: "Ann", Email: "ann@example.com"})

	events.PasswordChanged(ctx, ann)
	events.TwoFactorChanged(ctx, ann, true)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ann@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[1].Body, "enabled")

	require.Len(t, rt.users, 2)
	assert.Equal(t, ann.ID, rt.users[0].Target)
	assert.Equal(t, realtime.EventNotification, rt.users[0].Event)

	svc := NewNotificationService(db, nil, nil)
	unread, err := svc.UnreadCount(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	n, err := svc.MarkRead(ctx, ann.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, total, err := svc.List(ctx, ann.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.True(t, items[0].IsRead)
}
