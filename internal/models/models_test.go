package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, OtpPending.CanTransition(OtpVerified))
	assert.True(t, OtpPending.CanTransition(OtpExpired))
	assert.False(t, OtpVerified.CanTransition(OtpPending))
	assert.False(t, OtpExpired.CanTransition(OtpVerified))

	assert.True(t, ProductActive.CanTransition(ProductExpired))
	assert.False(t, ProductExpired.CanTransition(ProductActive))
	assert.True(t, ProductInactive.CanTransition(ProductActive))

	assert.True(t, UserPending.CanTransition(UserActivated))
	assert.False(t, UserDeleted.CanTransition(UserActivated))

	assert.True(t, MessageSent.CanTransition(MessageDelivered))
	assert.False(t, MessageSeen.CanTransition(MessageDelivered))

	assert.True(t, ContactReceived.CanTransition(ContactActive))
	assert.False(t, ContactActive.CanTransition(ContactSent))
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition("product", ProductActive, ProductExpired))

	err := CheckTransition("otp", OtpVerified, OtpVerified)
	var terr *TransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, "otp", terr.Entity)
}

func TestGroupReactions(t *testing.T) {
	base := time.Now()
	reactions := []MessageReaction{
		{UserID: "b", Reaction: ReactionLove, CreatedAt: base.Add(2 * time.Second), User: &User{FirstName: "B"}},
		{UserID: "a", Reaction: ReactionLike, CreatedAt: base, User: &User{FirstName: "A"}},
		{UserID: "c", Reaction: ReactionLike, CreatedAt: base.Add(time.Second)},
	}

	groups := GroupReactions(reactions)

	assert.Len(t, groups, 2)
	assert.Equal(t, ReactionLike, groups[0].Reaction)
	assert.Equal(t, []string{"a", "c"}, []string{groups[0].Users[0].ID, groups[0].Users[1].ID})
	assert.Equal(t, "A", groups[0].Users[0].FirstName)
	assert.Equal(t, ReactionLove, groups[1].Reaction)
	assert.Empty(t, GroupReactions(nil))
}

func TestSessionShape(t *testing.T) {
	s := ChatSession{
		Type: SessionPersonal,
		Recipients: []ChatRecipient{
			{UserID: "me", User: &User{ID: "me", FirstName: "Me"}},
			{UserID: "you", User: &User{ID: "you", FirstName: "Jane", LastName: "Doe", Photo: "p.png"}},
		},
	}
	s.Shape("me")

	assert.Equal(t, "Jane Doe", s.Title)
	assert.Equal(t, "p.png", s.Photo)
	assert.Equal(t, "you", s.OtherUser.ID)
}

func TestAttachmentTypeFor(t *testing.T) {
	assert.Equal(t, AttachmentImage, AttachmentTypeFor("image/png"))
	assert.Equal(t, AttachmentGIF, AttachmentTypeFor("image/gif"))
	assert.Equal(t, AttachmentVideo, AttachmentTypeFor("video/mp4"))
	assert.Equal(t, AttachmentAudio, AttachmentTypeFor("audio/mpeg"))
	assert.Equal(t, AttachmentDocument, AttachmentTypeFor("application/pdf"))
}

func TestUserCan(t *testing.T) {
	super := User{RoleType: RoleTypeSuperAdmin}
	assert.True(t, super.Can(PermUserDelete))

	admin := User{RoleType: RoleTypeAdmin, Role: &Role{Permissions: Permissions{PermUserRead}}}
	assert.True(t, admin.Can(PermUserRead))
	assert.False(t, admin.Can(PermUserDelete))

	plain := User{RoleType: RoleTypeUser}
	assert.False(t, plain.Can(PermUserRead))
}
