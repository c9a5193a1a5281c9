// Package realtime delivers chat events to connected clients.
package realtime

// Event names shared with clients.
const (
	EventNewMessage       = "new_message"
	EventReactionsUpdated = "message_reactions_updated"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventDelivered        = "message_delivered"
	EventSeen             = "message_seen"
	EventUserOnline       = "user_online"
	EventUserOffline      = "user_offline"
	EventNotification     = "notification"
	EventOnlineUsers      = "online_users"
)

// Broadcaster is the outbound side of the real-time channel. Delivery is
// best effort and never fails the caller.
type Broadcaster interface {
	ToRoom(room, event string, payload interface{})
	ToUser(userID, event string, payload interface{})
}

// OnlineChecker reports live socket presence. Broadcasters that do not
// implement it leave the persisted is_online flag in place.
type OnlineChecker interface {
	IsOnline(userID string) bool
}

// UserRoom is the room every socket of a user joins on connect.
func UserRoom(userID string) string {
	return "user_" + userID
}

// Nop discards everything. Used when no socket server is running.
type Nop struct{}

func (Nop) ToRoom(string, string, interface{}) {}
func (Nop) ToUser(string, string, interface{}) {}
