package services

import (
	"github.com/pusher/pusher-http-go/v5"
	"github.com/triggah61/acent-messenger-backend/internal/config"
)

// Pusher is the hosted push channel used for notifications on clients that
// are not connected to the socket server.
type Pusher interface {
	Trigger(channel, event string, data interface{}) error
}

// NewPusher returns nil when Pusher credentials are missing.
func NewPusher(cfg *config.Config) Pusher {
	if cfg.PusherAppID == "" || cfg.PusherKey == "" || cfg.PusherSecret == "" {
		return nil
	}
	return &pusher.Client{
		AppID:   cfg.PusherAppID,
		Key:     cfg.PusherKey,
		Secret:  cfg.PusherSecret,
		Cluster: cfg.PusherCluster,
		Secure:  true,
	}
}

func NotificationChannel(userID string) string {
	return "notification_" + userID
}
