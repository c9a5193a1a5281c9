package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
)

func RegisterChatRoutes(r *gin.RouterGroup, d deps) {
	r.POST("/findChatSessionByReceipient/:receipientId", d.h.FindChatSessionByRecipient)
	r.POST("/createChatSession", d.h.CreateChatSession)
	r.GET("/sessionList", d.h.SessionList)
	r.POST("/sendMessage", middleware.RateLimitMiddleware(d.limiters.Chat), d.h.SendMessage)
	r.GET("/getMessages/:chatSessionId", d.h.GetMessages)
	r.POST("/toggleReaction", d.h.ToggleReaction)
	r.POST("/markSeen/:chatSessionId", d.h.MarkSeen)
}

func RegisterContactRoutes(r *gin.RouterGroup, d deps) {
	r.GET("/list", d.h.ContactList)
	r.POST("/invite", middleware.RateLimitMiddleware(d.limiters.OTP), d.h.Invite)
	r.POST("/find", d.h.FindContact)
	r.POST("/checkPhoneNumbers", d.h.CheckPhoneNumbers)
	r.POST("/request/:receiverId", d.h.ContactRequest)
	r.POST("/accept/:senderId", d.h.ContactAccept)
}

func RegisterPostRoutes(r *gin.RouterGroup, d deps) {
	r.POST("/createPost", d.h.CreatePost)
	r.GET("/feed", d.h.Feed)
}

func RegisterProductRoutes(r *gin.RouterGroup, d deps) {
	r.GET("/check/:code", d.h.CheckProduct)
	r.POST("/apply/:code", d.h.ApplyProduct)
}

func RegisterNotificationRoutes(r *gin.RouterGroup, d deps) {
	r.GET("", d.h.GetNotifications)
	r.PUT("/read-all", d.h.MarkAllNotificationsRead)
	r.PUT("/:id/read", d.h.MarkNotificationRead)
}
