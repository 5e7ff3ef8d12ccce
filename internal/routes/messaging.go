package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/handlers"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/middleware"
)

// RegisterMessagingRoutes mounts the REST surface of the messaging core.
// Everything requires an authenticated caller.
func RegisterMessagingRoutes(r gin.IRouter, messages *handlers.MessageHandler, keys *handlers.KeyHandler) {
	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware())
	{
		authed.GET("/conversations", messages.GetConversations)
		authed.GET("/conversations/:peerId", messages.GetConversationHistory)

		authed.POST("/messages", middleware.MessageRateLimit(), messages.SendMessage)
		authed.PUT("/messages/:id/read", messages.MarkMessageRead)
		authed.DELETE("/messages/:id", messages.DeleteMessage)

		authed.GET("/unread/count", messages.GetUnreadCount)
		authed.GET("/unread/by-conversation", messages.GetUnreadByConversation)

		authed.POST("/keys", keys.PublishKey)
		authed.GET("/keys/:accountId", keys.GetKey)
	}
}
