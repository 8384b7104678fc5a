package handler

import (
	"creator_chat/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the REST API under /api/v1 and the realtime
// endpoint at /ws. Both require a bearer token. API writes are rate limited
// and run to completion even if the client disconnects.
func RegisterRoutes(router *gin.Engine, handlers *Handlers, auth *middleware.AuthMiddleware, rateLimit *middleware.RateLimitMiddleware) {
	router.GET("/health", handlers.Health.Check)
	router.GET("/server-info", handlers.Health.ServerInfo)

	router.GET("/ws", auth.RequireAuth(), handlers.WebSocket.Connect)

	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth(), rateLimit.Limit(), middleware.DetachWrites(handlers.writeTimeout))
	{
		v1.GET("/presence/online", handlers.Presence.Online)

		requests := v1.Group("/message-requests")
		{
			requests.POST("", handlers.Conversation.CreateMessageRequest)
			requests.GET("/incoming", handlers.Conversation.PendingForCreator)
			requests.GET("/outgoing", handlers.Conversation.PendingForCustomer)
		}

		v1.GET("/service-requests/incoming", handlers.ServiceRequest.ListForCreator)
		v1.GET("/service-requests/outgoing", handlers.ServiceRequest.ListForCustomer)
		v1.GET("/deliveries/completed", handlers.Delivery.CompletedForCreator)

		conversations := v1.Group("/conversations")
		{
			conversations.GET("", handlers.Conversation.List)
			conversations.GET("/:id", handlers.Conversation.Get)
			conversations.POST("/:id/respond", handlers.Conversation.RespondToMessageRequest)

			conversations.GET("/:id/messages", handlers.Chat.GetMessages)
			conversations.POST("/:id/messages", handlers.Chat.SendMessage)
			conversations.POST("/:id/attachments", handlers.Chat.SendAttachment)

			conversations.POST("/:id/service-requests", handlers.ServiceRequest.Create)
			conversations.POST("/:id/service-requests/:requestId/accept", handlers.ServiceRequest.Accept)
			conversations.POST("/:id/service-requests/:requestId/decline", handlers.ServiceRequest.Decline)
			conversations.POST("/:id/service-requests/:requestId/confirm", handlers.ServiceRequest.Confirm)
			conversations.GET("/:id/service-requests/:requestId/deadline-changes", handlers.ServiceRequest.DeadlineChanges)
			conversations.POST("/:id/service-requests/:requestId/deadline-changes", handlers.ServiceRequest.ProposeDeadline)
			conversations.POST("/:id/deadline-changes/:changeId/respond", handlers.ServiceRequest.RespondToDeadline)

			conversations.GET("/:id/deliveries", handlers.Delivery.ListForConversation)
			conversations.POST("/:id/deliveries", handlers.Delivery.Deliver)
			conversations.POST("/:id/private-deliveries", handlers.Delivery.DeliverPrivate)
			conversations.POST("/:id/deliveries/:deliveryId/purchase", handlers.Delivery.MarkPurchased)
			conversations.POST("/:id/deliveries/:deliveryId/cancel", handlers.Delivery.Cancel)
		}
	}
}
