package handler

import (
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/presence"
	"creator_chat/internal/realtime"
	"creator_chat/internal/service"
	"creator_chat/pkg/logger"
)

// Realtime bundles the live-connection collaborators shared by the REST and
// WebSocket handlers.
type Realtime struct {
	Hub        *realtime.Hub
	Membership *realtime.Membership
	Dispatcher *realtime.Dispatcher
	Presence   presence.Tracker
}

type Handlers struct {
	Health         *HealthHandler
	Conversation   *ConversationHandler
	Chat           *ChatHandler
	ServiceRequest *ServiceRequestHandler
	Delivery       *DeliveryHandler
	Presence       *PresenceHandler
	WebSocket      *WebSocketHandler

	writeTimeout time.Duration
}

func NewHandlers(services *service.Services, rt Realtime, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(rt.Hub, cfg),
		Conversation:   NewConversationHandler(services.Conversation, log),
		Chat:           NewChatHandler(services.Chat, log),
		ServiceRequest: NewServiceRequestHandler(services.ServiceRequest, log),
		Delivery:       NewDeliveryHandler(services.Delivery, log),
		Presence:       NewPresenceHandler(rt.Presence, log),
		WebSocket:      NewWebSocketHandler(services, rt, cfg.Realtime, log),
		writeTimeout:   cfg.Realtime.OperationTimeout,
	}
}
