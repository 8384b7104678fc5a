package service

import (
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	"creator_chat/pkg/logger"
)

type Services struct {
	Conversation   ConversationService
	Chat           ChatService
	ServiceRequest ServiceRequestService
	Delivery       DeliveryService
	RateLimit      RateLimitService
	Audit          AuditService
}

// NewServices wires the negotiation services. notifier may be nil, in which
// case transitions are committed without any realtime fan-out.
func NewServices(repos *repository.Repositories, cfg *config.Config, catalog CatalogClient, notifier Notifier, log logger.Logger) *Services {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	audit := NewAuditService(repos.Audit, log)
	rateLimit := NewRateLimitService(repos.RateLimit, log)
	requestLimit := domain.RateLimitRule{
		Scope:  domain.RateLimitScopeMessageRequest,
		Limit:  cfg.RateLimit.MessageRequestsPerHour,
		Window: time.Hour,
	}

	return &Services{
		Conversation:   NewConversationService(repos, audit, rateLimit, requestLimit, notifier, log),
		Chat:           NewChatService(repos, notifier, log),
		ServiceRequest: NewServiceRequestService(repos, audit, notifier, log),
		Delivery:       NewDeliveryService(repos, catalog, audit, notifier, log),
		RateLimit:      rateLimit,
		Audit:          audit,
	}
}
