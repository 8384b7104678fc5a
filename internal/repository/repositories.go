package repository

import (
	"creator_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Repositories struct {
	Tx             Transactor
	User           UserRepository
	Conversation   ConversationRepository
	MessageRequest MessageRequestRepository
	Message        MessageRepository
	ServiceRequest ServiceRequestRepository
	DeadlineChange DeadlineChangeRepository
	Delivery       DeliveryRepository
	Audit          AuditRepository
	RateLimit      RateLimitRepository
}

// NewRepositories wires the Postgres-backed repositories. redis may be nil,
// in which case rate limiting is disabled.
func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Tx:             NewTransactor(db, log),
		User:           NewUserRepository(db, log),
		Conversation:   NewConversationRepository(db, log),
		MessageRequest: NewMessageRequestRepository(db, log),
		Message:        NewMessageRepository(db, log),
		ServiceRequest: NewServiceRequestRepository(db, log),
		DeadlineChange: NewDeadlineChangeRepository(db, log),
		Delivery:       NewDeliveryRepository(db, log),
		Audit:          NewAuditRepository(db, log),
	}

	if redis != nil {
		repos.RateLimit = NewRateLimitRepository(redis, log)
	} else {
		log.Warn("Redis is not configured, rate limiting disabled")
	}

	return repos
}
