package realtime

import (
	"context"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

// Dispatcher turns committed transitions into events and picks who gets
// them. It never fails: undeliverable events are simply lost, and clients
// reconcile by reading again.
type Dispatcher struct {
	hub *Hub
	log logger.Logger
	now func() time.Time
}

func NewDispatcher(hub *Hub, log logger.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, log: log, now: time.Now}
}

func (d *Dispatcher) MessageSent(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	d.hub.Publish(ctx, domain.NewEvent(domain.MessagePayload{Message: msg}), ConversationGroup(conv.ID))
}

// MessageRequestCreated notifies the side that did not ask, the creator.
// Both users' connections join the new group so later events reach them
// without a reconnect.
func (d *Dispatcher) MessageRequestCreated(ctx context.Context, conv *domain.Conversation, req *domain.MessageRequest) {
	d.hub.JoinUsers(ctx, ConversationGroup(conv.ID), conv.CreatorID, conv.CustomerID)
	recipient := conv.Counterpart(req.RequestedByCustomerID)
	d.hub.Publish(ctx, domain.NewEvent(domain.ConversationPayload{Conversation: conv, Request: req}), UserGroup(recipient))
}

func (d *Dispatcher) MessageRequestDeclined(ctx context.Context, conv *domain.Conversation) {
	group := ConversationGroup(conv.ID)
	ev := domain.NewEvent(domain.ConversationDeletedPayload{
		ConversationID: conv.ID,
		CreatorID:      conv.CreatorID,
		CustomerID:     conv.CustomerID,
	})
	d.hub.Publish(ctx, ev, group, UserGroup(conv.CreatorID), UserGroup(conv.CustomerID))
	d.hub.Dissolve(ctx, group)
}

func (d *Dispatcher) MessageRequestAccepted(ctx context.Context, conv *domain.Conversation, req *domain.MessageRequest, first *domain.Message) {
	group := ConversationGroup(conv.ID)
	d.hub.JoinUsers(ctx, group, conv.CreatorID, conv.CustomerID)

	ev := domain.NewEvent(domain.ConversationPayload{Conversation: conv, Request: req})
	d.hub.Publish(ctx, ev, group, UserGroup(conv.CreatorID), UserGroup(conv.CustomerID))
	if first != nil {
		d.hub.Publish(ctx, domain.NewEvent(domain.MessagePayload{Message: first}), group)
	}
}

func (d *Dispatcher) ServiceRequestChanged(ctx context.Context, conv *domain.Conversation, sr *domain.ServiceRequest) {
	d.hub.Publish(ctx, domain.NewEvent(domain.ServiceRequestPayload{ServiceRequest: sr}), ConversationGroup(conv.ID))
}

// DeadlineProposalChanged also sends the service request when the proposal
// moved its deadline.
func (d *Dispatcher) DeadlineProposalChanged(ctx context.Context, conv *domain.Conversation, change *domain.ServiceRequestDeadlineChange, sr *domain.ServiceRequest) {
	group := ConversationGroup(conv.ID)
	d.hub.Publish(ctx, domain.NewEvent(domain.DeadlineProposalPayload{ConversationID: conv.ID, Change: change}), group)
	if sr != nil {
		d.hub.Publish(ctx, domain.NewEvent(domain.ServiceRequestPayload{ServiceRequest: sr}), group)
	}
}

func (d *Dispatcher) DeliveryChanged(ctx context.Context, conv *domain.Conversation, delivery *domain.Delivery) {
	d.hub.Publish(ctx, domain.NewEvent(domain.DeliveryPayload{Delivery: delivery}), ConversationGroup(conv.ID))
}

func (d *Dispatcher) Typing(ctx context.Context, conversationID uuid.UUID, userID int64) {
	d.hub.Publish(ctx, domain.NewEvent(domain.TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		At:             d.now().UTC(),
	}), ConversationGroup(conversationID))
}

func (d *Dispatcher) MessageSeen(ctx context.Context, conversationID, messageID uuid.UUID, userID int64) {
	d.hub.Publish(ctx, domain.NewEvent(domain.MessageSeenPayload{
		ConversationID: conversationID,
		MessageID:      messageID,
		UserID:         userID,
		SeenAt:         d.now().UTC(),
	}), ConversationGroup(conversationID))
}

func (d *Dispatcher) PresenceChanged(ctx context.Context, userID int64, online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	presenceTransitions.WithLabelValues(state).Inc()
	d.log.Debug("Presence changed", "user_id", userID, "state", state)

	d.hub.PublishAll(ctx, domain.NewEvent(domain.PresencePayload{
		UserID: userID,
		Online: online,
		At:     d.now().UTC(),
	}))
}
