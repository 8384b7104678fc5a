package service

import (
	"context"

	"creator_chat/internal/domain"
)

// Notifier is told about every committed transition, after commit. It must
// not fail the operation: delivery is best effort.
type Notifier interface {
	MessageSent(ctx context.Context, conv *domain.Conversation, msg *domain.Message)
	MessageRequestCreated(ctx context.Context, conv *domain.Conversation, req *domain.MessageRequest)
	MessageRequestDeclined(ctx context.Context, conv *domain.Conversation)
	MessageRequestAccepted(ctx context.Context, conv *domain.Conversation, req *domain.MessageRequest, first *domain.Message)
	ServiceRequestChanged(ctx context.Context, conv *domain.Conversation, sr *domain.ServiceRequest)
	DeadlineProposalChanged(ctx context.Context, conv *domain.Conversation, change *domain.ServiceRequestDeadlineChange, sr *domain.ServiceRequest)
	DeliveryChanged(ctx context.Context, conv *domain.Conversation, delivery *domain.Delivery)
}

type nopNotifier struct{}

func (nopNotifier) MessageSent(context.Context, *domain.Conversation, *domain.Message) {
}

func (nopNotifier) MessageRequestCreated(context.Context, *domain.Conversation, *domain.MessageRequest) {
}

func (nopNotifier) MessageRequestDeclined(context.Context, *domain.Conversation) {
}

func (nopNotifier) MessageRequestAccepted(context.Context, *domain.Conversation, *domain.MessageRequest, *domain.Message) {
}

func (nopNotifier) ServiceRequestChanged(context.Context, *domain.Conversation, *domain.ServiceRequest) {
}

func (nopNotifier) DeadlineProposalChanged(context.Context, *domain.Conversation, *domain.ServiceRequestDeadlineChange, *domain.ServiceRequest) {
}

func (nopNotifier) DeliveryChanged(context.Context, *domain.Conversation, *domain.Delivery) {
}
