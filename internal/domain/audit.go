package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records a committed negotiation transition. It outlives hard
// deletes, so a declined conversation still leaves a trace here.
type AuditLog struct {
	ID             int64                  `json:"id"`
	EventTime      time.Time              `json:"event_time"`
	ActorUserID    int64                  `json:"actor_user_id"`
	ConversationID *uuid.UUID             `json:"conversation_id,omitempty"`
	EventType      string                 `json:"event_type"`
	Payload        map[string]interface{} `json:"payload"`
}

const (
	EventTypeMessageRequestCreated   = "MESSAGE_REQUEST_CREATED"
	EventTypeMessageRequestAccepted  = "MESSAGE_REQUEST_ACCEPTED"
	EventTypeMessageRequestDeclined  = "MESSAGE_REQUEST_DECLINED"
	EventTypeServiceRequestCreated   = "SERVICE_REQUEST_CREATED"
	EventTypeServiceRequestAccepted  = "SERVICE_REQUEST_ACCEPTED"
	EventTypeServiceRequestDeclined  = "SERVICE_REQUEST_DECLINED"
	EventTypeServiceRequestConfirmed = "SERVICE_REQUEST_CONFIRMED"
	EventTypeDeadlineProposed        = "DEADLINE_PROPOSED"
	EventTypeDeadlineAccepted        = "DEADLINE_ACCEPTED"
	EventTypeDeadlineDeclined        = "DEADLINE_DECLINED"
	EventTypeDeliveryCreated         = "DELIVERY_CREATED"
	EventTypeDeliveryPurchased       = "DELIVERY_PURCHASED"
	EventTypeDeliveryCanceled        = "DELIVERY_CANCELED"
)
