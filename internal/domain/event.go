package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventName is the server-to-client event discriminator.
type EventName string

const (
	EventReceiveMessage          EventName = "receiveMessage"
	EventConversationUpdated     EventName = "conversationUpdated"
	EventConversationDeleted     EventName = "conversationDeleted"
	EventServiceRequestUpdated   EventName = "serviceRequestUpdated"
	EventDeliveryUpdated         EventName = "deliveryUpdated"
	EventDeadlineProposalUpdated EventName = "deadlineProposalUpdated"
	EventTyping                  EventName = "typing"
	EventMessageSeen             EventName = "messageSeen"
	EventUserPresenceChanged     EventName = "userPresenceChanged"
)

// EventPayload is implemented by every event body. The set is closed: the
// payload types below are the only ones the dispatcher ever sends.
type EventPayload interface {
	EventName() EventName
}

// Event is the wire envelope: {"type": ..., "payload": {...}}.
type Event struct {
	Type    EventName    `json:"type"`
	Payload EventPayload `json:"payload"`
}

func NewEvent(p EventPayload) Event {
	return Event{Type: p.EventName(), Payload: p}
}

type MessagePayload struct {
	Message *Message `json:"message"`
}

type ConversationPayload struct {
	Conversation *Conversation   `json:"conversation"`
	Request      *MessageRequest `json:"request,omitempty"`
}

type ConversationDeletedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	CreatorID      int64     `json:"creator_id"`
	CustomerID     int64     `json:"customer_id"`
}

type ServiceRequestPayload struct {
	ServiceRequest *ServiceRequest `json:"service_request"`
}

type DeliveryPayload struct {
	Delivery *Delivery `json:"delivery"`
}

type DeadlineProposalPayload struct {
	ConversationID uuid.UUID                     `json:"conversation_id"`
	Change         *ServiceRequestDeadlineChange `json:"change"`
}

// TypingPayload and MessageSeenPayload are relayed live and never stored.
type TypingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	At             time.Time `json:"at"`
}

type MessageSeenPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	UserID         int64     `json:"user_id"`
	SeenAt         time.Time `json:"seen_at"`
}

type PresencePayload struct {
	UserID int64     `json:"user_id"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

func (MessagePayload) EventName() EventName             { return EventReceiveMessage }
func (ConversationPayload) EventName() EventName        { return EventConversationUpdated }
func (ConversationDeletedPayload) EventName() EventName { return EventConversationDeleted }
func (ServiceRequestPayload) EventName() EventName      { return EventServiceRequestUpdated }
func (DeliveryPayload) EventName() EventName            { return EventDeliveryUpdated }
func (DeadlineProposalPayload) EventName() EventName    { return EventDeadlineProposalUpdated }
func (TypingPayload) EventName() EventName              { return EventTyping }
func (MessageSeenPayload) EventName() EventName         { return EventMessageSeen }
func (PresencePayload) EventName() EventName            { return EventUserPresenceChanged }

// UnmarshalJSON decodes the payload into the concrete type named by Type.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    EventName       `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload EventPayload
	var err error
	switch raw.Type {
	case EventReceiveMessage:
		payload, err = decodePayload[MessagePayload](raw.Payload)
	case EventConversationUpdated:
		payload, err = decodePayload[ConversationPayload](raw.Payload)
	case EventConversationDeleted:
		payload, err = decodePayload[ConversationDeletedPayload](raw.Payload)
	case EventServiceRequestUpdated:
		payload, err = decodePayload[ServiceRequestPayload](raw.Payload)
	case EventDeliveryUpdated:
		payload, err = decodePayload[DeliveryPayload](raw.Payload)
	case EventDeadlineProposalUpdated:
		payload, err = decodePayload[DeadlineProposalPayload](raw.Payload)
	case EventTyping:
		payload, err = decodePayload[TypingPayload](raw.Payload)
	case EventMessageSeen:
		payload, err = decodePayload[MessageSeenPayload](raw.Payload)
	case EventUserPresenceChanged:
		payload, err = decodePayload[PresencePayload](raw.Payload)
	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", raw.Type, err)
	}

	e.Type = raw.Type
	e.Payload = payload
	return nil
}

func decodePayload[T EventPayload](data json.RawMessage) (EventPayload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}
