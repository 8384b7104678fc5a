package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID            uuid.UUID  `json:"id"`
	CreatorID     int64      `json:"creator_id"`
	CustomerID    int64      `json:"customer_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

const (
	ConversationStatusPending  = "pending"
	ConversationStatusActive   = "active"
	ConversationStatusDeclined = "declined"
	ConversationStatusBlocked  = "blocked"
)

// IsParticipant reports whether userID is the creator or the customer.
func (c *Conversation) IsParticipant(userID int64) bool {
	return userID == c.CreatorID || userID == c.CustomerID
}

// Counterpart returns the other participant's id.
func (c *Conversation) Counterpart(userID int64) int64 {
	if userID == c.CreatorID {
		return c.CustomerID
	}
	return c.CreatorID
}

func (c *Conversation) IsOpen() bool {
	return c.Status == ConversationStatusPending || c.Status == ConversationStatusActive
}

type MessageRequest struct {
	ID                    uuid.UUID `json:"id"`
	ConversationID        uuid.UUID `json:"conversation_id"`
	RequestedByCustomerID int64     `json:"requested_by_customer_id"`
	FirstMessageText      string    `json:"first_message_text"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

const (
	MessageRequestStatusPending  = "pending"
	MessageRequestStatusAccepted = "accepted"
	MessageRequestStatusDeclined = "declined"
)

// PendingRequest is the read model for a pending message request listing:
// the request plus the conversation it opened.
type PendingRequest struct {
	Conversation *Conversation   `json:"conversation"`
	Request      *MessageRequest `json:"request"`
}
