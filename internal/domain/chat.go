package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is append-only: once stored it is never edited or removed.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Body           string    `json:"body"`
	Type           string    `json:"type"`
	AttachmentURL  *string   `json:"attachment_url,omitempty"`
	AttachmentType *string   `json:"attachment_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	MessageTypeText           = "text"
	MessageTypeSystem         = "system"
	MessageTypeServiceRequest = "service_request"
	MessageTypeDelivery       = "delivery"
)

const (
	AttachmentTypeImage    = "image"
	AttachmentTypeVideo    = "video"
	AttachmentTypeAudio    = "audio"
	AttachmentTypeDocument = "document"
)

func IsValidAttachmentType(t string) bool {
	switch t {
	case AttachmentTypeImage, AttachmentTypeVideo, AttachmentTypeAudio, AttachmentTypeDocument:
		return true
	}
	return false
}
