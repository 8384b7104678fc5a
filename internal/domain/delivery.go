package domain

import (
	"time"

	"github.com/google/uuid"
)

type Delivery struct {
	ID               uuid.UUID  `json:"id"`
	ConversationID   uuid.UUID  `json:"conversation_id"`
	ServiceRequestID *uuid.UUID `json:"service_request_id,omitempty"`
	ProductID        int64      `json:"product_id"`
	Price            float64    `json:"price"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

const (
	DeliveryStatusAwaitingPurchase = "awaiting_purchase"
	DeliveryStatusPurchased        = "purchased"
	DeliveryStatusCanceled         = "canceled"
)

// PrivateProduct is what the catalog collaborator needs to mint an unlisted
// product for a single customer.
type PrivateProduct struct {
	CreatorID   int64   `json:"creator_id"`
	CustomerID  int64   `json:"customer_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}
