package domain

import (
	"time"

	"github.com/google/uuid"
)

type ServiceRequest struct {
	ID                    uuid.UUID  `json:"id"`
	ConversationID        uuid.UUID  `json:"conversation_id"`
	RequestedByCustomerID int64      `json:"requested_by_customer_id"`
	Requirements          string     `json:"requirements"`
	ProposedBudget        *float64   `json:"proposed_budget,omitempty"`
	Currency              *string    `json:"currency,omitempty"`
	Status                string     `json:"status"`
	CreatorDeadlineUTC    *time.Time `json:"creator_deadline_utc,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

const (
	ServiceRequestStatusPending             = "pending"
	ServiceRequestStatusAcceptedByCreator   = "accepted_by_creator"
	ServiceRequestStatusConfirmedByCustomer = "confirmed_by_customer"
	ServiceRequestStatusRejected            = "rejected"
)

const DefaultCurrency = "USD"

// HasAgreedDeadline reports whether the creator already committed to a
// deadline, which is the precondition for renegotiating it.
func (r *ServiceRequest) HasAgreedDeadline() bool {
	return r.Status == ServiceRequestStatusAcceptedByCreator || r.Status == ServiceRequestStatusConfirmedByCustomer
}

type ServiceRequestDeadlineChange struct {
	ID                  uuid.UUID `json:"id"`
	ServiceRequestID    uuid.UUID `json:"service_request_id"`
	ProposedByCreatorID int64     `json:"proposed_by_creator_id"`
	ProposedDeadlineUTC time.Time `json:"proposed_deadline_utc"`
	Reason              *string   `json:"reason,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

const (
	DeadlineChangeStatusPending  = "pending"
	DeadlineChangeStatusAccepted = "accepted"
	DeadlineChangeStatusDeclined = "declined"
)

// ServiceRequestView is a service request with its conversation's
// participants, used by the role-scoped listings.
type ServiceRequestView struct {
	ServiceRequest *ServiceRequest `json:"service_request"`
	CreatorID      int64           `json:"creator_id"`
	CustomerID     int64           `json:"customer_id"`
}
