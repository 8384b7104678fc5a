package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

const maxRequirementsLength = 8000

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type CreateServiceRequestInput struct {
	Requirements   string
	ProposedBudget *float64
	Currency       *string
}

type ServiceRequestService interface {
	Create(ctx context.Context, customerID int64, conversationID uuid.UUID, input CreateServiceRequestInput) (*domain.ServiceRequest, error)
	Accept(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID, deadline time.Time) (*domain.ServiceRequest, error)
	Decline(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID) (*domain.ServiceRequest, error)
	Confirm(ctx context.Context, customerID int64, conversationID, serviceRequestID uuid.UUID) (*domain.ServiceRequest, error)
	ProposeDeadlineChange(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID, deadline time.Time, reason *string) (*domain.ServiceRequestDeadlineChange, error)
	// RespondToDeadlineChange returns the service request only when the
	// proposal was accepted and its deadline moved.
	RespondToDeadlineChange(ctx context.Context, customerID int64, conversationID, changeID uuid.UUID, accept bool) (*domain.ServiceRequestDeadlineChange, *domain.ServiceRequest, error)
	GetForCreator(ctx context.Context, creatorID int64, status string, take, skip int) ([]*domain.ServiceRequestView, error)
	GetForCustomer(ctx context.Context, customerID int64, status string, take, skip int) ([]*domain.ServiceRequestView, error)
	GetDeadlineChanges(ctx context.Context, userID int64, conversationID, serviceRequestID uuid.UUID) ([]*domain.ServiceRequestDeadlineChange, error)
}

type serviceRequestService struct {
	tx                 repository.Transactor
	conversationRepo   repository.ConversationRepository
	serviceRequestRepo repository.ServiceRequestRepository
	deadlineChangeRepo repository.DeadlineChangeRepository
	audit              AuditService
	notifier           Notifier
	log                logger.Logger
	now                func() time.Time
}

func NewServiceRequestService(repos *repository.Repositories, audit AuditService, notifier Notifier, log logger.Logger) ServiceRequestService {
	return &serviceRequestService{
		tx:                 repos.Tx,
		conversationRepo:   repos.Conversation,
		serviceRequestRepo: repos.ServiceRequest,
		deadlineChangeRepo: repos.DeadlineChange,
		audit:              audit,
		notifier:           notifier,
		log:                log,
		now:                time.Now,
	}
}

func (s *serviceRequestService) Create(ctx context.Context, customerID int64, conversationID uuid.UUID, input CreateServiceRequestInput) (*domain.ServiceRequest, error) {
	requirements := strings.TrimSpace(input.Requirements)
	if requirements == "" {
		return nil, apperrors.InvalidArgument("requirements cannot be empty")
	}
	if len(requirements) > maxRequirementsLength {
		return nil, apperrors.InvalidArgument("requirements are too long")
	}
	if input.ProposedBudget != nil && *input.ProposedBudget <= 0 {
		return nil, apperrors.InvalidArgument("budget must be greater than zero")
	}

	currency := domain.DefaultCurrency
	if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
		currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
		if !currencyPattern.MatchString(currency) {
			return nil, apperrors.InvalidArgument("currency must be a three letter ISO code")
		}
	}

	var conv *domain.Conversation
	sr := &domain.ServiceRequest{
		ID:                    uuid.New(),
		ConversationID:        conversationID,
		RequestedByCustomerID: customerID,
		Requirements:          requirements,
		ProposedBudget:        input.ProposedBudget,
		Currency:              &currency,
		Status:                domain.ServiceRequestStatusPending,
		CreatedAt:             s.now().UTC(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = conversationFor(ctx, s.conversationRepo, conversationID, customerID)
		if err != nil {
			return err
		}
		if conv.CustomerID != customerID {
			return apperrors.Unauthorized("only the customer can request a service")
		}
		if err := requireActive(conv); err != nil {
			return err
		}

		if err := s.serviceRequestRepo.Create(ctx, sr); err != nil {
			return err
		}
		return s.audit.LogEvent(ctx, customerID, &conv.ID, domain.EventTypeServiceRequestCreated, map[string]interface{}{
			"service_request_id": sr.ID.String(),
			"proposed_budget":    input.ProposedBudget,
			"currency":           currency,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ServiceRequestChanged(ctx, conv, sr)
	return sr, nil
}

// transition moves a service request from one state to another on behalf
// of one role of the conversation.
type transition struct {
	actorID      int64
	creatorOnly  bool
	forbidden    string
	from, to     string
	conflict     string
	deadline     *time.Time
	auditType    string
	conversation uuid.UUID
	requestID    uuid.UUID
}

func (s *serviceRequestService) transition(ctx context.Context, t transition) (*domain.ServiceRequest, error) {
	var conv *domain.Conversation
	var sr *domain.ServiceRequest

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.authorize(ctx, t.conversation, t.actorID, t.creatorOnly, t.forbidden)
		if err != nil {
			return err
		}

		sr, err = s.loadRequest(ctx, conv, t.requestID)
		if err != nil {
			return err
		}
		if sr.Status != t.from {
			return apperrors.Conflict(t.conflict)
		}

		if err := s.serviceRequestRepo.UpdateStatus(ctx, sr.ID, t.from, t.to, t.deadline); err != nil {
			return storageErr(err, "service request not found", t.conflict)
		}
		sr.Status = t.to
		if t.deadline != nil {
			d := *t.deadline
			sr.CreatorDeadlineUTC = &d
		}

		payload := map[string]interface{}{"service_request_id": sr.ID.String(), "status": t.to}
		if t.deadline != nil {
			payload["deadline_utc"] = t.deadline.Format(time.RFC3339)
		}
		return s.audit.LogEvent(ctx, t.actorID, &conv.ID, t.auditType, payload)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Service request updated", "service_request_id", sr.ID, "status", sr.Status, "actor_id", t.actorID)
	s.notifier.ServiceRequestChanged(ctx, conv, sr)
	return sr, nil
}

func (s *serviceRequestService) Accept(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID, deadline time.Time) (*domain.ServiceRequest, error) {
	deadline = deadline.UTC()
	if !deadline.After(s.now()) {
		return nil, apperrors.InvalidArgument("the deadline must be in the future")
	}

	return s.transition(ctx, transition{
		actorID:      creatorID,
		creatorOnly:  true,
		forbidden:    "only the creator can accept a service request",
		from:         domain.ServiceRequestStatusPending,
		to:           domain.ServiceRequestStatusAcceptedByCreator,
		conflict:     "this service request is no longer pending",
		deadline:     &deadline,
		auditType:    domain.EventTypeServiceRequestAccepted,
		conversation: conversationID,
		requestID:    serviceRequestID,
	})
}

func (s *serviceRequestService) Decline(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID) (*domain.ServiceRequest, error) {
	return s.transition(ctx, transition{
		actorID:      creatorID,
		creatorOnly:  true,
		forbidden:    "only the creator can decline a service request",
		from:         domain.ServiceRequestStatusPending,
		to:           domain.ServiceRequestStatusRejected,
		conflict:     "this service request is no longer pending",
		auditType:    domain.EventTypeServiceRequestDeclined,
		conversation: conversationID,
		requestID:    serviceRequestID,
	})
}

func (s *serviceRequestService) Confirm(ctx context.Context, customerID int64, conversationID, serviceRequestID uuid.UUID) (*domain.ServiceRequest, error) {
	return s.transition(ctx, transition{
		actorID:      customerID,
		creatorOnly:  false,
		forbidden:    "only the customer can confirm a service request",
		from:         domain.ServiceRequestStatusAcceptedByCreator,
		to:           domain.ServiceRequestStatusConfirmedByCustomer,
		conflict:     "this service request has not been accepted by the creator or is already confirmed",
		auditType:    domain.EventTypeServiceRequestConfirmed,
		conversation: conversationID,
		requestID:    serviceRequestID,
	})
}

func (s *serviceRequestService) ProposeDeadlineChange(ctx context.Context, creatorID int64, conversationID, serviceRequestID uuid.UUID, deadline time.Time, reason *string) (*domain.ServiceRequestDeadlineChange, error) {
	deadline = deadline.UTC()
	if !deadline.After(s.now()) {
		return nil, apperrors.InvalidArgument("the new deadline must be in the future")
	}
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	const pending = "a deadline change is already waiting for the customer"
	var conv *domain.Conversation
	change := &domain.ServiceRequestDeadlineChange{
		ID:                  uuid.New(),
		ServiceRequestID:    serviceRequestID,
		ProposedByCreatorID: creatorID,
		ProposedDeadlineUTC: deadline,
		Reason:              reason,
		Status:              domain.DeadlineChangeStatusPending,
		CreatedAt:           s.now().UTC(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.authorize(ctx, conversationID, creatorID, true, "only the creator can propose a new deadline")
		if err != nil {
			return err
		}
		sr, err := s.loadRequest(ctx, conv, serviceRequestID)
		if err != nil {
			return err
		}
		if !sr.HasAgreedDeadline() {
			return apperrors.Conflict("the deadline can only change after the creator accepted the request")
		}
		if sr.CreatorDeadlineUTC != nil && sr.CreatorDeadlineUTC.Equal(deadline) {
			return apperrors.InvalidArgument("the new deadline is the same as the current one")
		}

		if err := s.deadlineChangeRepo.Create(ctx, change); err != nil {
			return storageErr(err, "", pending)
		}
		return s.audit.LogEvent(ctx, creatorID, &conv.ID, domain.EventTypeDeadlineProposed, map[string]interface{}{
			"service_request_id": sr.ID.String(),
			"change_id":          change.ID.String(),
			"deadline_utc":       deadline.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.DeadlineProposalChanged(ctx, conv, change, nil)
	return change, nil
}

func (s *serviceRequestService) RespondToDeadlineChange(ctx context.Context, customerID int64, conversationID, changeID uuid.UUID, accept bool) (*domain.ServiceRequestDeadlineChange, *domain.ServiceRequest, error) {
	const resolved = "this deadline change has already been answered"

	var conv *domain.Conversation
	var change *domain.ServiceRequestDeadlineChange
	var updated *domain.ServiceRequest

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.authorize(ctx, conversationID, customerID, false, "only the customer can answer a deadline change")
		if err != nil {
			return err
		}

		change, err = s.deadlineChangeRepo.GetByID(ctx, changeID)
		if err != nil {
			return storageErr(err, "deadline change not found", "")
		}
		sr, err := s.loadRequest(ctx, conv, change.ServiceRequestID)
		if err != nil {
			return apperrors.NotFound("deadline change not found")
		}
		if change.Status != domain.DeadlineChangeStatusPending {
			return apperrors.Conflict(resolved)
		}

		to := domain.DeadlineChangeStatusDeclined
		auditType := domain.EventTypeDeadlineDeclined
		if accept {
			to = domain.DeadlineChangeStatusAccepted
			auditType = domain.EventTypeDeadlineAccepted
		}
		if err := s.deadlineChangeRepo.UpdateStatus(ctx, change.ID, domain.DeadlineChangeStatusPending, to); err != nil {
			return storageErr(err, "deadline change not found", resolved)
		}
		change.Status = to

		if accept {
			if err := s.serviceRequestRepo.UpdateDeadline(ctx, sr.ID, change.ProposedDeadlineUTC); err != nil {
				return storageErr(err, "service request not found", "")
			}
			d := change.ProposedDeadlineUTC
			sr.CreatorDeadlineUTC = &d
			updated = sr
		}

		return s.audit.LogEvent(ctx, customerID, &conv.ID, auditType, map[string]interface{}{
			"service_request_id": sr.ID.String(),
			"change_id":          change.ID.String(),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifier.DeadlineProposalChanged(ctx, conv, change, updated)
	return change, updated, nil
}

func (s *serviceRequestService) GetForCreator(ctx context.Context, creatorID int64, status string, take, skip int) ([]*domain.ServiceRequestView, error) {
	if err := validateStatusFilter(status); err != nil {
		return nil, err
	}
	take, skip = repository.NormalizePage(take, skip)
	return s.serviceRequestRepo.ListForCreator(ctx, creatorID, status, take, skip)
}

func (s *serviceRequestService) GetForCustomer(ctx context.Context, customerID int64, status string, take, skip int) ([]*domain.ServiceRequestView, error) {
	if err := validateStatusFilter(status); err != nil {
		return nil, err
	}
	take, skip = repository.NormalizePage(take, skip)
	return s.serviceRequestRepo.ListForCustomer(ctx, customerID, status, take, skip)
}

func (s *serviceRequestService) GetDeadlineChanges(ctx context.Context, userID int64, conversationID, serviceRequestID uuid.UUID) ([]*domain.ServiceRequestDeadlineChange, error) {
	conv, err := visibleConversation(ctx, s.conversationRepo, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadRequest(ctx, conv, serviceRequestID); err != nil {
		return nil, err
	}
	return s.deadlineChangeRepo.ListByServiceRequest(ctx, serviceRequestID)
}

// authorize loads the conversation and checks the caller holds the role the
// operation needs. Service requests only move inside active conversations.
func (s *serviceRequestService) authorize(ctx context.Context, conversationID uuid.UUID, userID int64, creatorOnly bool, forbidden string) (*domain.Conversation, error) {
	conv, err := conversationFor(ctx, s.conversationRepo, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if (creatorOnly && conv.CreatorID != userID) || (!creatorOnly && conv.CustomerID != userID) {
		return nil, apperrors.Unauthorized(forbidden)
	}
	if err := requireActive(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *serviceRequestService) loadRequest(ctx context.Context, conv *domain.Conversation, id uuid.UUID) (*domain.ServiceRequest, error) {
	sr, err := s.serviceRequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "service request not found", "")
	}
	if sr.ConversationID != conv.ID {
		return nil, apperrors.NotFound("service request not found")
	}
	return sr, nil
}

func validateStatusFilter(status string) error {
	switch status {
	case "",
		domain.ServiceRequestStatusPending,
		domain.ServiceRequestStatusAcceptedByCreator,
		domain.ServiceRequestStatusConfirmedByCustomer,
		domain.ServiceRequestStatusRejected:
		return nil
	}
	return apperrors.InvalidArgument("unknown service request status")
}
