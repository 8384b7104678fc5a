package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

type ConversationService interface {
	CreateMessageRequest(ctx context.Context, customerID, creatorID int64, text string) (*domain.PendingRequest, error)
	// RespondToMessageRequest returns the conversation and, when accepted,
	// the first message. A declined conversation is gone: both are nil.
	RespondToMessageRequest(ctx context.Context, creatorID int64, conversationID uuid.UUID, accept bool) (*domain.Conversation, *domain.Message, error)
	GetConversation(ctx context.Context, userID int64, conversationID uuid.UUID) (*domain.Conversation, error)
	GetConversationsForUser(ctx context.Context, userID int64, take, skip int) ([]*domain.Conversation, error)
	GetPendingRequestsForCreator(ctx context.Context, creatorID int64, take, skip int) ([]*domain.PendingRequest, error)
	GetPendingRequestsForCustomer(ctx context.Context, customerID int64, take, skip int) ([]*domain.PendingRequest, error)
}

type conversationService struct {
	tx                 repository.Transactor
	userRepo           repository.UserRepository
	conversationRepo   repository.ConversationRepository
	messageRequestRepo repository.MessageRequestRepository
	messageRepo        repository.MessageRepository
	audit              AuditService
	rateLimit          RateLimitService
	requestLimit       domain.RateLimitRule
	notifier           Notifier
	log                logger.Logger
	now                func() time.Time
}

func NewConversationService(repos *repository.Repositories, audit AuditService, rateLimit RateLimitService, requestLimit domain.RateLimitRule, notifier Notifier, log logger.Logger) ConversationService {
	return &conversationService{
		tx:                 repos.Tx,
		userRepo:           repos.User,
		conversationRepo:   repos.Conversation,
		messageRequestRepo: repos.MessageRequest,
		messageRepo:        repos.Message,
		audit:              audit,
		rateLimit:          rateLimit,
		requestLimit:       requestLimit,
		notifier:           notifier,
		log:                log,
		now:                time.Now,
	}
}

func (s *conversationService) CreateMessageRequest(ctx context.Context, customerID, creatorID int64, text string) (*domain.PendingRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidArgument("the first message cannot be empty")
	}
	if len(text) > maxMessageLength {
		return nil, apperrors.InvalidArgument("the first message is too long")
	}
	if customerID == creatorID {
		return nil, apperrors.InvalidArgument("you cannot message yourself")
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, storageErr(err, "creator not found", "")
	}
	if !creator.IsCreator() || !creator.IsActive {
		return nil, apperrors.NotFound("creator not found")
	}

	if err := s.rateLimit.Allow(ctx, s.requestLimit, strconv.FormatInt(customerID, 10)); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	conv := &domain.Conversation{
		ID:         uuid.New(),
		CreatorID:  creatorID,
		CustomerID: customerID,
		Status:     domain.ConversationStatusPending,
		CreatedAt:  now,
	}
	req := &domain.MessageRequest{
		ID:                    uuid.New(),
		ConversationID:        conv.ID,
		RequestedByCustomerID: customerID,
		FirstMessageText:      text,
		Status:                domain.MessageRequestStatusPending,
		CreatedAt:             now,
	}

	const duplicate = "you already have an open conversation with this creator"
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.conversationRepo.GetOpenByPair(ctx, creatorID, customerID)
		if err == nil {
			return apperrors.Conflict(duplicate)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := s.conversationRepo.Create(ctx, conv); err != nil {
			return storageErr(err, "", duplicate)
		}
		if err := s.messageRequestRepo.Create(ctx, req); err != nil {
			return err
		}
		return s.audit.LogEvent(ctx, customerID, &conv.ID, domain.EventTypeMessageRequestCreated, map[string]interface{}{
			"creator_id":  creatorID,
			"customer_id": customerID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Message request created", "conversation_id", conv.ID, "creator_id", creatorID, "customer_id", customerID)
	s.notifier.MessageRequestCreated(ctx, conv, req)

	return &domain.PendingRequest{Conversation: conv, Request: req}, nil
}

func (s *conversationService) RespondToMessageRequest(ctx context.Context, creatorID int64, conversationID uuid.UUID, accept bool) (*domain.Conversation, *domain.Message, error) {
	const resolved = "this message request has already been answered"

	var conv *domain.Conversation
	var req *domain.MessageRequest
	var first *domain.Message

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = conversationFor(ctx, s.conversationRepo, conversationID, creatorID)
		if err != nil {
			return err
		}
		if conv.CreatorID != creatorID {
			return apperrors.Unauthorized("only the creator can answer a message request")
		}

		req, err = s.messageRequestRepo.GetByConversationID(ctx, conversationID)
		if err != nil {
			return storageErr(err, "message request not found", "")
		}
		if req.Status != domain.MessageRequestStatusPending || conv.Status != domain.ConversationStatusPending {
			return apperrors.Conflict(resolved)
		}

		if !accept {
			// The conditional update picks the winner of a race; the delete
			// only follows it.
			if err := s.messageRequestRepo.UpdateStatus(ctx, req.ID, domain.MessageRequestStatusPending, domain.MessageRequestStatusDeclined); err != nil {
				return storageErr(err, "", resolved)
			}
			if err := s.conversationRepo.Delete(ctx, conv.ID); err != nil {
				return storageErr(err, "", resolved)
			}
			return s.audit.LogEvent(ctx, creatorID, &conv.ID, domain.EventTypeMessageRequestDeclined, map[string]interface{}{
				"creator_id":  conv.CreatorID,
				"customer_id": conv.CustomerID,
				"request_id":  req.ID.String(),
			})
		}

		if err := s.messageRequestRepo.UpdateStatus(ctx, req.ID, domain.MessageRequestStatusPending, domain.MessageRequestStatusAccepted); err != nil {
			return storageErr(err, "", resolved)
		}
		if err := s.conversationRepo.UpdateStatus(ctx, conv.ID, domain.ConversationStatusPending, domain.ConversationStatusActive); err != nil {
			return storageErr(err, "", resolved)
		}

		now := s.now().UTC()
		first = &domain.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			SenderID:       req.RequestedByCustomerID,
			Body:           req.FirstMessageText,
			Type:           domain.MessageTypeText,
			CreatedAt:      now,
		}
		if err := s.messageRepo.Create(ctx, first); err != nil {
			return err
		}
		if err := s.conversationRepo.TouchLastMessage(ctx, conv.ID, now); err != nil {
			return err
		}

		conv.Status = domain.ConversationStatusActive
		conv.LastMessageAt = &now
		req.Status = domain.MessageRequestStatusAccepted

		return s.audit.LogEvent(ctx, creatorID, &conv.ID, domain.EventTypeMessageRequestAccepted, map[string]interface{}{
			"request_id":       req.ID.String(),
			"first_message_id": first.ID.String(),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if !accept {
		s.log.Info("Message request declined", "conversation_id", conv.ID, "creator_id", creatorID)
		s.notifier.MessageRequestDeclined(ctx, conv)
		return nil, nil, nil
	}

	s.log.Info("Message request accepted", "conversation_id", conv.ID, "creator_id", creatorID)
	s.notifier.MessageRequestAccepted(ctx, conv, req, first)
	return conv, first, nil
}

func (s *conversationService) GetConversation(ctx context.Context, userID int64, conversationID uuid.UUID) (*domain.Conversation, error) {
	return visibleConversation(ctx, s.conversationRepo, conversationID, userID)
}

func (s *conversationService) GetConversationsForUser(ctx context.Context, userID int64, take, skip int) ([]*domain.Conversation, error) {
	take, skip = repository.NormalizePage(take, skip)
	return s.conversationRepo.ListForUser(ctx, userID, take, skip)
}

func (s *conversationService) GetPendingRequestsForCreator(ctx context.Context, creatorID int64, take, skip int) ([]*domain.PendingRequest, error) {
	take, skip = repository.NormalizePage(take, skip)
	return s.messageRequestRepo.ListPendingForCreator(ctx, creatorID, take, skip)
}

func (s *conversationService) GetPendingRequestsForCustomer(ctx context.Context, customerID int64, take, skip int) ([]*domain.PendingRequest, error) {
	take, skip = repository.NormalizePage(take, skip)
	return s.messageRequestRepo.ListPendingForCustomer(ctx, customerID, take, skip)
}
