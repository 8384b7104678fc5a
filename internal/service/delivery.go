package service

import (
	"context"
	"math"
	"strings"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

type DeliverProductInput struct {
	ServiceRequestID *uuid.UUID
	ProductID        int64
	Price            float64
}

type PrivateProductInput struct {
	ServiceRequestID *uuid.UUID
	Title            string
	Description      string
	Price            float64
}

type DeliveryService interface {
	DeliverProduct(ctx context.Context, creatorID int64, conversationID uuid.UUID, input DeliverProductInput) (*domain.Delivery, error)
	CreateAndDeliverPrivateProduct(ctx context.Context, creatorID int64, conversationID uuid.UUID, input PrivateProductInput) (*domain.Delivery, error)
	MarkPurchased(ctx context.Context, customerID int64, conversationID, deliveryID uuid.UUID) (*domain.Delivery, error)
	Cancel(ctx context.Context, creatorID int64, conversationID, deliveryID uuid.UUID) (*domain.Delivery, error)
	GetCompletedForCreator(ctx context.Context, creatorID int64, take, skip int) ([]*domain.Delivery, error)
	GetForConversation(ctx context.Context, userID int64, conversationID uuid.UUID, take, skip int) ([]*domain.Delivery, error)
}

type deliveryService struct {
	tx                 repository.Transactor
	conversationRepo   repository.ConversationRepository
	serviceRequestRepo repository.ServiceRequestRepository
	deliveryRepo       repository.DeliveryRepository
	catalog            CatalogClient
	audit              AuditService
	notifier           Notifier
	log                logger.Logger
	now                func() time.Time
}

func NewDeliveryService(repos *repository.Repositories, catalog CatalogClient, audit AuditService, notifier Notifier, log logger.Logger) DeliveryService {
	return &deliveryService{
		tx:                 repos.Tx,
		conversationRepo:   repos.Conversation,
		serviceRequestRepo: repos.ServiceRequest,
		deliveryRepo:       repos.Delivery,
		catalog:            catalog,
		audit:              audit,
		notifier:           notifier,
		log:                log,
		now:                time.Now,
	}
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price)
}

func (s *deliveryService) DeliverProduct(ctx context.Context, creatorID int64, conversationID uuid.UUID, input DeliverProductInput) (*domain.Delivery, error) {
	if input.ProductID <= 0 {
		return nil, apperrors.InvalidArgument("product id must be positive")
	}
	if !validPrice(input.Price) {
		return nil, apperrors.InvalidArgument("price must be greater than zero")
	}

	var conv *domain.Conversation
	delivery := &domain.Delivery{
		ID:               uuid.New(),
		ConversationID:   conversationID,
		ServiceRequestID: input.ServiceRequestID,
		ProductID:        input.ProductID,
		Price:            input.Price,
		Status:           domain.DeliveryStatusAwaitingPurchase,
		CreatedAt:        s.now().UTC(),
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.authorizeCreator(ctx, conversationID, creatorID, "only the creator can deliver a product")
		if err != nil {
			return err
		}
		if err := s.checkServiceRequest(ctx, conv, input.ServiceRequestID); err != nil {
			return err
		}

		if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
			return err
		}
		payload := map[string]interface{}{
			"delivery_id": delivery.ID.String(),
			"product_id":  delivery.ProductID,
			"price":       delivery.Price,
		}
		if input.ServiceRequestID != nil {
			payload["service_request_id"] = input.ServiceRequestID.String()
		}
		return s.audit.LogEvent(ctx, creatorID, &conv.ID, domain.EventTypeDeliveryCreated, payload)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Product delivered", "delivery_id", delivery.ID, "conversation_id", conv.ID, "product_id", delivery.ProductID)
	s.notifier.DeliveryChanged(ctx, conv, delivery)
	return delivery, nil
}

// CreateAndDeliverPrivateProduct checks the caller may deliver before
// minting, so a refused call leaves nothing behind in the catalog. A product
// minted for a delivery that then fails to commit stays unlisted.
func (s *deliveryService) CreateAndDeliverPrivateProduct(ctx context.Context, creatorID int64, conversationID uuid.UUID, input PrivateProductInput) (*domain.Delivery, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.InvalidArgument("product title is required")
	}
	if !validPrice(input.Price) {
		return nil, apperrors.InvalidArgument("price must be greater than zero")
	}
	if s.catalog == nil {
		return nil, apperrors.Conflict("private products are not available")
	}

	conv, err := s.authorizeCreator(ctx, conversationID, creatorID, "only the creator can deliver a product")
	if err != nil {
		return nil, err
	}
	if err := s.checkServiceRequest(ctx, conv, input.ServiceRequestID); err != nil {
		return nil, err
	}

	productID, err := s.catalog.CreatePrivateProduct(ctx, domain.PrivateProduct{
		CreatorID:   conv.CreatorID,
		CustomerID:  conv.CustomerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
	})
	if err != nil {
		s.log.Error("Failed to create private product", "conversation_id", conv.ID, "error", err)
		return nil, err
	}

	return s.DeliverProduct(ctx, creatorID, conversationID, DeliverProductInput{
		ServiceRequestID: input.ServiceRequestID,
		ProductID:        productID,
		Price:            input.Price,
	})
}

func (s *deliveryService) MarkPurchased(ctx context.Context, customerID int64, conversationID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	return s.transition(ctx, conversationID, deliveryID, customerID, false,
		"only the customer can purchase a delivery",
		domain.DeliveryStatusAwaitingPurchase, domain.DeliveryStatusPurchased,
		"this delivery is not awaiting purchase",
		domain.EventTypeDeliveryPurchased)
}

func (s *deliveryService) Cancel(ctx context.Context, creatorID int64, conversationID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	return s.transition(ctx, conversationID, deliveryID, creatorID, true,
		"only the creator can cancel a delivery",
		domain.DeliveryStatusAwaitingPurchase, domain.DeliveryStatusCanceled,
		"only deliveries awaiting purchase can be canceled",
		domain.EventTypeDeliveryCanceled)
}

func (s *deliveryService) transition(ctx context.Context, conversationID, deliveryID uuid.UUID, actorID int64, creatorOnly bool, forbidden, from, to, conflict, auditType string) (*domain.Delivery, error) {
	var conv *domain.Conversation
	var delivery *domain.Delivery

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = conversationFor(ctx, s.conversationRepo, conversationID, actorID)
		if err != nil {
			return err
		}
		if (creatorOnly && conv.CreatorID != actorID) || (!creatorOnly && conv.CustomerID != actorID) {
			return apperrors.Unauthorized(forbidden)
		}

		delivery, err = s.deliveryRepo.GetByID(ctx, deliveryID)
		if err != nil {
			return storageErr(err, "delivery not found", "")
		}
		if delivery.ConversationID != conv.ID {
			return apperrors.NotFound("delivery not found")
		}
		if delivery.Status != from {
			return apperrors.Conflict(conflict)
		}

		if err := s.deliveryRepo.UpdateStatus(ctx, delivery.ID, from, to); err != nil {
			return storageErr(err, "delivery not found", conflict)
		}
		delivery.Status = to

		return s.audit.LogEvent(ctx, actorID, &conv.ID, auditType, map[string]interface{}{
			"delivery_id": delivery.ID.String(),
			"status":      to,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Delivery updated", "delivery_id", delivery.ID, "status", delivery.Status, "actor_id", actorID)
	s.notifier.DeliveryChanged(ctx, conv, delivery)
	return delivery, nil
}

func (s *deliveryService) GetCompletedForCreator(ctx context.Context, creatorID int64, take, skip int) ([]*domain.Delivery, error) {
	take, skip = repository.NormalizePage(take, skip)
	return s.deliveryRepo.ListPurchasedForCreator(ctx, creatorID, take, skip)
}

func (s *deliveryService) GetForConversation(ctx context.Context, userID int64, conversationID uuid.UUID, take, skip int) ([]*domain.Delivery, error) {
	if _, err := visibleConversation(ctx, s.conversationRepo, conversationID, userID); err != nil {
		return nil, err
	}
	take, skip = repository.NormalizePage(take, skip)
	return s.deliveryRepo.ListByConversation(ctx, conversationID, take, skip)
}

func (s *deliveryService) authorizeCreator(ctx context.Context, conversationID uuid.UUID, creatorID int64, forbidden string) (*domain.Conversation, error) {
	conv, err := conversationFor(ctx, s.conversationRepo, conversationID, creatorID)
	if err != nil {
		return nil, err
	}
	if conv.CreatorID != creatorID {
		return nil, apperrors.Unauthorized(forbidden)
	}
	if err := requireActive(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// checkServiceRequest allows a delivery against a request the creator has
// committed to, in this same conversation.
func (s *deliveryService) checkServiceRequest(ctx context.Context, conv *domain.Conversation, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	sr, err := s.serviceRequestRepo.GetByID(ctx, *id)
	if err != nil {
		return storageErr(err, "service request not found", "")
	}
	if sr.ConversationID != conv.ID {
		return apperrors.NotFound("service request not found")
	}
	if !sr.HasAgreedDeadline() {
		return apperrors.Conflict("deliver only against a service request you have accepted")
	}
	return nil
}
