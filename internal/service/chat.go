package service

import (
	"context"
	"strings"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

type ChatService interface {
	SendMessage(ctx context.Context, senderID int64, conversationID uuid.UUID, text string) (*domain.Message, error)
	SendAttachmentMessage(ctx context.Context, senderID int64, conversationID uuid.UUID, text, attachmentURL, attachmentType string) (*domain.Message, error)
	GetMessages(ctx context.Context, userID int64, conversationID uuid.UUID, take, skip int) ([]*domain.Message, error)
}

type chatService struct {
	tx               repository.Transactor
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	notifier         Notifier
	log              logger.Logger
	now              func() time.Time
}

func NewChatService(repos *repository.Repositories, notifier Notifier, log logger.Logger) ChatService {
	return &chatService{
		tx:               repos.Tx,
		conversationRepo: repos.Conversation,
		messageRepo:      repos.Message,
		notifier:         notifier,
		log:              log,
		now:              time.Now,
	}
}

func (s *chatService) SendMessage(ctx context.Context, senderID int64, conversationID uuid.UUID, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidArgument("message cannot be empty")
	}

	return s.send(ctx, senderID, conversationID, &domain.Message{Body: text, Type: domain.MessageTypeText})
}

// SendAttachmentMessage stores a reference to a file uploaded elsewhere. The
// caption may be empty.
func (s *chatService) SendAttachmentMessage(ctx context.Context, senderID int64, conversationID uuid.UUID, text, attachmentURL, attachmentType string) (*domain.Message, error) {
	attachmentURL = strings.TrimSpace(attachmentURL)
	if attachmentURL == "" {
		return nil, apperrors.InvalidArgument("attachment url is required")
	}
	if !domain.IsValidAttachmentType(attachmentType) {
		return nil, apperrors.InvalidArgument("unsupported attachment type")
	}

	return s.send(ctx, senderID, conversationID, &domain.Message{
		Body:           strings.TrimSpace(text),
		Type:           domain.MessageTypeText,
		AttachmentURL:  &attachmentURL,
		AttachmentType: &attachmentType,
	})
}

func (s *chatService) send(ctx context.Context, senderID int64, conversationID uuid.UUID, msg *domain.Message) (*domain.Message, error) {
	if len(msg.Body) > maxMessageLength {
		return nil, apperrors.InvalidArgument("message is too long")
	}

	var conv *domain.Conversation
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		conv, err = conversationFor(ctx, s.conversationRepo, conversationID, senderID)
		if err != nil {
			return err
		}
		if err := requireActive(conv); err != nil {
			return err
		}

		msg.ID = uuid.New()
		msg.ConversationID = conv.ID
		msg.SenderID = senderID
		msg.CreatedAt = s.now().UTC()
		if err := s.messageRepo.Create(ctx, msg); err != nil {
			return err
		}
		return s.conversationRepo.TouchLastMessage(ctx, conv.ID, msg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	at := msg.CreatedAt
	conv.LastMessageAt = &at
	s.notifier.MessageSent(ctx, conv, msg)
	return msg, nil
}

func (s *chatService) GetMessages(ctx context.Context, userID int64, conversationID uuid.UUID, take, skip int) ([]*domain.Message, error) {
	if _, err := visibleConversation(ctx, s.conversationRepo, conversationID, userID); err != nil {
		return nil, err
	}
	take, skip = repository.NormalizePage(take, skip)
	return s.messageRepo.ListByConversation(ctx, conversationID, take, skip)
}
