package service

import (
	"context"
	"errors"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"

	"github.com/google/uuid"
)

const maxMessageLength = 4000

// storageErr turns repository sentinels into caller-facing errors with the
// given messages. Anything else is returned unchanged and ends up internal.
func storageErr(err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(notFound)
	case errors.Is(err, repository.ErrStateMismatch), errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict(conflict)
	}
	return err
}

// conversationFor loads a conversation the caller wants to act on. Only the
// two participants may; everybody else is refused.
func conversationFor(ctx context.Context, repo repository.ConversationRepository, id uuid.UUID, userID int64) (*domain.Conversation, error) {
	conv, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "conversation not found", "")
	}
	if !conv.IsParticipant(userID) {
		return nil, apperrors.Unauthorized("you are not a participant of this conversation")
	}
	return conv, nil
}

// visibleConversation is the read-side variant: conversations of other
// people do not exist as far as the caller can tell.
func visibleConversation(ctx context.Context, repo repository.ConversationRepository, id uuid.UUID, userID int64) (*domain.Conversation, error) {
	conv, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err, "conversation not found", "")
	}
	if !conv.IsParticipant(userID) {
		return nil, apperrors.NotFound("conversation not found")
	}
	return conv, nil
}

func requireActive(conv *domain.Conversation) error {
	if conv.Status != domain.ConversationStatusActive {
		return apperrors.Conflict("this conversation is not active")
	}
	return nil
}
