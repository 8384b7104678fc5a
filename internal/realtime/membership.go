package realtime

import (
	"context"
	"errors"
	"fmt"

	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

// Membership derives a connection's groups from stored conversations, so a
// reconnecting client ends up in the same groups on whichever node it lands.
type Membership struct {
	hub           *Hub
	conversations repository.ConversationRepository
	log           logger.Logger
}

func NewMembership(hub *Hub, conversations repository.ConversationRepository, log logger.Logger) *Membership {
	return &Membership{hub: hub, conversations: conversations, log: log}
}

// Restore joins every pending or active conversation of the connection's
// user. The personal group is joined by Hub.Register.
func (m *Membership) Restore(ctx context.Context, c *Client) error {
	ids, err := m.conversations.ListOpenIDsForUser(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("list open conversations: %w", err)
	}
	for _, id := range ids {
		m.hub.Join(c, ConversationGroup(id))
	}
	m.log.Debug("Restored realtime membership", "user_id", c.UserID, "conversations", len(ids))
	return nil
}

// JoinConversation adds the connection to a conversation group after
// checking the user takes part in it.
func (m *Membership) JoinConversation(ctx context.Context, c *Client, conversationID uuid.UUID) error {
	conv, err := m.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("conversation not found")
		}
		return err
	}
	if !conv.IsParticipant(c.UserID) {
		return apperrors.NotFound("conversation not found")
	}
	if !conv.IsOpen() {
		return apperrors.Conflict("this conversation is closed")
	}
	m.hub.Join(c, ConversationGroup(conversationID))
	return nil
}
