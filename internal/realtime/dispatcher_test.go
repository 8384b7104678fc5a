package realtime

import (
	"context"
	"testing"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository/memory"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countByType(events []domain.Event) map[domain.EventName]int {
	out := make(map[domain.EventName]int)
	for _, ev := range events {
		out[ev.Type]++
	}
	return out
}

func TestDispatcher_AcceptReachesCustomerOnce(t *testing.T) {
	h := NewHub(logger.Nop())
	d := NewDispatcher(h, logger.Nop())
	ctx := context.Background()

	customer := newTestClient(h, 1)
	creator := newTestClient(h, 2)
	conv := &domain.Conversation{ID: uuid.New(), CustomerID: 1, CreatorID: 2, Status: domain.ConversationStatusActive}
	req := &domain.MessageRequest{ID: uuid.New(), ConversationID: conv.ID, Status: domain.MessageRequestStatusAccepted}
	first := &domain.Message{ID: uuid.New(), ConversationID: conv.ID, SenderID: 1, Body: "Hi", Type: domain.MessageTypeText}

	d.MessageRequestAccepted(ctx, conv, req, first)

	events := drain(t, customer)
	counts := countByType(events)
	assert.Equal(t, 1, counts[domain.EventConversationUpdated])
	assert.Equal(t, 1, counts[domain.EventReceiveMessage])
	assert.Len(t, events, 2)

	updated := events[0].Payload.(domain.ConversationPayload)
	assert.Equal(t, domain.ConversationStatusActive, updated.Conversation.Status)
	msg := events[1].Payload.(domain.MessagePayload)
	assert.Equal(t, "Hi", msg.Message.Body)

	assert.True(t, h.IsMember(creator, ConversationGroup(conv.ID)))
	assert.True(t, h.IsMember(customer, ConversationGroup(conv.ID)))
}

func TestDispatcher_RequestCreatedTargetsCreator(t *testing.T) {
	h := NewHub(logger.Nop())
	d := NewDispatcher(h, logger.Nop())

	customer := newTestClient(h, 1)
	creator := newTestClient(h, 2)
	conv := &domain.Conversation{ID: uuid.New(), CustomerID: 1, CreatorID: 2, Status: domain.ConversationStatusPending}

	d.MessageRequestCreated(context.Background(), conv, &domain.MessageRequest{ID: uuid.New(), ConversationID: conv.ID, RequestedByCustomerID: 1})

	assert.Len(t, drain(t, creator), 1)
	assert.Empty(t, drain(t, customer))
	assert.True(t, h.IsMember(customer, ConversationGroup(conv.ID)))
}

func TestDispatcher_DeclineDeletesAndDissolves(t *testing.T) {
	h := NewHub(logger.Nop())
	d := NewDispatcher(h, logger.Nop())

	customer := newTestClient(h, 1)
	creator := newTestClient(h, 2)
	conv := &domain.Conversation{ID: uuid.New(), CustomerID: 1, CreatorID: 2}
	h.Join(customer, ConversationGroup(conv.ID))
	h.Join(creator, ConversationGroup(conv.ID))

	d.MessageRequestDeclined(context.Background(), conv)

	for _, c := range []*Client{customer, creator} {
		events := drain(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventConversationDeleted, events[0].Type)
	}
	assert.Equal(t, 0, h.GroupSize(ConversationGroup(conv.ID)))
}

func TestDispatcher_DeadlineAcceptedSendsBothEvents(t *testing.T) {
	h := NewHub(logger.Nop())
	d := NewDispatcher(h, logger.Nop())

	c := newTestClient(h, 1)
	conv := &domain.Conversation{ID: uuid.New(), CustomerID: 1, CreatorID: 2}
	h.Join(c, ConversationGroup(conv.ID))

	change := &domain.ServiceRequestDeadlineChange{ID: uuid.New(), Status: domain.DeadlineChangeStatusAccepted}
	sr := &domain.ServiceRequest{ID: uuid.New(), Status: domain.ServiceRequestStatusConfirmedByCustomer}
	d.DeadlineProposalChanged(context.Background(), conv, change, sr)

	events := drain(t, c)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventDeadlineProposalUpdated, events[0].Type)
	assert.Equal(t, domain.EventServiceRequestUpdated, events[1].Type)

	d.DeadlineProposalChanged(context.Background(), conv, change, nil)
	assert.Len(t, drain(t, c), 1)
}

func TestDispatcher_EphemeralSignals(t *testing.T) {
	h := NewHub(logger.Nop())
	d := NewDispatcher(h, logger.Nop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	c := newTestClient(h, 1)
	convID := uuid.New()
	h.Join(c, ConversationGroup(convID))
	msgID := uuid.New()

	d.Typing(context.Background(), convID, 2)
	d.MessageSeen(context.Background(), convID, msgID, 2)

	events := drain(t, c)
	require.Len(t, events, 2)
	seen := events[1].Payload.(domain.MessageSeenPayload)
	assert.Equal(t, msgID, seen.MessageID)
	assert.Equal(t, int64(2), seen.UserID)
	assert.True(t, fixed.Equal(seen.SeenAt))
}

func TestMembership_RestoreAndJoin(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	ctx := context.Background()

	open := &domain.Conversation{ID: uuid.New(), CreatorID: 2, CustomerID: 1, Status: domain.ConversationStatusActive, CreatedAt: time.Now()}
	foreign := &domain.Conversation{ID: uuid.New(), CreatorID: 2, CustomerID: 3, Status: domain.ConversationStatusActive, CreatedAt: time.Now()}
	require.NoError(t, repos.Conversation.Create(ctx, open))
	require.NoError(t, repos.Conversation.Create(ctx, foreign))

	h := NewHub(logger.Nop())
	m := NewMembership(h, repos.Conversation, logger.Nop())
	c := newTestClient(h, 1)

	require.NoError(t, m.Restore(ctx, c))
	assert.True(t, h.IsMember(c, ConversationGroup(open.ID)))
	assert.False(t, h.IsMember(c, ConversationGroup(foreign.ID)))

	err := m.JoinConversation(ctx, c, foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = m.JoinConversation(ctx, c, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, m.JoinConversation(ctx, c, open.ID))
}
