package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	"creator_chat/internal/repository/memory"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	customerID     int64 = 1
	creatorID      int64 = 2
	strangerID     int64 = 3
	otherCreatorID int64 = 4
)

type recordedEvent struct {
	name           string
	conversationID uuid.UUID
	message        *domain.Message
	change         *domain.ServiceRequestDeadlineChange
	serviceRequest *domain.ServiceRequest
	delivery       *domain.Delivery
}

// recorder is a Notifier that remembers every call.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) add(e recordedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

func (r *recorder) last() recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) MessageSent(_ context.Context, conv *domain.Conversation, msg *domain.Message) {
	r.add(recordedEvent{name: "message_sent", conversationID: conv.ID, message: msg})
}

func (r *recorder) MessageRequestCreated(_ context.Context, conv *domain.Conversation, _ *domain.MessageRequest) {
	r.add(recordedEvent{name: "request_created", conversationID: conv.ID})
}

func (r *recorder) MessageRequestDeclined(_ context.Context, conv *domain.Conversation) {
	r.add(recordedEvent{name: "request_declined", conversationID: conv.ID})
}

func (r *recorder) MessageRequestAccepted(_ context.Context, conv *domain.Conversation, _ *domain.MessageRequest, first *domain.Message) {
	r.add(recordedEvent{name: "request_accepted", conversationID: conv.ID, message: first})
}

func (r *recorder) ServiceRequestChanged(_ context.Context, conv *domain.Conversation, sr *domain.ServiceRequest) {
	r.add(recordedEvent{name: "service_request_changed", conversationID: conv.ID, serviceRequest: sr})
}

func (r *recorder) DeadlineProposalChanged(_ context.Context, conv *domain.Conversation, change *domain.ServiceRequestDeadlineChange, sr *domain.ServiceRequest) {
	r.add(recordedEvent{name: "deadline_changed", conversationID: conv.ID, change: change, serviceRequest: sr})
}

func (r *recorder) DeliveryChanged(_ context.Context, conv *domain.Conversation, d *domain.Delivery) {
	r.add(recordedEvent{name: "delivery_changed", conversationID: conv.ID, delivery: d})
}

type catalogMock struct {
	mock.Mock
}

func (m *catalogMock) CreatePrivateProduct(ctx context.Context, product domain.PrivateProduct) (int64, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	store    *memory.Store
	repos    *repository.Repositories
	services *Services
	events   *recorder
	catalog  *catalogMock
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, &config.Config{})
}

func newFixtureWithConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	store := memory.NewStore()
	now := time.Now().UTC()
	store.PutUser(&domain.User{ID: customerID, DisplayName: "Customer", Role: domain.UserRoleCustomer, IsActive: true, CreatedAt: now})
	store.PutUser(&domain.User{ID: creatorID, DisplayName: "Creator", Role: domain.UserRoleCreator, IsActive: true, CreatedAt: now})
	store.PutUser(&domain.User{ID: strangerID, DisplayName: "Stranger", Role: domain.UserRoleCustomer, IsActive: true, CreatedAt: now})
	store.PutUser(&domain.User{ID: otherCreatorID, DisplayName: "Other creator", Role: domain.UserRoleCreator, IsActive: true, CreatedAt: now})

	repos := store.Repositories()
	events := &recorder{}
	catalog := &catalogMock{}

	return &fixture{
		store:    store,
		repos:    repos,
		services: NewServices(repos, cfg, catalog, events, logger.Nop()),
		events:   events,
		catalog:  catalog,
	}
}

// activeConversation runs the request/accept handshake between the default
// customer and creator.
func (f *fixture) activeConversation(t *testing.T) *domain.Conversation {
	t.Helper()

	ctx := context.Background()
	pending, err := f.services.Conversation.CreateMessageRequest(ctx, customerID, creatorID, "Hi")
	require.NoError(t, err)
	conv, _, err := f.services.Conversation.RespondToMessageRequest(ctx, creatorID, pending.Conversation.ID, true)
	require.NoError(t, err)
	return conv
}

func (f *fixture) activeConversationWith(t *testing.T, conversationID uuid.UUID) *domain.Conversation {
	t.Helper()

	conv, _, err := f.services.Conversation.RespondToMessageRequest(context.Background(), creatorID, conversationID, true)
	require.NoError(t, err)
	return conv
}

// acceptedServiceRequest creates a $50 request and has the creator accept it.
func (f *fixture) acceptedServiceRequest(t *testing.T, conv *domain.Conversation, deadline time.Time) *domain.ServiceRequest {
	t.Helper()

	ctx := context.Background()
	budget := 50.0
	sr, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{
		Requirements:   "A custom portrait",
		ProposedBudget: &budget,
	})
	require.NoError(t, err)

	sr, err = f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, deadline)
	require.NoError(t, err)
	return sr
}
