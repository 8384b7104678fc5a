package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/domain"
	"creator_chat/internal/repository"
	apperrors "creator_chat/pkg/errors"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pgFixture struct {
	pool     *pgxpool.Pool
	repos    *repository.Repositories
	services *Services
	nextID   int64
}

// newPGFixture runs against TEST_DATABASE_URL and skips without it. Users
// get ids unique to the run so the tests can share a database.
func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx))

	log := logger.Nop()
	require.NoError(t, repository.Migrate(ctx, pool, log))

	repos := repository.NewRepositories(pool, nil, log)
	return &pgFixture{
		pool:     pool,
		repos:    repos,
		services: NewServices(repos, &config.Config{}, nil, nil, log),
		nextID:   time.Now().UnixNano() / 1000,
	}
}

func (f *pgFixture) user(t *testing.T, role string) int64 {
	t.Helper()

	f.nextID++
	id := f.nextID
	_, err := f.pool.Exec(context.Background(),
		`INSERT INTO users (id, display_name, role) VALUES ($1, $2, $3)`, id, role, role)
	require.NoError(t, err)
	return id
}

func (f *pgFixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, f.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestPostgres_OpenPairIndexMapsToConflict(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	customer := f.user(t, domain.UserRoleCustomer)
	creator := f.user(t, domain.UserRoleCreator)

	newConv := func() *domain.Conversation {
		return &domain.Conversation{
			ID:         uuid.New(),
			CreatorID:  creator,
			CustomerID: customer,
			Status:     domain.ConversationStatusPending,
			CreatedAt:  time.Now().UTC(),
		}
	}

	require.NoError(t, f.repos.Conversation.Create(ctx, newConv()))

	err := f.repos.Conversation.Create(ctx, newConv())
	require.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(storageErr(err, "", "already open")))

	closed := newConv()
	closed.Status = domain.ConversationStatusDeclined
	assert.NoError(t, f.repos.Conversation.Create(ctx, closed))
}

func TestPostgres_PendingDeadlineIndexMapsToConflict(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	customer := f.user(t, domain.UserRoleCustomer)
	creator := f.user(t, domain.UserRoleCreator)

	now := time.Now().UTC()
	conv := &domain.Conversation{ID: uuid.New(), CreatorID: creator, CustomerID: customer, Status: domain.ConversationStatusActive, CreatedAt: now}
	require.NoError(t, f.repos.Conversation.Create(ctx, conv))
	sr := &domain.ServiceRequest{
		ID:                    uuid.New(),
		ConversationID:        conv.ID,
		RequestedByCustomerID: customer,
		Requirements:          "Portrait",
		Status:                domain.ServiceRequestStatusAcceptedByCreator,
		CreatedAt:             now,
	}
	require.NoError(t, f.repos.ServiceRequest.Create(ctx, sr))

	newChange := func() *domain.ServiceRequestDeadlineChange {
		return &domain.ServiceRequestDeadlineChange{
			ID:                  uuid.New(),
			ServiceRequestID:    sr.ID,
			ProposedByCreatorID: creator,
			ProposedDeadlineUTC: now.Add(48 * time.Hour),
			Status:              domain.DeadlineChangeStatusPending,
			CreatedAt:           now,
		}
	}

	first := newChange()
	require.NoError(t, f.repos.DeadlineChange.Create(ctx, first))

	err := f.repos.DeadlineChange.Create(ctx, newChange())
	require.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, apperrors.CodeConflict, apperrors.Code(storageErr(err, "", "already pending")))

	require.NoError(t, f.repos.DeadlineChange.UpdateStatus(ctx, first.ID, domain.DeadlineChangeStatusPending, domain.DeadlineChangeStatusDeclined))
	assert.NoError(t, f.repos.DeadlineChange.Create(ctx, newChange()))
}

func TestPostgres_ConditionalUpdatePicksOneWinner(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	customer := f.user(t, domain.UserRoleCustomer)
	creator := f.user(t, domain.UserRoleCreator)

	pending, err := f.services.Conversation.CreateMessageRequest(ctx, customer, creator, "Hi")
	require.NoError(t, err)
	convID := pending.Conversation.ID

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.services.Conversation.RespondToMessageRequest(ctx, creator, convID, true)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, apperrors.CodeConflict, apperrors.Code(err), err.Error())
	}
	assert.Equal(t, 1, won)

	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, convID))

	conv, err := f.repos.Conversation.GetByID(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusActive, conv.Status)

	err = f.repos.Conversation.UpdateStatus(ctx, convID, domain.ConversationStatusPending, domain.ConversationStatusActive)
	assert.ErrorIs(t, err, repository.ErrStateMismatch)
}

func TestPostgres_DeclineCascades(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	customer := f.user(t, domain.UserRoleCustomer)
	creator := f.user(t, domain.UserRoleCreator)

	pending, err := f.services.Conversation.CreateMessageRequest(ctx, customer, creator, "Hi")
	require.NoError(t, err)
	convID := pending.Conversation.ID

	conv, first, err := f.services.Conversation.RespondToMessageRequest(ctx, creator, convID, false)
	require.NoError(t, err)
	assert.Nil(t, conv)
	assert.Nil(t, first)

	_, err = f.repos.Conversation.GetByID(ctx, convID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM message_requests WHERE conversation_id = $1`, convID))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, convID))
	assert.Equal(t, 1, f.count(t,
		`SELECT COUNT(*) FROM audit_log WHERE conversation_id = $1 AND event_type = $2`,
		convID, domain.EventTypeMessageRequestDeclined))

	again, err := f.services.Conversation.CreateMessageRequest(ctx, customer, creator, "Second try")
	require.NoError(t, err)
	assert.NotEqual(t, convID, again.Conversation.ID)
}
