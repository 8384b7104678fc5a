package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"creator_chat/internal/domain"
	apperrors "creator_chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateServiceRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	budget := 50.0
	sr, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{
		Requirements:   "A custom portrait",
		ProposedBudget: &budget,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusPending, sr.Status)
	require.NotNil(t, sr.Currency)
	assert.Equal(t, domain.DefaultCurrency, *sr.Currency)
	assert.Nil(t, sr.CreatorDeadlineUTC)
	assert.Equal(t, "service_request_changed", f.events.last().name)

	eur := "eur"
	sr, err = f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "Another", Currency: &eur})
	require.NoError(t, err)
	assert.Equal(t, "EUR", *sr.Currency)
	assert.Nil(t, sr.ProposedBudget)
}

func TestCreateServiceRequest_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	zero := 0.0
	bad := "dollars"
	tests := []struct {
		name      string
		userID    int64
		input     CreateServiceRequestInput
		wantError error
	}{
		{name: "creator cannot request", userID: creatorID, input: CreateServiceRequestInput{Requirements: "x"}, wantError: apperrors.ErrUnauthorized},
		{name: "stranger", userID: strangerID, input: CreateServiceRequestInput{Requirements: "x"}, wantError: apperrors.ErrUnauthorized},
		{name: "empty requirements", userID: customerID, input: CreateServiceRequestInput{Requirements: " "}, wantError: apperrors.ErrInvalidArgument},
		{name: "zero budget", userID: customerID, input: CreateServiceRequestInput{Requirements: "x", ProposedBudget: &zero}, wantError: apperrors.ErrInvalidArgument},
		{name: "bad currency", userID: customerID, input: CreateServiceRequestInput{Requirements: "x", Currency: &bad}, wantError: apperrors.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.services.ServiceRequest.Create(ctx, tt.userID, conv.ID, tt.input)
			assert.ErrorIs(t, err, tt.wantError)
		})
	}

	pending, err := f.services.Conversation.CreateMessageRequest(ctx, customerID, otherCreatorID, "Hi")
	require.NoError(t, err)
	_, err = f.services.ServiceRequest.Create(ctx, customerID, pending.Conversation.ID, CreateServiceRequestInput{Requirements: "x"})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "only active conversations take service requests")
}

func TestServiceRequest_AcceptThenConfirmIsTheOnlyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	sr, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "x"})
	require.NoError(t, err)

	_, err = f.services.ServiceRequest.Confirm(ctx, customerID, conv.ID, sr.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "a pending request cannot be confirmed")

	_, err = f.services.ServiceRequest.Accept(ctx, customerID, conv.ID, sr.ID, time.Now().Add(48*time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "the customer cannot accept")

	_, err = f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument, "deadlines lie in the future")

	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	accepted, err := f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, deadline)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusAcceptedByCreator, accepted.Status)
	require.NotNil(t, accepted.CreatorDeadlineUTC)
	assert.True(t, deadline.Equal(*accepted.CreatorDeadlineUTC))

	_, err = f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, deadline)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "a request cannot be accepted twice")

	_, err = f.services.ServiceRequest.Confirm(ctx, creatorID, conv.ID, sr.ID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "the creator cannot confirm")

	confirmed, err := f.services.ServiceRequest.Confirm(ctx, customerID, conv.ID, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusConfirmedByCustomer, confirmed.Status)

	_, err = f.services.ServiceRequest.Confirm(ctx, customerID, conv.ID, sr.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestServiceRequest_Decline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	sr, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "x"})
	require.NoError(t, err)

	declined, err := f.services.ServiceRequest.Decline(ctx, creatorID, conv.ID, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceRequestStatusRejected, declined.Status)

	_, err = f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestServiceRequest_ConcurrentAcceptOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	sr, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "x"})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deadline := time.Now().Add(time.Duration(i+1) * time.Hour)
			_, errs[i] = f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, sr.ID, deadline)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)
}

func TestServiceRequest_ForeignRequestIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	_, err := f.services.ServiceRequest.Accept(ctx, creatorID, conv.ID, uuid.New(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	pending, err := f.services.Conversation.CreateMessageRequest(ctx, customerID, otherCreatorID, "Hi")
	require.NoError(t, err)
	other, _, err := f.services.Conversation.RespondToMessageRequest(ctx, otherCreatorID, pending.Conversation.ID, true)
	require.NoError(t, err)
	sr, err := f.services.ServiceRequest.Create(ctx, customerID, other.ID, CreateServiceRequestInput{Requirements: "x"})
	require.NoError(t, err)

	// The request exists, but not in this conversation.
	_, err = f.services.ServiceRequest.Confirm(ctx, customerID, conv.ID, sr.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeadlineChange_OnePendingPerRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)
	sr := f.acceptedServiceRequest(t, conv, time.Now().Add(72*time.Hour))

	change, err := f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(96*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DeadlineChangeStatusPending, change.Status)
	assert.Equal(t, "deadline_changed", f.events.last().name)

	_, err = f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(120*time.Hour), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	changes, err := f.services.ServiceRequest.GetDeadlineChanges(ctx, customerID, conv.ID, sr.ID)
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	// Once answered, a new proposal is allowed.
	_, _, err = f.services.ServiceRequest.RespondToDeadlineChange(ctx, customerID, conv.ID, change.ID, false)
	require.NoError(t, err)
	_, err = f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(120*time.Hour), nil)
	assert.NoError(t, err)
}

func TestDeadlineChange_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	pendingSR, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "x"})
	require.NoError(t, err)
	_, err = f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, pendingSR.ID, time.Now().Add(time.Hour), nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "no agreed deadline to change yet")

	sr := f.acceptedServiceRequest(t, conv, time.Now().Add(72*time.Hour))
	_, err = f.services.ServiceRequest.ProposeDeadlineChange(ctx, customerID, conv.ID, sr.ID, time.Now().Add(96*time.Hour), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(-time.Hour), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	change, err := f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, time.Now().Add(96*time.Hour), nil)
	require.NoError(t, err)

	_, _, err = f.services.ServiceRequest.RespondToDeadlineChange(ctx, creatorID, conv.ID, change.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "the creator cannot answer their own proposal")

	_, _, err = f.services.ServiceRequest.RespondToDeadlineChange(ctx, customerID, conv.ID, uuid.New(), true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeadlineChange_DeclineKeepsDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	original := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	sr := f.acceptedServiceRequest(t, conv, original)

	reason := "Need more time for revisions"
	change, err := f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, original.Add(48*time.Hour), &reason)
	require.NoError(t, err)
	require.NotNil(t, change.Reason)

	declined, updated, err := f.services.ServiceRequest.RespondToDeadlineChange(ctx, customerID, conv.ID, change.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.DeadlineChangeStatusDeclined, declined.Status)
	assert.Nil(t, updated)

	stored, err := f.repos.ServiceRequest.GetByID(ctx, sr.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CreatorDeadlineUTC)
	assert.True(t, original.Equal(*stored.CreatorDeadlineUTC))

	storedChange, err := f.repos.DeadlineChange.GetByID(ctx, change.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeadlineChangeStatusDeclined, storedChange.Status)

	_, _, err = f.services.ServiceRequest.RespondToDeadlineChange(ctx, customerID, conv.ID, change.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestDeadlineChange_AcceptMovesDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	original := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	sr := f.acceptedServiceRequest(t, conv, original)
	proposed := original.Add(24 * time.Hour)

	change, err := f.services.ServiceRequest.ProposeDeadlineChange(ctx, creatorID, conv.ID, sr.ID, proposed, nil)
	require.NoError(t, err)

	accepted, updated, err := f.services.ServiceRequest.RespondToDeadlineChange(ctx, customerID, conv.ID, change.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.DeadlineChangeStatusAccepted, accepted.Status)
	require.NotNil(t, updated)
	assert.True(t, proposed.Equal(*updated.CreatorDeadlineUTC))
	assert.Equal(t, domain.ServiceRequestStatusAcceptedByCreator, updated.Status)

	last := f.events.last()
	assert.Equal(t, "deadline_changed", last.name)
	assert.NotNil(t, last.serviceRequest)
}

func TestGetServiceRequests_ByRoleAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := f.activeConversation(t)

	f.acceptedServiceRequest(t, conv, time.Now().Add(24*time.Hour))
	_, err := f.services.ServiceRequest.Create(ctx, customerID, conv.ID, CreateServiceRequestInput{Requirements: "second"})
	require.NoError(t, err)

	all, err := f.services.ServiceRequest.GetForCreator(ctx, creatorID, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "second", all[0].ServiceRequest.Requirements, "newest first")
	assert.Equal(t, customerID, all[0].CustomerID)

	pending, err := f.services.ServiceRequest.GetForCustomer(ctx, customerID, domain.ServiceRequestStatusPending, 0, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	none, err := f.services.ServiceRequest.GetForCreator(ctx, otherCreatorID, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.services.ServiceRequest.GetForCreator(ctx, creatorID, "weird", 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}
