package repository

import (
	"context"
	"errors"

	"creator_chat/internal/domain"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRequestRepository interface {
	Create(ctx context.Context, request *domain.MessageRequest) error
	GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*domain.MessageRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ListPendingForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.PendingRequest, error)
	ListPendingForCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*domain.PendingRequest, error)
}

type messageRequestRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRequestRepository(db *pgxpool.Pool, log logger.Logger) MessageRequestRepository {
	return &messageRequestRepository{db: db, log: log}
}

func (r *messageRequestRepository) Create(ctx context.Context, request *domain.MessageRequest) error {
	query := `
		INSERT INTO message_requests (id, conversation_id, requested_by_customer_id, first_message_text, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		request.ID, request.ConversationID, request.RequestedByCustomerID,
		request.FirstMessageText, request.Status, request.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.Error("Failed to create message request", "error", err)
		return err
	}

	return nil
}

func (r *messageRequestRepository) GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*domain.MessageRequest, error) {
	query := `
		SELECT id, conversation_id, requested_by_customer_id, first_message_text, status, created_at
		FROM message_requests
		WHERE conversation_id = $1
	`

	req := &domain.MessageRequest{}
	err := conn(ctx, r.db).QueryRow(ctx, query, conversationID).Scan(
		&req.ID, &req.ConversationID, &req.RequestedByCustomerID,
		&req.FirstMessageText, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get message request", "error", err, "conversation_id", conversationID)
		return nil, err
	}

	return req, nil
}

func (r *messageRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE message_requests SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.log.Error("Failed to update message request status", "error", err, "message_request_id", id)
		return err
	}

	return expectOne(tag)
}

func (r *messageRequestRepository) ListPendingForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.PendingRequest, error) {
	return r.listPending(ctx, "c.creator_id", creatorID, limit, offset)
}

func (r *messageRequestRepository) ListPendingForCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*domain.PendingRequest, error) {
	return r.listPending(ctx, "c.customer_id", customerID, limit, offset)
}

// listPending is shared by both roles; column is a fixed identifier chosen
// by the callers above, never user input.
func (r *messageRequestRepository) listPending(ctx context.Context, column string, userID int64, limit, offset int) ([]*domain.PendingRequest, error) {
	query := `
		SELECT c.id, c.creator_id, c.customer_id, c.status, c.created_at, c.last_message_at,
		       m.id, m.conversation_id, m.requested_by_customer_id, m.first_message_text, m.status, m.created_at
		FROM message_requests m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE ` + column + ` = $1 AND m.status = 'pending' AND c.status = 'pending'
		ORDER BY m.created_at DESC, m.id
		LIMIT $2 OFFSET $3
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list pending message requests", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.PendingRequest, 0)
	for rows.Next() {
		c := &domain.Conversation{}
		m := &domain.MessageRequest{}
		if err := rows.Scan(
			&c.ID, &c.CreatorID, &c.CustomerID, &c.Status, &c.CreatedAt, &c.LastMessageAt,
			&m.ID, &m.ConversationID, &m.RequestedByCustomerID, &m.FirstMessageText, &m.Status, &m.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan pending message request", "error", err)
			return nil, err
		}
		result = append(result, &domain.PendingRequest{Conversation: c, Request: m})
	}

	return result, rows.Err()
}
