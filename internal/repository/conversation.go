package repository

import (
	"context"
	"errors"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	GetOpenByPair(ctx context.Context, creatorID, customerID int64) (*domain.Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error)
	ListOpenIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error)
}

type conversationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewConversationRepository(db *pgxpool.Pool, log logger.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log}
}

const conversationColumns = `id, creator_id, customer_id, status, created_at, last_message_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := row.Scan(&c.ID, &c.CreatorID, &c.CustomerID, &c.Status, &c.CreatedAt, &c.LastMessageAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	query := `
		INSERT INTO conversations (id, creator_id, customer_id, status, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		conversation.ID, conversation.CreatorID, conversation.CustomerID,
		conversation.Status, conversation.CreatedAt, conversation.LastMessageAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.Error("Failed to create conversation", "error", err)
		return err
	}

	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	c, err := scanConversation(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get conversation by ID", "error", err, "conversation_id", id)
		return nil, err
	}

	return c, nil
}

func (r *conversationRepository) GetOpenByPair(ctx context.Context, creatorID, customerID int64) (*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE creator_id = $1 AND customer_id = $2 AND status IN ('pending', 'active')
		LIMIT 1
	`

	c, err := scanConversation(conn(ctx, r.db).QueryRow(ctx, query, creatorID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get open conversation", "error", err, "creator_id", creatorID, "customer_id", customerID)
		return nil, err
	}

	return c, nil
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	query := `UPDATE conversations SET status = $3 WHERE id = $1 AND status = $2`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id, from, to)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.Error("Failed to update conversation status", "error", err, "conversation_id", id)
		return err
	}

	return expectOne(tag)
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE conversations
		SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2)
		WHERE id = $1
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("Failed to update last message time", "error", err, "conversation_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the conversation; message requests, messages, service
// requests and deliveries go with it through ON DELETE CASCADE.
func (r *conversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete conversation", "error", err, "conversation_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE (creator_id = $1 OR customer_id = $1) AND status <> 'declined'
		ORDER BY COALESCE(last_message_at, created_at) DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list conversations", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			r.log.Error("Failed to scan conversation", "error", err)
			return nil, err
		}
		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

func (r *conversationRepository) ListOpenIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM conversations
		WHERE (creator_id = $1 OR customer_id = $1) AND status IN ('pending', 'active')
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list open conversation IDs", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
