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

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *domain.Delivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Delivery, error)
	ListPurchasedForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.Delivery, error)
}

type deliveryRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDeliveryRepository(db *pgxpool.Pool, log logger.Logger) DeliveryRepository {
	return &deliveryRepository{db: db, log: log}
}

const deliveryColumns = `d.id, d.conversation_id, d.service_request_id, d.product_id, d.price, d.status, d.created_at`

func (r *deliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (id, conversation_id, service_request_id, product_id, price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		delivery.ID, delivery.ConversationID, delivery.ServiceRequestID,
		delivery.ProductID, delivery.Price, delivery.Status, delivery.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create delivery", "error", err, "conversation_id", delivery.ConversationID)
		return err
	}

	return nil
}

func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries d WHERE d.id = $1`

	d := &domain.Delivery{}
	err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ConversationID, &d.ServiceRequestID, &d.ProductID, &d.Price, &d.Status, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get delivery", "error", err, "delivery_id", id)
		return nil, err
	}

	return d, nil
}

func (r *deliveryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE deliveries SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.log.Error("Failed to update delivery status", "error", err, "delivery_id", id)
		return err
	}

	return expectOne(tag)
}

func (r *deliveryRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries d
		WHERE d.conversation_id = $1
		ORDER BY d.created_at DESC, d.id
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, conversationID, limit, offset)
}

func (r *deliveryRepository) ListPurchasedForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries d
		JOIN conversations c ON c.id = d.conversation_id
		WHERE c.creator_id = $1 AND d.status = 'purchased'
		ORDER BY d.created_at DESC, d.id
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, creatorID, limit, offset)
}

func (r *deliveryRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Delivery, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list deliveries", "error", err)
		return nil, err
	}
	defer rows.Close()

	deliveries := make([]*domain.Delivery, 0)
	for rows.Next() {
		d := &domain.Delivery{}
		if err := rows.Scan(
			&d.ID, &d.ConversationID, &d.ServiceRequestID, &d.ProductID, &d.Price, &d.Status, &d.CreatedAt,
		); err != nil {
			r.log.Error("Failed to scan delivery", "error", err)
			return nil, err
		}
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}
