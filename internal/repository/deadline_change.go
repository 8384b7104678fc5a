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

type DeadlineChangeRepository interface {
	// Create fails with ErrDuplicate while another proposal for the same
	// service request is still pending.
	Create(ctx context.Context, change *domain.ServiceRequestDeadlineChange) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequestDeadlineChange, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ListByServiceRequest(ctx context.Context, serviceRequestID uuid.UUID) ([]*domain.ServiceRequestDeadlineChange, error)
}

type deadlineChangeRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewDeadlineChangeRepository(db *pgxpool.Pool, log logger.Logger) DeadlineChangeRepository {
	return &deadlineChangeRepository{db: db, log: log}
}

func (r *deadlineChangeRepository) Create(ctx context.Context, change *domain.ServiceRequestDeadlineChange) error {
	query := `
		INSERT INTO service_request_deadline_changes (id, service_request_id, proposed_by_creator_id,
		                                              proposed_deadline_utc, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		change.ID, change.ServiceRequestID, change.ProposedByCreatorID,
		change.ProposedDeadlineUTC, change.Reason, change.Status, change.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.Error("Failed to create deadline change", "error", err, "service_request_id", change.ServiceRequestID)
		return err
	}

	return nil
}

func (r *deadlineChangeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequestDeadlineChange, error) {
	query := `
		SELECT id, service_request_id, proposed_by_creator_id, proposed_deadline_utc, reason, status, created_at
		FROM service_request_deadline_changes
		WHERE id = $1
	`

	change := &domain.ServiceRequestDeadlineChange{}
	err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&change.ID, &change.ServiceRequestID, &change.ProposedByCreatorID,
		&change.ProposedDeadlineUTC, &change.Reason, &change.Status, &change.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get deadline change", "error", err, "deadline_change_id", id)
		return nil, err
	}

	return change, nil
}

func (r *deadlineChangeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE service_request_deadline_changes SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.log.Error("Failed to update deadline change status", "error", err, "deadline_change_id", id)
		return err
	}

	return expectOne(tag)
}

func (r *deadlineChangeRepository) ListByServiceRequest(ctx context.Context, serviceRequestID uuid.UUID) ([]*domain.ServiceRequestDeadlineChange, error) {
	query := `
		SELECT id, service_request_id, proposed_by_creator_id, proposed_deadline_utc, reason, status, created_at
		FROM service_request_deadline_changes
		WHERE service_request_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, serviceRequestID)
	if err != nil {
		r.log.Error("Failed to list deadline changes", "error", err, "service_request_id", serviceRequestID)
		return nil, err
	}
	defer rows.Close()

	changes := make([]*domain.ServiceRequestDeadlineChange, 0)
	for rows.Next() {
		change := &domain.ServiceRequestDeadlineChange{}
		if err := rows.Scan(
			&change.ID, &change.ServiceRequestID, &change.ProposedByCreatorID,
			&change.ProposedDeadlineUTC, &change.Reason, &change.Status, &change.CreatedAt,
		); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	return changes, rows.Err()
}
