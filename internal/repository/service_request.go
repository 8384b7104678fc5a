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

type ServiceRequestRepository interface {
	Create(ctx context.Context, request *domain.ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequest, error)
	// UpdateStatus moves the request from one status to another. When
	// deadline is non-nil it is stored in the same statement.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, deadline *time.Time) error
	UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error
	ListForCreator(ctx context.Context, creatorID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error)
	ListForCustomer(ctx context.Context, customerID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error)
}

type serviceRequestRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewServiceRequestRepository(db *pgxpool.Pool, log logger.Logger) ServiceRequestRepository {
	return &serviceRequestRepository{db: db, log: log}
}

const serviceRequestColumns = `sr.id, sr.conversation_id, sr.requested_by_customer_id, sr.requirements,
	sr.proposed_budget, sr.currency, sr.status, sr.creator_deadline_utc, sr.created_at`

func scanServiceRequest(row pgx.Row, extra ...any) (*domain.ServiceRequest, error) {
	sr := &domain.ServiceRequest{}
	dest := []any{
		&sr.ID, &sr.ConversationID, &sr.RequestedByCustomerID, &sr.Requirements,
		&sr.ProposedBudget, &sr.Currency, &sr.Status, &sr.CreatorDeadlineUTC, &sr.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return sr, nil
}

func (r *serviceRequestRepository) Create(ctx context.Context, request *domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (id, conversation_id, requested_by_customer_id, requirements,
		                              proposed_budget, currency, status, creator_deadline_utc, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		request.ID, request.ConversationID, request.RequestedByCustomerID, request.Requirements,
		request.ProposedBudget, request.Currency, request.Status, request.CreatorDeadlineUTC, request.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create service request", "error", err, "conversation_id", request.ConversationID)
		return err
	}

	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests sr WHERE sr.id = $1`

	sr, err := scanServiceRequest(conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get service request", "error", err, "service_request_id", id)
		return nil, err
	}

	return sr, nil
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, deadline *time.Time) error {
	query := `
		UPDATE service_requests
		SET status = $3, creator_deadline_utc = COALESCE($4, creator_deadline_utc)
		WHERE id = $1 AND status = $2
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id, from, to, deadline)
	if err != nil {
		r.log.Error("Failed to update service request status", "error", err, "service_request_id", id)
		return err
	}

	return expectOne(tag)
}

func (r *serviceRequestRepository) UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE service_requests SET creator_deadline_utc = $2 WHERE id = $1`, id, deadline)
	if err != nil {
		r.log.Error("Failed to update service request deadline", "error", err, "service_request_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *serviceRequestRepository) ListForCreator(ctx context.Context, creatorID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	return r.list(ctx, "c.creator_id", creatorID, status, limit, offset)
}

func (r *serviceRequestRepository) ListForCustomer(ctx context.Context, customerID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	return r.list(ctx, "c.customer_id", customerID, status, limit, offset)
}

// list filters by status only when status is non-empty.
func (r *serviceRequestRepository) list(ctx context.Context, column string, userID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	query := `
		SELECT ` + serviceRequestColumns + `, c.creator_id, c.customer_id
		FROM service_requests sr
		JOIN conversations c ON c.id = sr.conversation_id
		WHERE ` + column + ` = $1 AND ($2 = '' OR sr.status = $2)
		ORDER BY sr.created_at DESC, sr.id
		LIMIT $3 OFFSET $4
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list service requests", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	views := make([]*domain.ServiceRequestView, 0)
	for rows.Next() {
		view := &domain.ServiceRequestView{}
		sr, err := scanServiceRequest(rows, &view.CreatorID, &view.CustomerID)
		if err != nil {
			r.log.Error("Failed to scan service request", "error", err)
			return nil, err
		}
		view.ServiceRequest = sr
		views = append(views, view)
	}

	return views, rows.Err()
}
