// Package memory is an in-process implementation of the repository
// interfaces. It backs STORAGE_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"

	"github.com/google/uuid"
)

// Store holds every table behind one mutex. A transaction holds the mutex
// for its whole duration and restores a snapshot when it fails, which gives
// serializable semantics.
type Store struct {
	mu sync.Mutex

	users           map[int64]*domain.User
	conversations   map[uuid.UUID]*domain.Conversation
	messageRequests map[uuid.UUID]*domain.MessageRequest
	messages        map[uuid.UUID]*domain.Message
	serviceRequests map[uuid.UUID]*domain.ServiceRequest
	deadlineChanges map[uuid.UUID]*domain.ServiceRequestDeadlineChange
	deliveries      map[uuid.UUID]*domain.Delivery
	audit           []*domain.AuditLog
	rateLimits      map[string]*window

	now func() time.Time
}

type window struct {
	count   int64
	expires time.Time
}

func NewStore() *Store {
	return &Store{
		users:           make(map[int64]*domain.User),
		conversations:   make(map[uuid.UUID]*domain.Conversation),
		messageRequests: make(map[uuid.UUID]*domain.MessageRequest),
		messages:        make(map[uuid.UUID]*domain.Message),
		serviceRequests: make(map[uuid.UUID]*domain.ServiceRequest),
		deadlineChanges: make(map[uuid.UUID]*domain.ServiceRequestDeadlineChange),
		deliveries:      make(map[uuid.UUID]*domain.Delivery),
		rateLimits:      make(map[string]*window),
		now:             time.Now,
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:             s,
		User:           &userRepo{s},
		Conversation:   &conversationRepo{s},
		MessageRequest: &messageRequestRepo{s},
		Message:        &messageRepo{s},
		ServiceRequest: &serviceRequestRepo{s},
		DeadlineChange: &deadlineChangeRepo{s},
		Delivery:       &deliveryRepo{s},
		Audit:          &auditRepo{s},
		RateLimit:      &rateLimitRepo{s},
	}
}

// PutUser inserts or replaces a user projection.
func (s *Store) PutUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
}

// AuditLogs returns a copy of the audit trail in insertion order.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditLog, 0, len(s.audit))
	for _, l := range s.audit {
		out = append(out, *l)
	}
	return out
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock takes the store mutex unless the caller already holds it through
// WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	conversations   map[uuid.UUID]*domain.Conversation
	messageRequests map[uuid.UUID]*domain.MessageRequest
	messages        map[uuid.UUID]*domain.Message
	serviceRequests map[uuid.UUID]*domain.ServiceRequest
	deadlineChanges map[uuid.UUID]*domain.ServiceRequestDeadlineChange
	deliveries      map[uuid.UUID]*domain.Delivery
	auditLen        int
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		conversations:   cloneMap(s.conversations),
		messageRequests: cloneMap(s.messageRequests),
		messages:        cloneMap(s.messages),
		serviceRequests: cloneMap(s.serviceRequests),
		deadlineChanges: cloneMap(s.deadlineChanges),
		deliveries:      cloneMap(s.deliveries),
		auditLen:        len(s.audit),
	}
}

func (s *Store) restore(snap snapshot) {
	s.conversations = snap.conversations
	s.messageRequests = snap.messageRequests
	s.messages = snap.messages
	s.serviceRequests = snap.serviceRequests
	s.deadlineChanges = snap.deadlineChanges
	s.deliveries = snap.deliveries
	s.audit = s.audit[:snap.auditLen]
}

// cloneMap copies values, not just pointers, so rolled-back mutations of a
// stored entity do not leak.
func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = repository.NormalizePage(limit, offset)
	if offset >= len(items) {
		return make([]T, 0)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// newestFirst sorts by time descending with id as the tie breaker, matching
// the ORDER BY of the SQL repositories.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) uuid.UUID) {
	sort.Slice(items, func(i, j int) bool {
		ti, tj := at(items[i]), at(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return id(items[i]).String() < id(items[j]).String()
	})
}
