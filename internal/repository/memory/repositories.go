package memory

import (
	"context"
	"fmt"
	"time"

	"creator_chat/internal/domain"
	"creator_chat/internal/repository"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

type conversationRepo struct{ s *Store }

func (r *conversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[c.ID]; ok {
		return repository.ErrDuplicate
	}
	if c.IsOpen() && r.s.openByPair(c.CreatorID, c.CustomerID) != nil {
		return repository.ErrDuplicate
	}
	r.s.conversations[c.ID] = clone(c)
	return nil
}

func (s *Store) openByPair(creatorID, customerID int64) *domain.Conversation {
	for _, c := range s.conversations {
		if c.CreatorID == creatorID && c.CustomerID == customerID && c.IsOpen() {
			return c
		}
	}
	return nil
}

func (r *conversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

func (r *conversationRepo) GetOpenByPair(ctx context.Context, creatorID, customerID int64) (*domain.Conversation, error) {
	defer r.s.lock(ctx)()
	c := r.s.openByPair(creatorID, customerID)
	if c == nil {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

func (r *conversationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.conversations[id]
	if !ok || c.Status != from {
		return repository.ErrStateMismatch
	}
	c.Status = to
	return nil
}

func (r *conversationRepo) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.conversations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		t := at
		c.LastMessageAt = &t
	}
	return nil
}

func (r *conversationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.conversations, id)

	for k, v := range r.s.messageRequests {
		if v.ConversationID == id {
			delete(r.s.messageRequests, k)
		}
	}
	for k, v := range r.s.messages {
		if v.ConversationID == id {
			delete(r.s.messages, k)
		}
	}
	for k, v := range r.s.serviceRequests {
		if v.ConversationID == id {
			for ck, cv := range r.s.deadlineChanges {
				if cv.ServiceRequestID == k {
					delete(r.s.deadlineChanges, ck)
				}
			}
			delete(r.s.serviceRequests, k)
		}
	}
	for k, v := range r.s.deliveries {
		if v.ConversationID == id {
			delete(r.s.deliveries, k)
		}
	}
	return nil
}

func (r *conversationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Conversation, error) {
	defer r.s.lock(ctx)()
	var out []*domain.Conversation
	for _, c := range r.s.conversations {
		if c.IsParticipant(userID) && c.Status != domain.ConversationStatusDeclined {
			out = append(out, clone(c))
		}
	}
	newestFirst(out, func(c *domain.Conversation) time.Time {
		if c.LastMessageAt != nil {
			return *c.LastMessageAt
		}
		return c.CreatedAt
	}, func(c *domain.Conversation) uuid.UUID { return c.ID })
	return page(out, limit, offset), nil
}

func (r *conversationRepo) ListOpenIDsForUser(ctx context.Context, userID int64) ([]uuid.UUID, error) {
	defer r.s.lock(ctx)()
	ids := make([]uuid.UUID, 0)
	for _, c := range r.s.conversations {
		if c.IsParticipant(userID) && c.IsOpen() {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

type messageRequestRepo struct{ s *Store }

func (r *messageRequestRepo) Create(ctx context.Context, req *domain.MessageRequest) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[req.ConversationID]; !ok {
		return fmt.Errorf("conversation %s does not exist", req.ConversationID)
	}
	for _, existing := range r.s.messageRequests {
		if existing.ConversationID == req.ConversationID || existing.ID == req.ID {
			return repository.ErrDuplicate
		}
	}
	r.s.messageRequests[req.ID] = clone(req)
	return nil
}

func (r *messageRequestRepo) GetByConversationID(ctx context.Context, conversationID uuid.UUID) (*domain.MessageRequest, error) {
	defer r.s.lock(ctx)()
	for _, req := range r.s.messageRequests {
		if req.ConversationID == conversationID {
			return clone(req), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *messageRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	defer r.s.lock(ctx)()
	req, ok := r.s.messageRequests[id]
	if !ok || req.Status != from {
		return repository.ErrStateMismatch
	}
	req.Status = to
	return nil
}

func (r *messageRequestRepo) ListPendingForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.PendingRequest, error) {
	return r.listPending(ctx, func(c *domain.Conversation) bool { return c.CreatorID == creatorID }, limit, offset)
}

func (r *messageRequestRepo) ListPendingForCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*domain.PendingRequest, error) {
	return r.listPending(ctx, func(c *domain.Conversation) bool { return c.CustomerID == customerID }, limit, offset)
}

func (r *messageRequestRepo) listPending(ctx context.Context, match func(*domain.Conversation) bool, limit, offset int) ([]*domain.PendingRequest, error) {
	defer r.s.lock(ctx)()
	var out []*domain.PendingRequest
	for _, req := range r.s.messageRequests {
		c, ok := r.s.conversations[req.ConversationID]
		if !ok || !match(c) || req.Status != domain.MessageRequestStatusPending || c.Status != domain.ConversationStatusPending {
			continue
		}
		out = append(out, &domain.PendingRequest{Conversation: clone(c), Request: clone(req)})
	}
	newestFirst(out,
		func(p *domain.PendingRequest) time.Time { return p.Request.CreatedAt },
		func(p *domain.PendingRequest) uuid.UUID { return p.Request.ID })
	return page(out, limit, offset), nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(ctx context.Context, m *domain.Message) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[m.ConversationID]; !ok {
		return fmt.Errorf("conversation %s does not exist", m.ConversationID)
	}
	if _, ok := r.s.messages[m.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.messages[m.ID] = clone(m)
	return nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	defer r.s.lock(ctx)()
	var out []*domain.Message
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, clone(m))
		}
	}
	newestFirst(out,
		func(m *domain.Message) time.Time { return m.CreatedAt },
		func(m *domain.Message) uuid.UUID { return m.ID })
	return page(out, limit, offset), nil
}

type serviceRequestRepo struct{ s *Store }

func (r *serviceRequestRepo) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[sr.ConversationID]; !ok {
		return fmt.Errorf("conversation %s does not exist", sr.ConversationID)
	}
	if _, ok := r.s.serviceRequests[sr.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.serviceRequests[sr.ID] = clone(sr)
	return nil
}

func (r *serviceRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequest, error) {
	defer r.s.lock(ctx)()
	sr, ok := r.s.serviceRequests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(sr), nil
}

func (r *serviceRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, deadline *time.Time) error {
	defer r.s.lock(ctx)()
	sr, ok := r.s.serviceRequests[id]
	if !ok || sr.Status != from {
		return repository.ErrStateMismatch
	}
	sr.Status = to
	if deadline != nil {
		d := *deadline
		sr.CreatorDeadlineUTC = &d
	}
	return nil
}

func (r *serviceRequestRepo) UpdateDeadline(ctx context.Context, id uuid.UUID, deadline time.Time) error {
	defer r.s.lock(ctx)()
	sr, ok := r.s.serviceRequests[id]
	if !ok {
		return repository.ErrNotFound
	}
	d := deadline
	sr.CreatorDeadlineUTC = &d
	return nil
}

func (r *serviceRequestRepo) ListForCreator(ctx context.Context, creatorID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	return r.list(ctx, func(c *domain.Conversation) bool { return c.CreatorID == creatorID }, status, limit, offset)
}

func (r *serviceRequestRepo) ListForCustomer(ctx context.Context, customerID int64, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	return r.list(ctx, func(c *domain.Conversation) bool { return c.CustomerID == customerID }, status, limit, offset)
}

func (r *serviceRequestRepo) list(ctx context.Context, match func(*domain.Conversation) bool, status string, limit, offset int) ([]*domain.ServiceRequestView, error) {
	defer r.s.lock(ctx)()
	var out []*domain.ServiceRequestView
	for _, sr := range r.s.serviceRequests {
		c, ok := r.s.conversations[sr.ConversationID]
		if !ok || !match(c) || (status != "" && sr.Status != status) {
			continue
		}
		out = append(out, &domain.ServiceRequestView{ServiceRequest: clone(sr), CreatorID: c.CreatorID, CustomerID: c.CustomerID})
	}
	newestFirst(out,
		func(v *domain.ServiceRequestView) time.Time { return v.ServiceRequest.CreatedAt },
		func(v *domain.ServiceRequestView) uuid.UUID { return v.ServiceRequest.ID })
	return page(out, limit, offset), nil
}

type deadlineChangeRepo struct{ s *Store }

func (r *deadlineChangeRepo) Create(ctx context.Context, change *domain.ServiceRequestDeadlineChange) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.serviceRequests[change.ServiceRequestID]; !ok {
		return fmt.Errorf("service request %s does not exist", change.ServiceRequestID)
	}
	for _, existing := range r.s.deadlineChanges {
		if existing.ID == change.ID {
			return repository.ErrDuplicate
		}
		if change.Status == domain.DeadlineChangeStatusPending &&
			existing.ServiceRequestID == change.ServiceRequestID &&
			existing.Status == domain.DeadlineChangeStatusPending {
			return repository.ErrDuplicate
		}
	}
	r.s.deadlineChanges[change.ID] = clone(change)
	return nil
}

func (r *deadlineChangeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequestDeadlineChange, error) {
	defer r.s.lock(ctx)()
	change, ok := r.s.deadlineChanges[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(change), nil
}

func (r *deadlineChangeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	defer r.s.lock(ctx)()
	change, ok := r.s.deadlineChanges[id]
	if !ok || change.Status != from {
		return repository.ErrStateMismatch
	}
	change.Status = to
	return nil
}

func (r *deadlineChangeRepo) ListByServiceRequest(ctx context.Context, serviceRequestID uuid.UUID) ([]*domain.ServiceRequestDeadlineChange, error) {
	defer r.s.lock(ctx)()
	out := make([]*domain.ServiceRequestDeadlineChange, 0)
	for _, change := range r.s.deadlineChanges {
		if change.ServiceRequestID == serviceRequestID {
			out = append(out, clone(change))
		}
	}
	newestFirst(out,
		func(c *domain.ServiceRequestDeadlineChange) time.Time { return c.CreatedAt },
		func(c *domain.ServiceRequestDeadlineChange) uuid.UUID { return c.ID })
	return out, nil
}

type deliveryRepo struct{ s *Store }

func (r *deliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.conversations[d.ConversationID]; !ok {
		return fmt.Errorf("conversation %s does not exist", d.ConversationID)
	}
	if _, ok := r.s.deliveries[d.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.deliveries[d.ID] = clone(d)
	return nil
}

func (r *deliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	defer r.s.lock(ctx)()
	d, ok := r.s.deliveries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(d), nil
}

func (r *deliveryRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	defer r.s.lock(ctx)()
	d, ok := r.s.deliveries[id]
	if !ok || d.Status != from {
		return repository.ErrStateMismatch
	}
	d.Status = to
	return nil
}

func (r *deliveryRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Delivery, error) {
	defer r.s.lock(ctx)()
	var out []*domain.Delivery
	for _, d := range r.s.deliveries {
		if d.ConversationID == conversationID {
			out = append(out, clone(d))
		}
	}
	sortDeliveries(out)
	return page(out, limit, offset), nil
}

func (r *deliveryRepo) ListPurchasedForCreator(ctx context.Context, creatorID int64, limit, offset int) ([]*domain.Delivery, error) {
	defer r.s.lock(ctx)()
	var out []*domain.Delivery
	for _, d := range r.s.deliveries {
		c, ok := r.s.conversations[d.ConversationID]
		if ok && c.CreatorID == creatorID && d.Status == domain.DeliveryStatusPurchased {
			out = append(out, clone(d))
		}
	}
	sortDeliveries(out)
	return page(out, limit, offset), nil
}

func sortDeliveries(items []*domain.Delivery) {
	newestFirst(items,
		func(d *domain.Delivery) time.Time { return d.CreatedAt },
		func(d *domain.Delivery) uuid.UUID { return d.ID })
}

type auditRepo struct{ s *Store }

func (r *auditRepo) CreateLog(ctx context.Context, log *domain.AuditLog) error {
	defer r.s.lock(ctx)()
	log.ID = int64(len(r.s.audit) + 1)
	r.s.audit = append(r.s.audit, clone(log))
	return nil
}

type rateLimitRepo struct{ s *Store }

func (r *rateLimitRepo) Hit(ctx context.Context, scope, key string, ttl time.Duration) (int64, error) {
	defer r.s.lock(ctx)()
	k := scope + ":" + key
	now := r.s.now()
	w, ok := r.s.rateLimits[k]
	if !ok || !now.Before(w.expires) {
		w = &window{expires: now.Add(ttl)}
		r.s.rateLimits[k] = w
	}
	w.count++
	return w.count, nil
}
