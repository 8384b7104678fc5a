package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"creator_chat/internal/domain"
	"creator_chat/pkg/logger"

	"github.com/google/uuid"
)

// broadcastAll addresses every connection on every node.
const broadcastAll = "*"

func UserGroup(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func ConversationGroup(conversationID uuid.UUID) string {
	return "conversation:" + conversationID.String()
}

// Hub keeps the group membership of this node's connections. Groups are
// plain sets: joining twice is a no-op, and an empty group is forgotten.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	users   map[int64]map[*Client]struct{}
	groups  map[string]map[*Client]struct{}

	relay *Relay
	log   logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		users:   make(map[int64]map[*Client]struct{}),
		groups:  make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

// Register adds the connection and joins its personal group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = struct{}{}
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
	h.joinLocked(c, UserGroup(c.UserID))
	activeConnections.Inc()
}

// Unregister removes the connection from every group it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if conns := h.users[c.UserID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.UserID)
		}
	}
	for group := range c.groups {
		h.leaveLocked(c, group)
	}
	activeConnections.Dec()
}

// Join adds a registered connection to a group. It reports whether the
// connection was not already a member.
func (h *Hub) Join(c *Client, group string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	return h.joinLocked(c, group)
}

func (h *Hub) joinLocked(c *Client, group string) bool {
	if _, ok := c.groups[group]; ok {
		return false
	}
	members := h.groups[group]
	if members == nil {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
	return true
}

func (h *Hub) leaveLocked(c *Client, group string) {
	delete(c.groups, group)
	if members := h.groups[group]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// JoinUsers adds every live connection of the given users to group, on this
// node and, through the relay, on the others.
func (h *Hub) JoinUsers(ctx context.Context, group string, userIDs ...int64) {
	h.joinUsersLocal(group, userIDs)
	if h.relay != nil {
		h.relay.publish(ctx, envelope{Kind: kindJoin, Groups: []string{group}, UserIDs: userIDs})
	}
}

func (h *Hub) joinUsersLocal(group string, userIDs []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range userIDs {
		for c := range h.users[id] {
			h.joinLocked(c, group)
		}
	}
}

// Dissolve empties a group everywhere. Connections stay open.
func (h *Hub) Dissolve(ctx context.Context, group string) {
	h.dissolveLocal(group)
	if h.relay != nil {
		h.relay.publish(ctx, envelope{Kind: kindDissolve, Groups: []string{group}})
	}
}

func (h *Hub) dissolveLocal(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.groups[group] {
		delete(c.groups, group)
	}
	delete(h.groups, group)
}

// Publish sends ev once to every connection that belongs to at least one of
// groups. Delivery is best effort: slow connections are dropped.
func (h *Hub) Publish(ctx context.Context, ev domain.Event, groups ...string) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("Failed to marshal event", "type", ev.Type, "error", err)
		return
	}
	eventsPublished.WithLabelValues(string(ev.Type)).Inc()

	h.deliver(groups, data)
	if h.relay != nil {
		h.relay.publish(ctx, envelope{Kind: kindEvent, Groups: groups, Data: data})
	}
}

// PublishAll sends ev to every connection.
func (h *Hub) PublishAll(ctx context.Context, ev domain.Event) {
	h.Publish(ctx, ev, broadcastAll)
}

func (h *Hub) deliver(groups []string, data []byte) {
	h.mu.RLock()
	targets := make(map[*Client]struct{})
	for _, group := range groups {
		if group == broadcastAll {
			for c := range h.clients {
				targets[c] = struct{}{}
			}
			break
		}
		for c := range h.groups[group] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()

	for c := range targets {
		if !c.Send(data) {
			h.log.Warn("Dropped realtime frame", "user_id", c.UserID, "client_id", c.ID)
		}
	}
}

func (h *Hub) IsMember(c *Client, group string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.groups[group][c]
	return ok
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[group])
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
