package realtime

import (
	"context"
	"encoding/json"
	"time"

	"creator_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

const (
	kindEvent    = "event"
	kindJoin     = "join"
	kindDissolve = "dissolve"
)

// envelope is what nodes exchange over Redis. Data is the already encoded
// event frame, so a relayed event is byte-identical to the local one.
type envelope struct {
	Origin  string          `json:"origin"`
	Kind    string          `json:"kind"`
	Groups  []string        `json:"groups"`
	UserIDs []int64         `json:"user_ids,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Relay mirrors hub operations between gateway nodes over a Redis pub/sub
// channel. Every node applies what the others publish to its own
// connections; its own messages are ignored on the way back.
type Relay struct {
	client  *redis.Client
	channel string
	nodeID  string
	hub     *Hub
	log     logger.Logger
}

// NewRelay attaches a relay to hub. Call Run to start receiving.
func NewRelay(client *redis.Client, channel string, hub *Hub, log logger.Logger) *Relay {
	nodeID := uuid.NewString()
	r := &Relay{
		client:  client,
		channel: channel,
		nodeID:  nodeID,
		hub:     hub,
		log:     log.With("relay_node", nodeID),
	}
	hub.relay = r
	return r
}

func (r *Relay) publish(ctx context.Context, env envelope) {
	env.Origin = r.nodeID
	data, err := json.Marshal(env)
	if err != nil {
		r.log.Error("Failed to encode relay message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.log.Error("Failed to publish relay message", "kind", env.Kind, "error", err)
		return
	}
	relayMessages.WithLabelValues("out").Inc()
}

// Run consumes messages from other nodes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.log.Info("Realtime relay subscribed", "channel", r.channel)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.apply([]byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) apply(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn("Ignoring malformed relay message", "error", err)
		return
	}
	if env.Origin == r.nodeID {
		return
	}
	relayMessages.WithLabelValues("in").Inc()

	switch env.Kind {
	case kindEvent:
		r.hub.deliver(env.Groups, env.Data)
	case kindJoin:
		for _, group := range env.Groups {
			r.hub.joinUsersLocal(group, env.UserIDs)
		}
	case kindDissolve:
		for _, group := range env.Groups {
			r.hub.dissolveLocal(group)
		}
	default:
		r.log.Warn("Unknown relay message kind", "kind", env.Kind)
	}
}
