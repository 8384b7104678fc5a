package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientConfig holds the per-connection transport limits.
type ClientConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 * 1024
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	return c
}

// FrameHandler processes one inbound frame. It runs in its own goroutine.
type FrameHandler func(ctx context.Context, c *Client, frame []byte)

// Client is a single WebSocket connection of an authenticated user.
type Client struct {
	ID     uuid.UUID
	UserID int64

	hub  *Hub
	conn *websocket.Conn
	cfg  ClientConfig

	mu     sync.Mutex
	send   chan []byte
	closed bool

	// groups is guarded by hub.mu.
	groups map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBufferSize),
		groups: make(map[string]struct{}),
	}
}

// Send queues a frame without blocking. A full buffer means the peer is not
// keeping up: the connection is closed and false is returned.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		droppedSends.Inc()
		c.closed = true
		close(c.send)
		return false
	}
}

// Close stops the write pump, which in turn closes the socket.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails and hands each one to
// handle. ctx is cancelled once the connection is gone, so handlers that
// only read can stop early. onClose runs after the client left the hub.
func (c *Client) ReadPump(ctx context.Context, handle FrameHandler, onClose func()) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.hub.Unregister(c)
		c.Close()
		c.conn.Close()
		if onClose != nil {
			onClose()
		}
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)) //nolint:errcheck
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("WebSocket closed unexpectedly", "user_id", c.UserID, "client_id", c.ID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		go handle(ctx, c, data)
	}
}

// WritePump drains the send buffer to the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
