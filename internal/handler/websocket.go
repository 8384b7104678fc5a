package handler

import (
	"context"
	"net/http"
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/presence"
	"creator_chat/internal/realtime"
	"creator_chat/internal/service"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated requests into realtime clients
// and serves the invocation protocol over them.
type WebSocketHandler struct {
	services       *service.Services
	hub            *realtime.Hub
	membership     *realtime.Membership
	dispatcher     *realtime.Dispatcher
	presence       presence.Tracker
	clientCfg      realtime.ClientConfig
	opTimeout      time.Duration
	allowedOrigins []string
	upgrader       websocket.Upgrader
	ops            map[string]operation
	log            logger.Logger
}

func NewWebSocketHandler(services *service.Services, rt Realtime, cfg config.RealtimeConfig, log logger.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		services:   services,
		hub:        rt.Hub,
		membership: rt.Membership,
		dispatcher: rt.Dispatcher,
		presence:   rt.Presence,
		clientCfg: realtime.ClientConfig{
			WriteWait:      cfg.WriteWait,
			PongWait:       cfg.PongWait,
			MaxMessageSize: cfg.MaxMessageSize,
			SendBufferSize: cfg.SendBufferSize,
		},
		opTimeout:      cfg.OperationTimeout,
		allowedOrigins: cfg.AllowedOrigins,
		log:            log.With("component", "ws_gateway"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	h.ops = h.operations()
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Connect handles GET /ws. The connection joins its personal group and
// every open conversation before the first frame is read.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	// The request context ends when this handler returns.
	ctx := context.WithoutCancel(c.Request.Context())

	client := realtime.NewClient(h.hub, conn, userID, h.clientCfg)
	h.hub.Register(client)

	if err := h.membership.Restore(ctx, client); err != nil {
		h.log.Error("Failed to restore conversation groups", "user_id", userID, "error", err)
	}
	h.connectPresence(ctx, userID)

	go client.WritePump()
	go client.ReadPump(ctx, h.handleFrame, func() {
		h.disconnectPresence(ctx, userID)
	})

	h.log.Debug("Client connected", "user_id", userID, "client_id", client.ID)
}

func (h *WebSocketHandler) connectPresence(ctx context.Context, userID int64) {
	online, err := h.presence.Connect(ctx, userID)
	if err != nil {
		h.log.Error("Failed to record connection", "user_id", userID, "error", err)
		return
	}
	if online {
		h.dispatcher.PresenceChanged(ctx, userID, true)
	}
}

func (h *WebSocketHandler) disconnectPresence(ctx context.Context, userID int64) {
	offline, err := h.presence.Disconnect(ctx, userID)
	if err != nil {
		h.log.Error("Failed to record disconnection", "user_id", userID, "error", err)
		return
	}
	if offline {
		h.dispatcher.PresenceChanged(ctx, userID, false)
	}
}
