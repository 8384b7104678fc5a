package handler

import (
	"net/http"

	"creator_chat/internal/config"
	"creator_chat/internal/realtime"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	hub         *realtime.Hub
	environment string
	relay       bool
}

func NewHealthHandler(hub *realtime.Hub, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		hub:         hub,
		environment: cfg.Environment,
		relay:       cfg.Redis.Enabled && cfg.Realtime.RelayEnabled,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "creator-chat",
	})
}

// ServerInfo tells clients where to connect and how busy this node is.
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment":        h.environment,
		"api_base":           "/api/v1",
		"ws_path":            "/ws",
		"relay_enabled":      h.relay,
		"active_connections": h.hub.ConnectionCount(),
	})
}
