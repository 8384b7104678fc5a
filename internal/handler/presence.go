package handler

import (
	"net/http"

	"creator_chat/internal/presence"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	tracker presence.Tracker
	log     logger.Logger
}

func NewPresenceHandler(tracker presence.Tracker, log logger.Logger) *PresenceHandler {
	return &PresenceHandler{
		tracker: tracker,
		log:     log,
	}
}

func (h *PresenceHandler) Online(c *gin.Context) {
	ids, err := h.tracker.OnlineUserIDs(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}
