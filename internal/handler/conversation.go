package handler

import (
	"net/http"

	"creator_chat/internal/service"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	log                 logger.Logger
}

func NewConversationHandler(conversationService service.ConversationService, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		log:                 log,
	}
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	conversations, err := h.conversationService.GetConversationsForUser(c.Request.Context(), userID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversations)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	conversation, err := h.conversationService.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

type CreateMessageRequestRequest struct {
	CreatorID int64  `json:"creator_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
}

func (h *ConversationHandler) CreateMessageRequest(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateMessageRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	pending, err := h.conversationService.CreateMessageRequest(c.Request.Context(), customerID, req.CreatorID, req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, pending)
}

type RespondToMessageRequestRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *ConversationHandler) RespondToMessageRequest(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req RespondToMessageRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	conversation, first, err := h.conversationService.RespondToMessageRequest(c.Request.Context(), creatorID, conversationID, *req.Accept)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if conversation == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation":  conversation,
		"first_message": first,
	})
}

func (h *ConversationHandler) PendingForCreator(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	requests, err := h.conversationService.GetPendingRequestsForCreator(c.Request.Context(), creatorID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (h *ConversationHandler) PendingForCustomer(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	requests, err := h.conversationService.GetPendingRequestsForCustomer(c.Request.Context(), customerID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, requests)
}
