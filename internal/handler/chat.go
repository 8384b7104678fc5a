package handler

import (
	"net/http"

	"creator_chat/internal/service"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	take, skip := pagination(c)

	messages, err := h.chatService.GetMessages(c.Request.Context(), userID, conversationID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), userID, conversationID, req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// SendAttachmentRequest references a file already uploaded elsewhere.
type SendAttachmentRequest struct {
	Text           string `json:"text"`
	AttachmentURL  string `json:"attachment_url" binding:"required"`
	AttachmentType string `json:"attachment_type" binding:"required"`
}

func (h *ChatHandler) SendAttachment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req SendAttachmentRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendAttachmentMessage(c.Request.Context(), userID, conversationID, req.Text, req.AttachmentURL, req.AttachmentType)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
