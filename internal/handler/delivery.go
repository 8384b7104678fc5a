package handler

import (
	"net/http"

	"creator_chat/internal/service"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DeliveryHandler struct {
	deliveryService service.DeliveryService
	log             logger.Logger
}

func NewDeliveryHandler(deliveryService service.DeliveryService, log logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryService: deliveryService,
		log:             log,
	}
}

type DeliverProductRequest struct {
	ServiceRequestID *uuid.UUID `json:"service_request_id"`
	ProductID        int64      `json:"product_id" binding:"required"`
	Price            float64    `json:"price" binding:"required"`
}

func (h *DeliveryHandler) Deliver(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req DeliverProductRequest
	if !bindJSON(c, &req) {
		return
	}

	delivery, err := h.deliveryService.DeliverProduct(c.Request.Context(), creatorID, conversationID, service.DeliverProductInput{
		ServiceRequestID: req.ServiceRequestID,
		ProductID:        req.ProductID,
		Price:            req.Price,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, delivery)
}

type DeliverPrivateProductRequest struct {
	ServiceRequestID *uuid.UUID `json:"service_request_id"`
	Title            string     `json:"title" binding:"required"`
	Description      string     `json:"description"`
	Price            float64    `json:"price" binding:"required"`
}

func (h *DeliveryHandler) DeliverPrivate(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req DeliverPrivateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	delivery, err := h.deliveryService.CreateAndDeliverPrivateProduct(c.Request.Context(), creatorID, conversationID, service.PrivateProductInput{
		ServiceRequestID: req.ServiceRequestID,
		Title:            req.Title,
		Description:      req.Description,
		Price:            req.Price,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, delivery)
}

func (h *DeliveryHandler) MarkPurchased(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	deliveryID, ok := uuidParam(c, "deliveryId", "delivery")
	if !ok {
		return
	}

	delivery, err := h.deliveryService.MarkPurchased(c.Request.Context(), customerID, conversationID, deliveryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, delivery)
}

func (h *DeliveryHandler) Cancel(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	deliveryID, ok := uuidParam(c, "deliveryId", "delivery")
	if !ok {
		return
	}

	delivery, err := h.deliveryService.Cancel(c.Request.Context(), creatorID, conversationID, deliveryID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, delivery)
}

func (h *DeliveryHandler) ListForConversation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	take, skip := pagination(c)

	deliveries, err := h.deliveryService.GetForConversation(c.Request.Context(), userID, conversationID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deliveries)
}

func (h *DeliveryHandler) CompletedForCreator(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	deliveries, err := h.deliveryService.GetCompletedForCreator(c.Request.Context(), creatorID, take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, deliveries)
}
