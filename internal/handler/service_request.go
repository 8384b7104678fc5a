package handler

import (
	"net/http"
	"time"

	"creator_chat/internal/service"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ServiceRequestHandler struct {
	serviceRequestService service.ServiceRequestService
	log                   logger.Logger
}

func NewServiceRequestHandler(serviceRequestService service.ServiceRequestService, log logger.Logger) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		serviceRequestService: serviceRequestService,
		log:                   log,
	}
}

type CreateServiceRequestRequest struct {
	Requirements   string   `json:"requirements" binding:"required"`
	ProposedBudget *float64 `json:"proposed_budget"`
	Currency       *string  `json:"currency"`
}

func (h *ServiceRequestHandler) Create(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}

	var req CreateServiceRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	sr, err := h.serviceRequestService.Create(c.Request.Context(), customerID, conversationID, service.CreateServiceRequestInput{
		Requirements:   req.Requirements,
		ProposedBudget: req.ProposedBudget,
		Currency:       req.Currency,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sr)
}

type AcceptServiceRequestRequest struct {
	DeadlineUTC time.Time `json:"deadline_utc" binding:"required"`
}

func (h *ServiceRequestHandler) Accept(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	serviceRequestID, ok := uuidParam(c, "requestId", "service request")
	if !ok {
		return
	}

	var req AcceptServiceRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	sr, err := h.serviceRequestService.Accept(c.Request.Context(), creatorID, conversationID, serviceRequestID, req.DeadlineUTC)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sr)
}

func (h *ServiceRequestHandler) Decline(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	serviceRequestID, ok := uuidParam(c, "requestId", "service request")
	if !ok {
		return
	}

	sr, err := h.serviceRequestService.Decline(c.Request.Context(), creatorID, conversationID, serviceRequestID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sr)
}

func (h *ServiceRequestHandler) Confirm(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	serviceRequestID, ok := uuidParam(c, "requestId", "service request")
	if !ok {
		return
	}

	sr, err := h.serviceRequestService.Confirm(c.Request.Context(), customerID, conversationID, serviceRequestID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sr)
}

type ProposeDeadlineRequest struct {
	DeadlineUTC time.Time `json:"deadline_utc" binding:"required"`
	Reason      *string   `json:"reason"`
}

func (h *ServiceRequestHandler) ProposeDeadline(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	serviceRequestID, ok := uuidParam(c, "requestId", "service request")
	if !ok {
		return
	}

	var req ProposeDeadlineRequest
	if !bindJSON(c, &req) {
		return
	}

	change, err := h.serviceRequestService.ProposeDeadlineChange(c.Request.Context(), creatorID, conversationID, serviceRequestID, req.DeadlineUTC, req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, change)
}

type RespondToDeadlineRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

func (h *ServiceRequestHandler) RespondToDeadline(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	changeID, ok := uuidParam(c, "changeId", "deadline change")
	if !ok {
		return
	}

	var req RespondToDeadlineRequest
	if !bindJSON(c, &req) {
		return
	}

	change, sr, err := h.serviceRequestService.RespondToDeadlineChange(c.Request.Context(), customerID, conversationID, changeID, *req.Accept)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"change":          change,
		"service_request": sr,
	})
}

func (h *ServiceRequestHandler) DeadlineChanges(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return
	}
	serviceRequestID, ok := uuidParam(c, "requestId", "service request")
	if !ok {
		return
	}

	changes, err := h.serviceRequestService.GetDeadlineChanges(c.Request.Context(), userID, conversationID, serviceRequestID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, changes)
}

func (h *ServiceRequestHandler) ListForCreator(c *gin.Context) {
	creatorID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	requests, err := h.serviceRequestService.GetForCreator(c.Request.Context(), creatorID, c.Query("status"), take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (h *ServiceRequestHandler) ListForCustomer(c *gin.Context) {
	customerID, ok := currentUser(c)
	if !ok {
		return
	}
	take, skip := pagination(c)

	requests, err := h.serviceRequestService.GetForCustomer(c.Request.Context(), customerID, c.Query("status"), take, skip)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, requests)
}
