package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creator_chat/internal/realtime"
	"creator_chat/internal/service"
	apperrors "creator_chat/pkg/errors"

	"github.com/google/uuid"
)

// inboundFrame is a client invocation: {"id": ..., "op": ..., "args": {...}}.
type inboundFrame struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

type frameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// resultFrame answers exactly one inboundFrame.
type resultFrame struct {
	Type  string      `json:"type"`
	ID    string      `json:"id"`
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *frameError `json:"error,omitempty"`
}

type opFunc func(ctx context.Context, c *realtime.Client, args json.RawMessage) (interface{}, error)

// operation marks whether the op changes state. Mutations outlive the
// connection that asked for them.
type operation struct {
	run     opFunc
	mutates bool
}

func (h *WebSocketHandler) operations() map[string]operation {
	return map[string]operation{
		"joinConversationGroup":          {run: h.opJoinConversationGroup},
		"typing":                         {run: h.opTyping},
		"markSeen":                       {run: h.opMarkSeen},
		"getOnlineUsers":                 {run: h.opGetOnlineUsers},
		"sendMessage":                    {run: h.opSendMessage, mutates: true},
		"sendAttachmentMessage":          {run: h.opSendAttachmentMessage, mutates: true},
		"createMessageRequest":           {run: h.opCreateMessageRequest, mutates: true},
		"respondToMessageRequest":        {run: h.opRespondToMessageRequest, mutates: true},
		"createServiceRequest":           {run: h.opCreateServiceRequest, mutates: true},
		"acceptServiceRequest":           {run: h.opAcceptServiceRequest, mutates: true},
		"declineServiceRequest":          {run: h.opDeclineServiceRequest, mutates: true},
		"confirmServiceRequest":          {run: h.opConfirmServiceRequest, mutates: true},
		"updateServiceRequestDeadline":   {run: h.opUpdateServiceRequestDeadline, mutates: true},
		"respondToDeadlineChange":        {run: h.opRespondToDeadlineChange, mutates: true},
		"deliverProduct":                 {run: h.opDeliverProduct, mutates: true},
		"createAndDeliverPrivateProduct": {run: h.opCreateAndDeliverPrivateProduct, mutates: true},
		"markDeliveryPurchased":          {run: h.opMarkDeliveryPurchased, mutates: true},
	}
}

func (h *WebSocketHandler) handleFrame(ctx context.Context, c *realtime.Client, frame []byte) {
	var in inboundFrame
	if err := json.Unmarshal(frame, &in); err != nil {
		h.reply(c, "", nil, apperrors.InvalidArgument("malformed frame"))
		return
	}

	op, ok := h.ops[in.Op]
	if !ok {
		h.reply(c, in.ID, nil, apperrors.InvalidArgument(fmt.Sprintf("unknown operation %q", in.Op)))
		return
	}

	if op.mutates {
		ctx = context.WithoutCancel(ctx)
	}
	if h.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opTimeout)
		defer cancel()
	}

	data, err := op.run(ctx, c, in.Args)
	if err != nil && !apperrors.IsDomain(err) {
		h.log.Error("Operation failed", "op", in.Op, "user_id", c.UserID, "client_id", c.ID, "error", err)
	}
	h.reply(c, in.ID, data, err)
}

func (h *WebSocketHandler) reply(c *realtime.Client, id string, data interface{}, err error) {
	res := resultFrame{Type: "result", ID: id, OK: err == nil, Data: data}
	if err != nil {
		res.Data = nil
		res.Error = &frameError{Code: apperrors.Code(err), Message: err.Error()}
	}

	payload, mErr := json.Marshal(res)
	if mErr != nil {
		h.log.Error("Failed to encode reply", "id", id, "error", mErr)
		return
	}
	c.Send(payload)
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return apperrors.InvalidArgument("missing arguments")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.InvalidArgument("invalid arguments: " + err.Error())
	}
	return nil
}

type conversationArgs struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

func (h *WebSocketHandler) opJoinConversationGroup(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args conversationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := h.membership.JoinConversation(ctx, c, args.ConversationID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"conversation_id": args.ConversationID}, nil
}

// requireMember checks group membership of this connection. Only members
// may relay typing and seen markers.
func (h *WebSocketHandler) requireMember(c *realtime.Client, conversationID uuid.UUID) error {
	if !h.hub.IsMember(c, realtime.ConversationGroup(conversationID)) {
		return apperrors.NotFound("conversation not found")
	}
	return nil
}

func (h *WebSocketHandler) opTyping(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args conversationArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := h.requireMember(c, args.ConversationID); err != nil {
		return nil, err
	}
	h.dispatcher.Typing(ctx, args.ConversationID, c.UserID)
	return nil, nil
}

type markSeenArgs struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

func (h *WebSocketHandler) opMarkSeen(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args markSeenArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.MessageID == uuid.Nil {
		return nil, apperrors.InvalidArgument("message_id is required")
	}
	if err := h.requireMember(c, args.ConversationID); err != nil {
		return nil, err
	}
	h.dispatcher.MessageSeen(ctx, args.ConversationID, args.MessageID, c.UserID)
	return nil, nil
}

func (h *WebSocketHandler) opGetOnlineUsers(ctx context.Context, _ *realtime.Client, _ json.RawMessage) (interface{}, error) {
	ids, err := h.presence.OnlineUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

type sendMessageArgs struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Text           string    `json:"text"`
	AttachmentURL  string    `json:"attachment_url"`
	AttachmentType string    `json:"attachment_type"`
}

func (h *WebSocketHandler) opSendMessage(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args sendMessageArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Chat.SendMessage(ctx, c.UserID, args.ConversationID, args.Text)
}

func (h *WebSocketHandler) opSendAttachmentMessage(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args sendMessageArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Chat.SendAttachmentMessage(ctx, c.UserID, args.ConversationID, args.Text, args.AttachmentURL, args.AttachmentType)
}

type createMessageRequestArgs struct {
	CreatorID int64  `json:"creator_id"`
	Text      string `json:"text"`
}

func (h *WebSocketHandler) opCreateMessageRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args createMessageRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Conversation.CreateMessageRequest(ctx, c.UserID, args.CreatorID, args.Text)
}

type respondArgs struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ChangeID       uuid.UUID `json:"change_id"`
	Accept         *bool     `json:"accept"`
}

func (a respondArgs) accept() (bool, error) {
	if a.Accept == nil {
		return false, apperrors.InvalidArgument("accept is required")
	}
	return *a.Accept, nil
}

func (h *WebSocketHandler) opRespondToMessageRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args respondArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	accept, err := args.accept()
	if err != nil {
		return nil, err
	}

	conv, first, err := h.services.Conversation.RespondToMessageRequest(ctx, c.UserID, args.ConversationID, accept)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return map[string]interface{}{"conversation_id": args.ConversationID, "deleted": true}, nil
	}
	return map[string]interface{}{"conversation": conv, "first_message": first}, nil
}

type serviceRequestArgs struct {
	ConversationID   uuid.UUID  `json:"conversation_id"`
	ServiceRequestID uuid.UUID  `json:"service_request_id"`
	Requirements     string     `json:"requirements"`
	ProposedBudget   *float64   `json:"proposed_budget"`
	Currency         *string    `json:"currency"`
	DeadlineUTC      *time.Time `json:"deadline_utc"`
	Reason           *string    `json:"reason"`
}

func (a serviceRequestArgs) deadline() (time.Time, error) {
	if a.DeadlineUTC == nil {
		return time.Time{}, apperrors.InvalidArgument("deadline_utc is required")
	}
	return *a.DeadlineUTC, nil
}

func (h *WebSocketHandler) opCreateServiceRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args serviceRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.ServiceRequest.Create(ctx, c.UserID, args.ConversationID, service.CreateServiceRequestInput{
		Requirements:   args.Requirements,
		ProposedBudget: args.ProposedBudget,
		Currency:       args.Currency,
	})
}

func (h *WebSocketHandler) opAcceptServiceRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args serviceRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	deadline, err := args.deadline()
	if err != nil {
		return nil, err
	}
	return h.services.ServiceRequest.Accept(ctx, c.UserID, args.ConversationID, args.ServiceRequestID, deadline)
}

func (h *WebSocketHandler) opDeclineServiceRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args serviceRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.ServiceRequest.Decline(ctx, c.UserID, args.ConversationID, args.ServiceRequestID)
}

func (h *WebSocketHandler) opConfirmServiceRequest(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args serviceRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.ServiceRequest.Confirm(ctx, c.UserID, args.ConversationID, args.ServiceRequestID)
}

func (h *WebSocketHandler) opUpdateServiceRequestDeadline(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args serviceRequestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	deadline, err := args.deadline()
	if err != nil {
		return nil, err
	}
	return h.services.ServiceRequest.ProposeDeadlineChange(ctx, c.UserID, args.ConversationID, args.ServiceRequestID, deadline, args.Reason)
}

func (h *WebSocketHandler) opRespondToDeadlineChange(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args respondArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	accept, err := args.accept()
	if err != nil {
		return nil, err
	}

	change, sr, err := h.services.ServiceRequest.RespondToDeadlineChange(ctx, c.UserID, args.ConversationID, args.ChangeID, accept)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"change": change, "service_request": sr}, nil
}

type deliveryArgs struct {
	ConversationID   uuid.UUID  `json:"conversation_id"`
	ServiceRequestID *uuid.UUID `json:"service_request_id"`
	DeliveryID       uuid.UUID  `json:"delivery_id"`
	ProductID        int64      `json:"product_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Price            float64    `json:"price"`
}

func (h *WebSocketHandler) opDeliverProduct(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args deliveryArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Delivery.DeliverProduct(ctx, c.UserID, args.ConversationID, service.DeliverProductInput{
		ServiceRequestID: args.ServiceRequestID,
		ProductID:        args.ProductID,
		Price:            args.Price,
	})
}

func (h *WebSocketHandler) opCreateAndDeliverPrivateProduct(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args deliveryArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Delivery.CreateAndDeliverPrivateProduct(ctx, c.UserID, args.ConversationID, service.PrivateProductInput{
		ServiceRequestID: args.ServiceRequestID,
		Title:            args.Title,
		Description:      args.Description,
		Price:            args.Price,
	})
}

func (h *WebSocketHandler) opMarkDeliveryPurchased(ctx context.Context, c *realtime.Client, raw json.RawMessage) (interface{}, error) {
	var args deliveryArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return h.services.Delivery.MarkPurchased(ctx, c.UserID, args.ConversationID, args.DeliveryID)
}
