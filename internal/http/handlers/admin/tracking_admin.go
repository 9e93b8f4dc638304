package admin

import (
	"time"

	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddTrackingEventRequest 追加物流事件请求
type AddTrackingEventRequest struct {
	Status            string     `json:"status" binding:"required"`
	Location          string     `json:"location"`
	Description       string     `json:"description"`
	EventTime         *time.Time `json:"event_time"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	RecipientName     string     `json:"recipient_name"`
	ExceptionReason   string     `json:"exception_reason"`
}

// AddTrackingEvent 追加物流事件
func (h *Handler) AddTrackingEvent(c *gin.Context) {
	fulfillmentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	var req AddTrackingEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	event, err := h.TrackingService.AddTrackingEvent(fulfillmentID, service.AddTrackingEventInput{
		Status:            req.Status,
		Location:          req.Location,
		Description:       req.Description,
		EventTime:         req.EventTime,
		EstimatedDelivery: req.EstimatedDelivery,
		RecipientName:     req.RecipientName,
		ExceptionReason:   req.ExceptionReason,
	})
	if err != nil {
		respondServiceError(c, err, "tracking event create failed")
		return
	}
	response.Success(c, event)
}

// ListTrackingEvents 查询某履约单的物流事件
func (h *Handler) ListTrackingEvents(c *gin.Context) {
	fulfillmentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	events, err := h.TrackingService.ListTrackingEvents(fulfillmentID)
	if err != nil {
		respondServiceError(c, err, "tracking event list failed")
		return
	}
	response.Success(c, events)
}
