package admin

import (
	"time"

	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
	"github.com/fulfill-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateFulfillmentRequest 创建履约单请求
type CreateFulfillmentRequest struct {
	OrderID               uint                           `json:"order_id" binding:"required"`
	Items                 []CreateFulfillmentItemRequest `json:"items" binding:"required,min=1,dive"`
	Priority              string                         `json:"priority"`
	PackagingType         string                         `json:"packaging_type"`
	ShippingAddress       models.JSON                    `json:"shipping_address"`
	PickupAddress         models.JSON                    `json:"pickup_address"`
	ShippingProviderID    uint                           `json:"shipping_provider_id"`
	EstimatedDeliveryDate *time.Time                     `json:"estimated_delivery_date"`
	ShippingCost          models.Money                   `json:"shipping_cost"`
	InsuranceCost         models.Money                   `json:"insurance_cost"`
	RequireSignature      bool                           `json:"require_signature"`
	IsGift                bool                           `json:"is_gift"`
	GiftMessage           string                         `json:"gift_message"`
	Notes                 string                         `json:"notes"`
}

// CreateFulfillmentItemRequest 创建履约明细请求
type CreateFulfillmentItemRequest struct {
	OrderItemID  uint       `json:"order_item_id" binding:"required"`
	Quantity     int        `json:"quantity" binding:"required,min=1"`
	BatchNumber  string     `json:"batch_number"`
	SerialNumber string     `json:"serial_number"`
	Location     string     `json:"location"`
	ExpiryDate   *time.Time `json:"expiry_date"`
}

// CreateFulfillment 创建履约单
func (h *Handler) CreateFulfillment(c *gin.Context) {
	var req CreateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	items := make([]service.CreateFulfillmentItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateFulfillmentItemInput{
			OrderItemID:  item.OrderItemID,
			Quantity:     item.Quantity,
			BatchNumber:  item.BatchNumber,
			SerialNumber: item.SerialNumber,
			Location:     item.Location,
			ExpiryDate:   item.ExpiryDate,
		})
	}
	fulfillment, err := h.FulfillmentService.CreateFulfillment(service.CreateFulfillmentInput{
		OrderID:               req.OrderID,
		Items:                 items,
		Priority:              req.Priority,
		PackagingType:         req.PackagingType,
		ShippingAddress:       req.ShippingAddress,
		PickupAddress:         req.PickupAddress,
		ShippingProviderID:    req.ShippingProviderID,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		ShippingCost:          req.ShippingCost,
		InsuranceCost:         req.InsuranceCost,
		RequireSignature:      req.RequireSignature,
		IsGift:                req.IsGift,
		GiftMessage:           req.GiftMessage,
		Notes:                 req.Notes,
	})
	if err != nil {
		respondServiceError(c, err, "fulfillment create failed")
		return
	}
	response.Success(c, fulfillment)
}

// ListFulfillments 分页查询履约单
func (h *Handler) ListFulfillments(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.FulfillmentListFilter{
		Page:               page,
		PageSize:           pageSize,
		OrderID:            handlershared.ParseUintQuery(c, "order_id"),
		Status:             c.Query("status"),
		Priority:           c.Query("priority"),
		ShippingProviderID: handlershared.ParseUintQuery(c, "shipping_provider_id"),
		FulfillmentNo:      c.Query("fulfillment_no"),
		TrackingNumber:     c.Query("tracking_number"),
		OverdueOnly:        c.Query("overdue") == "true",
	}
	fulfillments, total, err := h.FulfillmentService.ListFulfillments(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "fulfillment list failed", err)
		return
	}
	response.SuccessWithPage(c, fulfillments, response.NewPagination(page, pageSize, total))
}

// GetFulfillment 获取履约单详情
func (h *Handler) GetFulfillment(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	fulfillment, err := h.FulfillmentService.GetFulfillment(id)
	if err != nil {
		respondServiceError(c, err, "fulfillment fetch failed")
		return
	}
	response.Success(c, fulfillment)
}

// GetFulfillmentByNumber 根据履约单号获取详情
func (h *Handler) GetFulfillmentByNumber(c *gin.Context) {
	fulfillment, err := h.FulfillmentService.GetFulfillmentByNumber(c.Param("number"))
	if err != nil {
		respondServiceError(c, err, "fulfillment fetch failed")
		return
	}
	response.Success(c, fulfillment)
}

// ListOrderFulfillments 查询某订单的全部履约单
func (h *Handler) ListOrderFulfillments(c *gin.Context) {
	orderID, ok := handlershared.ParseUintParam(c, "order_id")
	if !ok {
		response.BadRequest(c, "invalid order id")
		return
	}
	fulfillments, err := h.FulfillmentService.ListOrderFulfillments(orderID)
	if err != nil {
		respondServiceError(c, err, "fulfillment list failed")
		return
	}
	response.Success(c, fulfillments)
}

// UpdateFulfillmentRequest 更新履约单请求，缺省字段不修改
type UpdateFulfillmentRequest struct {
	Status                *string     `json:"status"`
	Priority              *string     `json:"priority"`
	PackagingType         *string     `json:"packaging_type"`
	ShippingAddress       models.JSON `json:"shipping_address"`
	Notes                 *string     `json:"notes"`
	EstimatedDeliveryDate *time.Time  `json:"estimated_delivery_date"`
	RequireSignature      *bool       `json:"require_signature"`
	IsGift                *bool       `json:"is_gift"`
	GiftMessage           *string     `json:"gift_message"`
}

// UpdateFulfillment 更新履约单
func (h *Handler) UpdateFulfillment(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	var req UpdateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	fulfillment, err := h.FulfillmentService.UpdateFulfillment(id, service.UpdateFulfillmentInput{
		Status:                req.Status,
		Priority:              req.Priority,
		PackagingType:         req.PackagingType,
		ShippingAddress:       req.ShippingAddress,
		Notes:                 req.Notes,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		RequireSignature:      req.RequireSignature,
		IsGift:                req.IsGift,
		GiftMessage:           req.GiftMessage,
	})
	if err != nil {
		respondServiceError(c, err, "fulfillment update failed")
		return
	}
	response.Success(c, fulfillment)
}

// AddTrackingNumberRequest 录入运单号请求
// 省略 shipping_provider_id 时沿用履约单上已有的服务商
type AddTrackingNumberRequest struct {
	ShippingProviderID    uint       `json:"shipping_provider_id"`
	TrackingNumber        string     `json:"tracking_number" binding:"required"`
	EstimatedDeliveryDate *time.Time `json:"estimated_delivery_date"`
}

// AddTrackingNumber 录入运单号并发货
func (h *Handler) AddTrackingNumber(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	var req AddTrackingNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	fulfillment, err := h.FulfillmentService.AddTrackingNumber(id, service.AddTrackingNumberInput{
		ShippingProviderID:    req.ShippingProviderID,
		TrackingNumber:        req.TrackingNumber,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
	})
	if err != nil {
		respondServiceError(c, err, "tracking number assign failed")
		return
	}
	requestLog(c).Infow("fulfillment_tracking_assigned",
		"fulfillment_id", id,
		"tracking_number", req.TrackingNumber,
	)
	response.Success(c, fulfillment)
}

// CancelFulfillmentRequest 取消履约单请求
type CancelFulfillmentRequest struct {
	Reason string `json:"reason"`
}

// CancelFulfillment 取消履约单
func (h *Handler) CancelFulfillment(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	var req CancelFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	fulfillment, err := h.FulfillmentService.CancelFulfillment(id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "fulfillment cancel failed")
		return
	}
	response.Success(c, fulfillment)
}

// DeleteFulfillment 删除履约单
func (h *Handler) DeleteFulfillment(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	if err := h.FulfillmentService.DeleteFulfillment(id); err != nil {
		respondServiceError(c, err, "fulfillment delete failed")
		return
	}
	response.SuccessWithMsg(c, "deleted", nil)
}

// GetFulfillmentStats 履约统计
func (h *Handler) GetFulfillmentStats(c *gin.Context) {
	stats, err := h.FulfillmentService.GetFulfillmentStats()
	if err != nil {
		respondError(c, response.CodeInternal, "fulfillment stats failed", err)
		return
	}
	response.Success(c, stats)
}
