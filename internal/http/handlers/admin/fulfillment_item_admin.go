package admin

import (
	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListFulfillmentItems 查询某履约单的全部明细
func (h *Handler) ListFulfillmentItems(c *gin.Context) {
	fulfillmentID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid fulfillment id")
		return
	}
	items, err := h.FulfillmentItemService.ListItems(fulfillmentID)
	if err != nil {
		respondServiceError(c, err, "fulfillment item list failed")
		return
	}
	response.Success(c, items)
}

// UpdateItemStatusRequest 更新明细状态请求
type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateFulfillmentItemStatus 更新明细状态
func (h *Handler) UpdateFulfillmentItemStatus(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "item_id")
	if !ok {
		response.BadRequest(c, "invalid item id")
		return
	}
	var req UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	item, err := h.FulfillmentItemService.UpdateItemStatus(itemID, req.Status)
	if err != nil {
		respondServiceError(c, err, "fulfillment item update failed")
		return
	}
	response.Success(c, item)
}

// UpdateFulfilledQuantityRequest 更新已处理数量请求
type UpdateFulfilledQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// UpdateFulfilledQuantity 更新明细的已处理数量
func (h *Handler) UpdateFulfilledQuantity(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "item_id")
	if !ok {
		response.BadRequest(c, "invalid item id")
		return
	}
	var req UpdateFulfilledQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	item, err := h.FulfillmentItemService.UpdateFulfilledQuantity(itemID, *req.Quantity)
	if err != nil {
		respondServiceError(c, err, "fulfillment item update failed")
		return
	}
	response.Success(c, item)
}

// QualityCheckRequest 质检请求
type QualityCheckRequest struct {
	CheckedBy string `json:"checked_by" binding:"required"`
	Notes     string `json:"notes"`
}

// PerformQualityCheck 质检
func (h *Handler) PerformQualityCheck(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "item_id")
	if !ok {
		response.BadRequest(c, "invalid item id")
		return
	}
	var req QualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	item, err := h.FulfillmentItemService.PerformQualityCheck(itemID, req.CheckedBy, req.Notes)
	if err != nil {
		respondServiceError(c, err, "quality check failed")
		return
	}
	response.Success(c, item)
}

// ExceptionQuantityRequest 破损/缺失数量请求
type ExceptionQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// AddDamagedQuantity 记录破损数量
func (h *Handler) AddDamagedQuantity(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "item_id")
	if !ok {
		response.BadRequest(c, "invalid item id")
		return
	}
	var req ExceptionQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	item, err := h.FulfillmentItemService.AddDamagedQuantity(itemID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "damaged quantity record failed")
		return
	}
	response.Success(c, item)
}

// AddMissingQuantity 记录缺失数量
func (h *Handler) AddMissingQuantity(c *gin.Context) {
	itemID, ok := handlershared.ParseUintParam(c, "item_id")
	if !ok {
		response.BadRequest(c, "invalid item id")
		return
	}
	var req ExceptionQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	item, err := h.FulfillmentItemService.AddMissingQuantity(itemID, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "missing quantity record failed")
		return
	}
	response.Success(c, item)
}

// ListNeedsAttention 查询需关注明细
func (h *Handler) ListNeedsAttention(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.FulfillmentItemService.ListNeedsAttention(repository.NeedsAttentionFilter{
		Page:          page,
		PageSize:      pageSize,
		FulfillmentID: handlershared.ParseUintQuery(c, "fulfillment_id"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "needs attention list failed", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}
