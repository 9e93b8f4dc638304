package admin

import (
	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/repository"
	"github.com/fulfill-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ShippingProviderRequest 创建/更新物流服务商请求
type ShippingProviderRequest struct {
	Name                  string `json:"name" binding:"required"`
	Code                  string `json:"code" binding:"required"`
	IsActive              *bool  `json:"is_active"`
	TrackingNumberPattern string `json:"tracking_number_pattern"`
	TrackingURLTemplate   string `json:"tracking_url_template"`
	ContactPhone          string `json:"contact_phone"`
	ContactEmail          string `json:"contact_email"`
}

func (r ShippingProviderRequest) toInput() service.ShippingProviderInput {
	return service.ShippingProviderInput{
		Name:                  r.Name,
		Code:                  r.Code,
		IsActive:              r.IsActive,
		TrackingNumberPattern: r.TrackingNumberPattern,
		TrackingURLTemplate:   r.TrackingURLTemplate,
		ContactPhone:          r.ContactPhone,
		ContactEmail:          r.ContactEmail,
	}
}

// CreateShippingProvider 创建物流服务商
func (h *Handler) CreateShippingProvider(c *gin.Context) {
	var req ShippingProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	provider, err := h.ProviderService.CreateProvider(req.toInput())
	if err != nil {
		respondServiceError(c, err, "shipping provider create failed")
		return
	}
	response.Success(c, provider)
}

// UpdateShippingProvider 更新物流服务商
func (h *Handler) UpdateShippingProvider(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid provider id")
		return
	}
	var req ShippingProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	provider, err := h.ProviderService.UpdateProvider(id, req.toInput())
	if err != nil {
		respondServiceError(c, err, "shipping provider update failed")
		return
	}
	response.Success(c, provider)
}

// GetShippingProvider 获取物流服务商
func (h *Handler) GetShippingProvider(c *gin.Context) {
	id, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		response.BadRequest(c, "invalid provider id")
		return
	}
	provider, err := h.ProviderService.GetProvider(id)
	if err != nil {
		respondServiceError(c, err, "shipping provider fetch failed")
		return
	}
	response.Success(c, provider)
}

// ListShippingProviders 分页查询物流服务商
func (h *Handler) ListShippingProviders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	providers, total, err := h.ProviderService.ListProviders(repository.ShippingProviderListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "shipping provider list failed", err)
		return
	}
	response.SuccessWithPage(c, providers, response.NewPagination(page, pageSize, total))
}
