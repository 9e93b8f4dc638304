package public

import (
	"errors"
	"strings"

	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/service"

	"github.com/gin-gonic/gin"
)

// QueryTracking 公开运单查询
// 仅返回物流维度的信息，不暴露订单与收货人地址。
func (h *Handler) QueryTracking(c *gin.Context) {
	trackingNumber := strings.TrimSpace(c.Param("tracking_number"))
	if trackingNumber == "" {
		response.BadRequest(c, "tracking number required")
		return
	}
	info, err := h.TrackingService.QueryByTrackingNumber(trackingNumber)
	if err != nil {
		if errors.Is(err, service.ErrFulfillmentNotFound) {
			response.NotFound(c, "tracking number not found")
			return
		}
		handlershared.RespondError(c, response.CodeInternal, "tracking query failed", err)
		return
	}
	response.Success(c, info)
}
