package admin

import (
	"errors"

	handlershared "github.com/fulfill-next/internal/http/handlers/shared"
	"github.com/fulfill-next/internal/http/response"
	"github.com/fulfill-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondServiceError 按错误分类映射业务码：
// 未命中分类的错误统一按内部错误处理并记录原始错误。
func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrOrderItemNotFound),
		errors.Is(err, service.ErrFulfillmentNotFound),
		errors.Is(err, service.ErrFulfillmentItemNotFound),
		errors.Is(err, service.ErrProviderNotFound):
		respondError(c, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrOrderNotFulfillable),
		errors.Is(err, service.ErrQuantityExceedsPending),
		errors.Is(err, service.ErrTrackingNumberRequired),
		errors.Is(err, service.ErrTrackingNumberMissing),
		errors.Is(err, service.ErrStatusTransitionInvalid),
		errors.Is(err, service.ErrFulfillmentNotCancelable),
		errors.Is(err, service.ErrFulfillmentNotDeletable),
		errors.Is(err, service.ErrQualityCheckDone),
		errors.Is(err, service.ErrQuantityOutOfRange):
		respondError(c, response.CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrFulfillmentInvalid),
		errors.Is(err, service.ErrProviderInactive),
		errors.Is(err, service.ErrTrackingNumberInvalid),
		errors.Is(err, service.ErrItemStatusInvalid),
		errors.Is(err, service.ErrTrackingStatusInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
