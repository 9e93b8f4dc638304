package service

import "errors"

// NotFound 类错误：直接透传给调用方，不重试
var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderItemNotFound       = errors.New("order item not found")
	ErrFulfillmentNotFound     = errors.New("fulfillment not found")
	ErrFulfillmentItemNotFound = errors.New("fulfillment item not found")
	ErrProviderNotFound        = errors.New("shipping provider not found")
)

// Conflict 类错误：业务状态冲突，调用方不应重试
var (
	ErrOrderNotFulfillable      = errors.New("order not fulfillable")
	ErrQuantityExceedsPending   = errors.New("requested quantity exceeds pending quantity")
	ErrTrackingNumberRequired   = errors.New("tracking number required before shipping")
	ErrTrackingNumberMissing    = errors.New("fulfillment has no tracking number")
	ErrStatusTransitionInvalid  = errors.New("fulfillment status transition not allowed")
	ErrFulfillmentNotCancelable = errors.New("fulfillment not cancelable in current status")
	ErrFulfillmentNotDeletable  = errors.New("only pending fulfillment can be deleted")
	ErrQualityCheckDone         = errors.New("quality check already performed")
	ErrQuantityOutOfRange       = errors.New("quantity out of allowed range")
)

// Validation 类错误：在任何写入发生之前返回
var (
	ErrFulfillmentInvalid    = errors.New("invalid fulfillment input")
	ErrProviderInactive      = errors.New("shipping provider inactive")
	ErrTrackingNumberInvalid = errors.New("tracking number format invalid")
	ErrItemStatusInvalid     = errors.New("unknown fulfillment item status")
	ErrTrackingStatusInvalid = errors.New("unknown tracking status")
)

// Internal 类错误：持久化失败等，向调用方表现为通用失败
var (
	ErrOrderFetchFailed          = errors.New("order fetch failed")
	ErrOrderUpdateFailed         = errors.New("order update failed")
	ErrFulfillmentCreateFailed   = errors.New("fulfillment create failed")
	ErrFulfillmentUpdateFailed   = errors.New("fulfillment update failed")
	ErrFulfillmentDeleteFailed   = errors.New("fulfillment delete failed")
	ErrTrackingEventCreateFailed = errors.New("tracking event create failed")
)
