package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
	OrderStatusRefunded   = "refunded"
)

// 订单支付状态常量
const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// 履约单状态常量
const (
	FulfillmentStatusPending        = "pending"
	FulfillmentStatusProcessing     = "processing"
	FulfillmentStatusPacked         = "packed"
	FulfillmentStatusShipped        = "shipped"
	FulfillmentStatusInTransit      = "in_transit"
	FulfillmentStatusOutForDelivery = "out_for_delivery"
	FulfillmentStatusDelivered      = "delivered"
	FulfillmentStatusCanceled       = "canceled"
	FulfillmentStatusReturned       = "returned"
	FulfillmentStatusFailed         = "failed"
)

// 履约明细状态常量
const (
	FulfillmentItemStatusPending   = "pending"
	FulfillmentItemStatusPicked    = "picked"
	FulfillmentItemStatusPacked    = "packed"
	FulfillmentItemStatusShipped   = "shipped"
	FulfillmentItemStatusDelivered = "delivered"
	FulfillmentItemStatusReturned  = "returned"
	FulfillmentItemStatusDamaged   = "damaged"
	FulfillmentItemStatusMissing   = "missing"
	FulfillmentItemStatusCanceled  = "canceled"
)

// 物流事件状态常量
const (
	TrackingStatusLabelCreated   = "label_created"
	TrackingStatusPickedUp       = "picked_up"
	TrackingStatusInTransit      = "in_transit"
	TrackingStatusOutForDelivery = "out_for_delivery"
	TrackingStatusDelivered      = "delivered"
	TrackingStatusFailedAttempt  = "failed_attempt"
	TrackingStatusException      = "exception"
	TrackingStatusLost           = "lost"
	TrackingStatusReturned       = "returned"
)

// 履约优先级常量
const (
	FulfillmentPriorityLow    = "low"
	FulfillmentPriorityNormal = "normal"
	FulfillmentPriorityHigh   = "high"
	FulfillmentPriorityUrgent = "urgent"
)

// 包装类型常量
const (
	PackagingTypeBox      = "box"
	PackagingTypeEnvelope = "envelope"
	PackagingTypePallet   = "pallet"
	PackagingTypeTube     = "tube"
	PackagingTypeCustom   = "custom"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskFulfillmentStatusNotify = "fulfillment:status_notify"
	TaskFulfillmentOverdueCheck = "fulfillment:overdue_check"
)

// 履约单号前缀（FUL{YYYY}{MM}{NNNN}）
const FulfillmentNoPrefix = "FUL"

// 临期预警窗口（天）：明细的效期在该窗口内视为需要关注
const ExpiryAttentionDays = 30
