package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fulfill-next/internal/cache"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/provider"
	"github.com/fulfill-next/internal/queue"
	"github.com/fulfill-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskFulfillmentStatusNotify, c.handleFulfillmentStatusNotify)
	mux.HandleFunc(queue.TaskFulfillmentOverdueCheck, c.handleFulfillmentOverdueCheck)
}

// handleFulfillmentStatusNotify 处理履约状态变更通知
// 通过 Redis 频道对外广播，下游（站内信、webhook 网关）自行订阅。
func (c *Consumer) handleFulfillmentStatusNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_status_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.FulfillmentStatusNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_status_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.FulfillmentID == 0 {
		logger.Debugw("worker_status_notify_skip_invalid_payload", "fulfillment_id", payload.FulfillmentID)
		return nil
	}
	fulfillment, err := c.FulfillmentRepo.GetByID(payload.FulfillmentID)
	if err != nil {
		logger.Warnw("worker_status_notify_fetch_failed", "fulfillment_id", payload.FulfillmentID, "error", err)
		return err
	}
	if fulfillment == nil {
		logger.Debugw("worker_status_notify_skip_not_found", "fulfillment_id", payload.FulfillmentID)
		return nil
	}

	event := map[string]interface{}{
		"fulfillment_id":  fulfillment.ID,
		"fulfillment_no":  fulfillment.FulfillmentNo,
		"order_id":        fulfillment.OrderID,
		"status":          payload.Status,
		"tracking_number": fulfillment.TrackingNumber,
		"occurred_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if err := cache.PublishJSON(ctx, "events:fulfillment_status", event); err != nil {
		logger.Warnw("worker_status_notify_publish_failed",
			"fulfillment_id", fulfillment.ID,
			"status", payload.Status,
			"error", err,
		)
		return err
	}
	logger.Infow("worker_status_notify_published",
		"fulfillment_id", fulfillment.ID,
		"fulfillment_no", fulfillment.FulfillmentNo,
		"status", payload.Status,
	)
	return nil
}

// handleFulfillmentOverdueCheck 处理预计送达逾期检查
// 任务在预计送达时间后触发；仍未送达的履约单记录逾期告警并广播。
func (c *Consumer) handleFulfillmentOverdueCheck(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_overdue_check_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.FulfillmentOverdueCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_overdue_check_unmarshal_failed", "error", err)
		return err
	}
	if payload.FulfillmentID == 0 {
		logger.Debugw("worker_overdue_check_skip_invalid_payload", "fulfillment_id", payload.FulfillmentID)
		return nil
	}
	fulfillment, err := c.FulfillmentRepo.GetByID(payload.FulfillmentID)
	if err != nil {
		logger.Warnw("worker_overdue_check_fetch_failed", "fulfillment_id", payload.FulfillmentID, "error", err)
		return err
	}
	if fulfillment == nil {
		logger.Debugw("worker_overdue_check_skip_not_found", "fulfillment_id", payload.FulfillmentID)
		return nil
	}

	now := time.Now()
	if !service.IsFulfillmentOverdue(fulfillment, now) {
		logger.Debugw("worker_overdue_check_skip_not_overdue",
			"fulfillment_id", fulfillment.ID,
			"status", fulfillment.Status,
		)
		return nil
	}

	logger.Warnw("fulfillment_overdue",
		"fulfillment_id", fulfillment.ID,
		"fulfillment_no", fulfillment.FulfillmentNo,
		"status", fulfillment.Status,
		"estimated_delivery_date", fulfillment.EstimatedDeliveryDate,
	)
	event := map[string]interface{}{
		"fulfillment_id":          fulfillment.ID,
		"fulfillment_no":          fulfillment.FulfillmentNo,
		"order_id":                fulfillment.OrderID,
		"status":                  fulfillment.Status,
		"estimated_delivery_date": fulfillment.EstimatedDeliveryDate,
		"occurred_at":             now.UTC().Format(time.RFC3339),
	}
	if err := cache.PublishJSON(ctx, "events:fulfillment_overdue", event); err != nil {
		logger.Warnw("worker_overdue_check_publish_failed",
			"fulfillment_id", fulfillment.ID,
			"error", err,
		)
	}
	return nil
}
