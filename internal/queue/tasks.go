package queue

import (
	"encoding/json"

	"github.com/fulfill-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskFulfillmentStatusNotify 履约状态变更通知任务
	TaskFulfillmentStatusNotify = constants.TaskFulfillmentStatusNotify
	// TaskFulfillmentOverdueCheck 预计送达逾期检查任务
	TaskFulfillmentOverdueCheck = constants.TaskFulfillmentOverdueCheck
)

// FulfillmentStatusNotifyPayload 状态变更通知任务载荷
type FulfillmentStatusNotifyPayload struct {
	FulfillmentID uint   `json:"fulfillment_id"`
	Status        string `json:"status"`
}

// FulfillmentOverdueCheckPayload 逾期检查任务载荷
type FulfillmentOverdueCheckPayload struct {
	FulfillmentID uint `json:"fulfillment_id"`
}

// NewFulfillmentStatusNotifyTask 创建状态变更通知任务
func NewFulfillmentStatusNotifyTask(payload FulfillmentStatusNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFulfillmentStatusNotify, body), nil
}

// NewFulfillmentOverdueCheckTask 创建逾期检查任务
func NewFulfillmentOverdueCheckTask(payload FulfillmentOverdueCheckPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFulfillmentOverdueCheck, body), nil
}
