package service

import (
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
)

// allowedFulfillmentTransitions 履约单状态迁移表
// 终态（delivered/canceled/returned/failed）没有出边。
// 发货前各状态均可直达 shipped，录入运单号即视为发货。
var allowedFulfillmentTransitions = map[string]map[string]bool{
	constants.FulfillmentStatusPending: {
		constants.FulfillmentStatusProcessing: true,
		constants.FulfillmentStatusPacked:     true,
		constants.FulfillmentStatusShipped:    true,
		constants.FulfillmentStatusCanceled:   true,
	},
	constants.FulfillmentStatusProcessing: {
		constants.FulfillmentStatusPacked:   true,
		constants.FulfillmentStatusShipped:  true,
		constants.FulfillmentStatusCanceled: true,
	},
	constants.FulfillmentStatusPacked: {
		constants.FulfillmentStatusShipped:  true,
		constants.FulfillmentStatusCanceled: true,
	},
	constants.FulfillmentStatusShipped: {
		constants.FulfillmentStatusInTransit:      true,
		constants.FulfillmentStatusOutForDelivery: true,
		constants.FulfillmentStatusDelivered:      true,
		constants.FulfillmentStatusReturned:       true,
		constants.FulfillmentStatusFailed:         true,
	},
	constants.FulfillmentStatusInTransit: {
		constants.FulfillmentStatusOutForDelivery: true,
		constants.FulfillmentStatusDelivered:      true,
		constants.FulfillmentStatusReturned:       true,
		constants.FulfillmentStatusFailed:         true,
	},
	constants.FulfillmentStatusOutForDelivery: {
		constants.FulfillmentStatusDelivered: true,
		constants.FulfillmentStatusReturned:  true,
		constants.FulfillmentStatusFailed:    true,
	},
}

// canTransitFulfillment 判断履约单状态迁移是否合法
func canTransitFulfillment(from, to string) bool {
	if from == to {
		return true
	}
	nexts, ok := allowedFulfillmentTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// cancelableFulfillmentStatuses 允许取消的状态集合
var cancelableFulfillmentStatuses = map[string]bool{
	constants.FulfillmentStatusPending:    true,
	constants.FulfillmentStatusProcessing: true,
	constants.FulfillmentStatusPacked:     true,
}

// terminalFulfillmentStatuses 终态集合
var terminalFulfillmentStatuses = map[string]bool{
	constants.FulfillmentStatusDelivered: true,
	constants.FulfillmentStatusCanceled:  true,
	constants.FulfillmentStatusReturned:  true,
	constants.FulfillmentStatusFailed:    true,
}

// itemStatusRank 明细主线状态序：pending < picked < packed < shipped < delivered
// 旁路状态（returned/damaged/missing/canceled）不在主线上，返回 -1。
var itemStatusRank = map[string]int{
	constants.FulfillmentItemStatusPending:   0,
	constants.FulfillmentItemStatusPicked:    1,
	constants.FulfillmentItemStatusPacked:    2,
	constants.FulfillmentItemStatusShipped:   3,
	constants.FulfillmentItemStatusDelivered: 4,
}

func rankOfItemStatus(status string) int {
	rank, ok := itemStatusRank[status]
	if !ok {
		return -1
	}
	return rank
}

// terminalItemStatuses 明细终态集合
var terminalItemStatuses = map[string]bool{
	constants.FulfillmentItemStatusDelivered: true,
	constants.FulfillmentItemStatusReturned:  true,
	constants.FulfillmentItemStatusCanceled:  true,
}

// knownItemStatuses 全部合法明细状态
var knownItemStatuses = map[string]bool{
	constants.FulfillmentItemStatusPending:   true,
	constants.FulfillmentItemStatusPicked:    true,
	constants.FulfillmentItemStatusPacked:    true,
	constants.FulfillmentItemStatusShipped:   true,
	constants.FulfillmentItemStatusDelivered: true,
	constants.FulfillmentItemStatusReturned:  true,
	constants.FulfillmentItemStatusDamaged:   true,
	constants.FulfillmentItemStatusMissing:   true,
	constants.FulfillmentItemStatusCanceled:  true,
}

// deriveFulfillmentStatusFromItems 由明细状态聚合推导履约单状态
// 从最靠近终态的条件开始判断；无规则命中时返回空串（保持现状）。
func deriveFulfillmentStatusFromItems(items []models.FulfillmentItem, currentStatus string) string {
	if len(items) == 0 {
		return ""
	}
	allAtLeast := func(rank int) bool {
		for _, item := range items {
			if rankOfItemStatus(item.Status) < rank {
				return false
			}
		}
		return true
	}
	switch {
	case allAtLeast(itemStatusRank[constants.FulfillmentItemStatusDelivered]):
		return constants.FulfillmentStatusDelivered
	case allAtLeast(itemStatusRank[constants.FulfillmentItemStatusShipped]):
		return constants.FulfillmentStatusShipped
	case allAtLeast(itemStatusRank[constants.FulfillmentItemStatusPacked]):
		return constants.FulfillmentStatusPacked
	case allAtLeast(itemStatusRank[constants.FulfillmentItemStatusPicked]) &&
		currentStatus == constants.FulfillmentStatusPending:
		return constants.FulfillmentStatusProcessing
	default:
		return ""
	}
}

// trackingStatusToFulfillment 物流事件状态到履约单状态的固定映射
// 表外的事件状态不强制改变履约单状态。
var trackingStatusToFulfillment = map[string]string{
	constants.TrackingStatusPickedUp:       constants.FulfillmentStatusShipped,
	constants.TrackingStatusInTransit:      constants.FulfillmentStatusInTransit,
	constants.TrackingStatusOutForDelivery: constants.FulfillmentStatusOutForDelivery,
	constants.TrackingStatusDelivered:      constants.FulfillmentStatusDelivered,
}

// fulfillmentStatusForTrackingStatus 查询某事件状态对应的履约单状态
func fulfillmentStatusForTrackingStatus(trackingStatus string) (string, bool) {
	status, ok := trackingStatusToFulfillment[trackingStatus]
	return status, ok
}

// exceptionTrackingStatuses 视为异常的事件状态集合
var exceptionTrackingStatuses = map[string]bool{
	constants.TrackingStatusException:     true,
	constants.TrackingStatusFailedAttempt: true,
	constants.TrackingStatusLost:          true,
}

// knownTrackingStatuses 全部合法物流事件状态
var knownTrackingStatuses = map[string]bool{
	constants.TrackingStatusLabelCreated:   true,
	constants.TrackingStatusPickedUp:       true,
	constants.TrackingStatusInTransit:      true,
	constants.TrackingStatusOutForDelivery: true,
	constants.TrackingStatusDelivered:      true,
	constants.TrackingStatusFailedAttempt:  true,
	constants.TrackingStatusException:      true,
	constants.TrackingStatusLost:           true,
	constants.TrackingStatusReturned:       true,
}

// calcOrderStatus 由履约单集合推导订单状态
// 返回空串表示无需变更。
func calcOrderStatus(fulfillments []models.Fulfillment, currentStatus string) string {
	if len(fulfillments) == 0 {
		return ""
	}
	var deliveredCount, closedCount int
	for _, fulfillment := range fulfillments {
		switch fulfillment.Status {
		case constants.FulfillmentStatusDelivered:
			deliveredCount++
		case constants.FulfillmentStatusCanceled, constants.FulfillmentStatusReturned:
			closedCount++
		}
	}
	newStatus := ""
	switch {
	case deliveredCount == len(fulfillments):
		newStatus = constants.OrderStatusDelivered
	case closedCount == len(fulfillments):
		newStatus = constants.OrderStatusCanceled
	default:
		newStatus = constants.OrderStatusProcessing
	}
	if newStatus == currentStatus {
		return ""
	}
	return newStatus
}

// syncOrderStatus 重算并回写订单状态，状态未变化时不产生写入
func syncOrderStatus(orderRepo repository.OrderRepository, fulfillmentRepo repository.FulfillmentRepository, orderID uint, now time.Time) (string, error) {
	if orderID == 0 {
		return "", nil
	}
	order, err := orderRepo.GetByID(orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", nil
	}
	fulfillments, err := fulfillmentRepo.ListByOrderID(orderID)
	if err != nil {
		return "", err
	}
	newStatus := calcOrderStatus(fulfillments, order.Status)
	if newStatus == "" {
		return order.Status, nil
	}
	updates := map[string]interface{}{"updated_at": now}
	if newStatus == constants.OrderStatusCanceled {
		updates["canceled_at"] = now
	}
	if err := orderRepo.UpdateStatus(order.ID, newStatus, updates); err != nil {
		return "", err
	}
	return newStatus, nil
}

// IsFulfillmentOverdue 逾期判定：超过预计送达时间且尚未送达（读时重算，不落库）
func IsFulfillmentOverdue(fulfillment *models.Fulfillment, now time.Time) bool {
	if fulfillment == nil || fulfillment.EstimatedDeliveryDate == nil {
		return false
	}
	if terminalFulfillmentStatuses[fulfillment.Status] {
		return false
	}
	return fulfillment.EstimatedDeliveryDate.Before(now)
}

// FulfillmentProgress 履约进度百分比：已处理数量 / 分配数量
func FulfillmentProgress(items []models.FulfillmentItem) int {
	var total, fulfilled int
	for _, item := range items {
		total += item.Quantity
		fulfilled += item.FulfilledQuantity
	}
	if total <= 0 {
		return 0
	}
	progress := fulfilled * 100 / total
	if progress > 100 {
		return 100
	}
	return progress
}

// ItemNeedsAttention 明细关注判定：有破损/缺失、临期或过期、或未质检
func ItemNeedsAttention(item *models.FulfillmentItem, now time.Time) bool {
	if item == nil {
		return false
	}
	if item.DamagedQuantity > 0 || item.MissingQuantity > 0 {
		return true
	}
	if !item.QualityChecked {
		return true
	}
	if item.ExpiryDate != nil {
		attentionWindow := now.Add(constants.ExpiryAttentionDays * 24 * time.Hour)
		if item.ExpiryDate.Before(attentionWindow) {
			return true
		}
	}
	return false
}
