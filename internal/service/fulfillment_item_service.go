package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
)

// FulfillmentItemService 履约明细服务
type FulfillmentItemService struct {
	fulfillmentService *FulfillmentService
	itemRepo           repository.FulfillmentItemRepository
}

// NewFulfillmentItemService 创建履约明细服务
func NewFulfillmentItemService(fulfillmentService *FulfillmentService, itemRepo repository.FulfillmentItemRepository) *FulfillmentItemService {
	return &FulfillmentItemService{
		fulfillmentService: fulfillmentService,
		itemRepo:           itemRepo,
	}
}

// allowedItemTransitions 明细状态迁移表
// 主线只进不退；退回/破损/缺失/取消旁路从所有非终态可达。
var allowedItemTransitions = map[string]map[string]bool{
	constants.FulfillmentItemStatusPending: {
		constants.FulfillmentItemStatusPicked:   true,
		constants.FulfillmentItemStatusReturned: true,
		constants.FulfillmentItemStatusDamaged:  true,
		constants.FulfillmentItemStatusMissing:  true,
		constants.FulfillmentItemStatusCanceled: true,
	},
	constants.FulfillmentItemStatusPicked: {
		constants.FulfillmentItemStatusPacked:   true,
		constants.FulfillmentItemStatusReturned: true,
		constants.FulfillmentItemStatusDamaged:  true,
		constants.FulfillmentItemStatusMissing:  true,
		constants.FulfillmentItemStatusCanceled: true,
	},
	constants.FulfillmentItemStatusPacked: {
		constants.FulfillmentItemStatusShipped:  true,
		constants.FulfillmentItemStatusReturned: true,
		constants.FulfillmentItemStatusDamaged:  true,
		constants.FulfillmentItemStatusMissing:  true,
		constants.FulfillmentItemStatusCanceled: true,
	},
	constants.FulfillmentItemStatusShipped: {
		constants.FulfillmentItemStatusDelivered: true,
		constants.FulfillmentItemStatusReturned:  true,
		constants.FulfillmentItemStatusDamaged:   true,
		constants.FulfillmentItemStatusMissing:   true,
		constants.FulfillmentItemStatusCanceled:  true,
	},
	constants.FulfillmentItemStatusDelivered: {
		constants.FulfillmentItemStatusReturned: true,
	},
	constants.FulfillmentItemStatusDamaged: {
		constants.FulfillmentItemStatusReturned: true,
		constants.FulfillmentItemStatusMissing:  true,
		constants.FulfillmentItemStatusCanceled: true,
	},
	constants.FulfillmentItemStatusMissing: {
		constants.FulfillmentItemStatusReturned: true,
		constants.FulfillmentItemStatusDamaged:  true,
		constants.FulfillmentItemStatusCanceled: true,
	},
}

func canTransitItem(from, to string) bool {
	if from == to {
		return true
	}
	nexts, ok := allowedItemTransitions[from]
	if !ok {
		return false
	}
	return nexts[to]
}

// GetItem 获取履约明细
func (s *FulfillmentItemService) GetItem(id uint) (*models.FulfillmentItem, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrFulfillmentItemNotFound
	}
	return item, nil
}

// ListItems 查询某履约单的全部明细
func (s *FulfillmentItemService) ListItems(fulfillmentID uint) ([]models.FulfillmentItem, error) {
	fulfillment, err := s.fulfillmentService.fulfillmentRepo.GetByID(fulfillmentID)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	return s.itemRepo.ListByFulfillment(fulfillmentID)
}

// UpdateItemStatus 更新明细状态并重新聚合履约单状态
func (s *FulfillmentItemService) UpdateItemStatus(id uint, status string) (*models.FulfillmentItem, error) {
	status = strings.TrimSpace(status)
	if !knownItemStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrItemStatusInvalid, status)
	}
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrFulfillmentItemNotFound
	}
	if !canTransitItem(item.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransitionInvalid, item.Status, status)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	if status == constants.FulfillmentItemStatusDelivered {
		updates["fulfilled_quantity"] = item.Quantity
	}
	if err := s.itemRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	s.resyncFulfillment(item.FulfillmentID, now)
	return s.itemRepo.GetByID(id)
}

// UpdateFulfilledQuantity 更新明细的已处理数量（0..分配数量）
func (s *FulfillmentItemService) UpdateFulfilledQuantity(id uint, quantity int) (*models.FulfillmentItem, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrFulfillmentItemNotFound
	}
	if quantity < 0 || quantity > item.Quantity {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrQuantityOutOfRange, quantity, item.Quantity)
	}
	now := time.Now()
	if err := s.itemRepo.UpdateFields(id, map[string]interface{}{
		"fulfilled_quantity": quantity,
		"updated_at":         now,
	}); err != nil {
		return nil, err
	}
	s.resyncFulfillment(item.FulfillmentID, now)
	return s.itemRepo.GetByID(id)
}

// PerformQualityCheck 质检，只允许执行一次
func (s *FulfillmentItemService) PerformQualityCheck(id uint, checkedBy, notes string) (*models.FulfillmentItem, error) {
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrFulfillmentItemNotFound
	}
	if item.QualityChecked {
		return nil, ErrQualityCheckDone
	}

	now := time.Now()
	updates := map[string]interface{}{
		"quality_checked":    true,
		"quality_checked_by": strings.TrimSpace(checkedBy),
		"quality_checked_at": now,
		"updated_at":         now,
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		updates["notes"] = notes
	}
	if err := s.itemRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	logger.Infow("fulfillment_item_quality_checked",
		"item_id", id,
		"checked_by", checkedBy,
	)
	s.resyncFulfillment(item.FulfillmentID, now)
	return s.itemRepo.GetByID(id)
}

// AddDamagedQuantity 记录破损数量，上限为剩余完好数量
func (s *FulfillmentItemService) AddDamagedQuantity(id uint, quantity int) (*models.FulfillmentItem, error) {
	return s.addExceptionQuantity(id, quantity, "damaged_quantity", constants.FulfillmentItemStatusDamaged)
}

// AddMissingQuantity 记录缺失数量，上限为剩余完好数量
func (s *FulfillmentItemService) AddMissingQuantity(id uint, quantity int) (*models.FulfillmentItem, error) {
	return s.addExceptionQuantity(id, quantity, "missing_quantity", constants.FulfillmentItemStatusMissing)
}

func (s *FulfillmentItemService) addExceptionQuantity(id uint, quantity int, column, status string) (*models.FulfillmentItem, error) {
	if quantity <= 0 {
		return nil, ErrQuantityOutOfRange
	}
	item, err := s.itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrFulfillmentItemNotFound
	}
	if quantity > item.RemainingIntactQuantity() {
		return nil, fmt.Errorf("%w: %d exceeds remaining intact %d",
			ErrQuantityOutOfRange, quantity, item.RemainingIntactQuantity())
	}

	now := time.Now()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	switch column {
	case "damaged_quantity":
		updates[column] = item.DamagedQuantity + quantity
	case "missing_quantity":
		updates[column] = item.MissingQuantity + quantity
	}
	if !terminalItemStatuses[item.Status] {
		updates["status"] = status
	}
	if err := s.itemRepo.UpdateFields(id, updates); err != nil {
		return nil, err
	}
	logger.Warnw("fulfillment_item_exception_recorded",
		"item_id", id,
		"kind", status,
		"quantity", quantity,
	)
	s.resyncFulfillment(item.FulfillmentID, now)
	return s.itemRepo.GetByID(id)
}

// ListNeedsAttention 查询需关注明细
func (s *FulfillmentItemService) ListNeedsAttention(filter repository.NeedsAttentionFilter) ([]models.FulfillmentItem, int64, error) {
	if filter.ExpiryWithin <= 0 {
		filter.ExpiryWithin = constants.ExpiryAttentionDays * 24 * time.Hour
	}
	return s.itemRepo.ListNeedsAttention(filter)
}

// resyncFulfillment 由明细聚合重算履约单状态，无规则命中时保持现状
func (s *FulfillmentItemService) resyncFulfillment(fulfillmentID uint, now time.Time) {
	fulfillment, err := s.fulfillmentService.fulfillmentRepo.GetByID(fulfillmentID)
	if err != nil || fulfillment == nil {
		if err != nil {
			logger.Errorw("fulfillment_resync_load_failed",
				"fulfillment_id", fulfillmentID,
				"error", err,
			)
		}
		return
	}
	derived := deriveFulfillmentStatusFromItems(fulfillment.Items, fulfillment.Status)
	if derived == "" || derived == fulfillment.Status {
		return
	}
	if !canTransitFulfillment(fulfillment.Status, derived) {
		return
	}
	if derived == constants.FulfillmentStatusShipped && strings.TrimSpace(fulfillment.TrackingNumber) == "" {
		return
	}

	updates := map[string]interface{}{"updated_at": now}
	switch derived {
	case constants.FulfillmentStatusShipped:
		if fulfillment.ShippedDate == nil {
			updates["shipped_date"] = now
		}
	case constants.FulfillmentStatusDelivered:
		updates["actual_delivery_date"] = now
	}
	if err := s.fulfillmentService.transitStatusVersioned(fulfillment, derived, updates); err != nil {
		logger.Errorw("fulfillment_resync_status_failed",
			"fulfillment_id", fulfillmentID,
			"derived", derived,
			"error", err,
		)
		return
	}
	if _, err := syncOrderStatus(s.fulfillmentService.orderRepo, s.fulfillmentService.fulfillmentRepo,
		fulfillment.OrderID, now); err != nil {
		logger.Errorw("order_status_sync_failed",
			"order_id", fulfillment.OrderID,
			"error", err,
		)
	}
	s.fulfillmentService.notifyStatus(fulfillmentID, derived)
}
