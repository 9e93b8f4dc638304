package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulfill-next/internal/config"
	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/queue"
	"github.com/fulfill-next/internal/repository"

	"gorm.io/gorm"
)

// FulfillmentService 履约单服务
type FulfillmentService struct {
	orderRepo       repository.OrderRepository
	fulfillmentRepo repository.FulfillmentRepository
	itemRepo        repository.FulfillmentItemRepository
	trackingRepo    repository.TrackingEventRepository
	providerRepo    repository.ShippingProviderRepository
	queueClient     *queue.Client
	cfg             config.FulfillmentConfig
}

// NewFulfillmentService 创建履约单服务
func NewFulfillmentService(orderRepo repository.OrderRepository, fulfillmentRepo repository.FulfillmentRepository, itemRepo repository.FulfillmentItemRepository, trackingRepo repository.TrackingEventRepository, providerRepo repository.ShippingProviderRepository, queueClient *queue.Client, cfg config.FulfillmentConfig) *FulfillmentService {
	return &FulfillmentService{
		orderRepo:       orderRepo,
		fulfillmentRepo: fulfillmentRepo,
		itemRepo:        itemRepo,
		trackingRepo:    trackingRepo,
		providerRepo:    providerRepo,
		queueClient:     queueClient,
		cfg:             cfg,
	}
}

// CreateFulfillmentInput 创建履约单输入
type CreateFulfillmentInput struct {
	OrderID               uint
	Items                 []CreateFulfillmentItemInput
	Priority              string
	PackagingType         string
	ShippingAddress       models.JSON
	PickupAddress         models.JSON
	ShippingProviderID    uint
	EstimatedDeliveryDate *time.Time
	ShippingCost          models.Money
	InsuranceCost         models.Money
	RequireSignature      bool
	IsGift                bool
	GiftMessage           string
	Notes                 string
}

// CreateFulfillmentItemInput 创建履约明细输入
type CreateFulfillmentItemInput struct {
	OrderItemID  uint
	Quantity     int
	BatchNumber  string
	SerialNumber string
	Location     string
	ExpiryDate   *time.Time
}

// fulfillableOrderStatuses 允许创建履约单的订单状态
var fulfillableOrderStatuses = map[string]bool{
	constants.OrderStatusConfirmed:  true,
	constants.OrderStatusProcessing: true,
}

// CreateFulfillment 创建履约单
// 同一事务内：行锁校验订单项待履约数量、递增认领台账、认领月度单号、
// 写入履约单与明细，并把 confirmed 订单推进到 processing。
func (s *FulfillmentService) CreateFulfillment(input CreateFulfillmentInput) (*models.Fulfillment, error) {
	if input.OrderID == 0 || len(input.Items) == 0 {
		return nil, ErrFulfillmentInvalid
	}
	seen := map[uint]bool{}
	for _, item := range input.Items {
		if item.OrderItemID == 0 || item.Quantity <= 0 {
			return nil, ErrFulfillmentInvalid
		}
		if seen[item.OrderItemID] {
			return nil, fmt.Errorf("%w: duplicate order item %d", ErrFulfillmentInvalid, item.OrderItemID)
		}
		seen[item.OrderItemID] = true
	}
	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = constants.FulfillmentPriorityNormal
	}

	var providerID *uint
	if input.ShippingProviderID > 0 {
		provider, err := s.providerRepo.GetByID(input.ShippingProviderID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, ErrProviderNotFound
		}
		if !provider.IsActive {
			return nil, ErrProviderInactive
		}
		providerID = &provider.ID
	}

	now := time.Now()
	var fulfillment *models.Fulfillment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		fulfillmentRepo := s.fulfillmentRepo.WithTx(tx)

		order, err := orderRepo.GetByID(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PaymentStatus != constants.PaymentStatusPaid || !fulfillableOrderStatuses[order.Status] {
			return ErrOrderNotFulfillable
		}

		items := make([]models.FulfillmentItem, 0, len(input.Items))
		for _, in := range input.Items {
			orderItem, err := orderRepo.GetItemForUpdate(in.OrderItemID)
			if err != nil {
				return err
			}
			if orderItem == nil || orderItem.OrderID != order.ID {
				return ErrOrderItemNotFound
			}
			if in.Quantity > orderItem.PendingQuantity() {
				return fmt.Errorf("%w: order item %d pending %d, requested %d",
					ErrQuantityExceedsPending, orderItem.ID, orderItem.PendingQuantity(), in.Quantity)
			}
			if err := orderRepo.AddItemFulfilledQuantity(orderItem.ID, in.Quantity); err != nil {
				return err
			}
			items = append(items, models.FulfillmentItem{
				OrderItemID:  orderItem.ID,
				Status:       constants.FulfillmentItemStatusPending,
				Quantity:     in.Quantity,
				BatchNumber:  strings.TrimSpace(in.BatchNumber),
				SerialNumber: strings.TrimSpace(in.SerialNumber),
				Location:     strings.TrimSpace(in.Location),
				ExpiryDate:   in.ExpiryDate,
			})
		}

		fulfillmentNo, err := fulfillmentRepo.ClaimNextNumber(now)
		if err != nil {
			return err
		}

		fulfillment = &models.Fulfillment{
			FulfillmentNo:         fulfillmentNo,
			OrderID:               order.ID,
			Status:                constants.FulfillmentStatusPending,
			Priority:              priority,
			PackagingType:         strings.TrimSpace(input.PackagingType),
			ShippingAddressJSON:   input.ShippingAddress,
			PickupAddressJSON:     input.PickupAddress,
			ShippingProviderID:    providerID,
			EstimatedDeliveryDate: input.EstimatedDeliveryDate,
			ShippingCost:          input.ShippingCost,
			InsuranceCost:         input.InsuranceCost,
			RequireSignature:      input.RequireSignature,
			IsGift:                input.IsGift,
			GiftMessage:           strings.TrimSpace(input.GiftMessage),
			Notes:                 strings.TrimSpace(input.Notes),
		}
		if err := fulfillmentRepo.Create(fulfillment, items); err != nil {
			return err
		}

		if order.Status == constants.OrderStatusConfirmed {
			if err := orderRepo.UpdateStatus(order.ID, constants.OrderStatusProcessing,
				map[string]interface{}{"updated_at": now}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatus(fulfillment.ID, fulfillment.Status)
	logger.Infow("fulfillment_created",
		"fulfillment_id", fulfillment.ID,
		"fulfillment_no", fulfillment.FulfillmentNo,
		"order_id", fulfillment.OrderID,
	)
	return s.fulfillmentRepo.GetByID(fulfillment.ID)
}

// UpdateFulfillmentInput 更新履约单输入，nil 字段不修改
type UpdateFulfillmentInput struct {
	Status                *string
	Priority              *string
	PackagingType         *string
	ShippingAddress       models.JSON
	Notes                 *string
	EstimatedDeliveryDate *time.Time
	RequireSignature      *bool
	IsGift                *bool
	GiftMessage           *string
}

// UpdateFulfillment 更新履约单字段与状态
// 状态变更走迁移表校验；目标状态为 shipped 时要求已有运单号。
func (s *FulfillmentService) UpdateFulfillment(id uint, input UpdateFulfillmentInput) (*models.Fulfillment, error) {
	fulfillment, err := s.fulfillmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}

	now := time.Now()
	updates := map[string]interface{}{"updated_at": now}
	if input.Priority != nil {
		updates["priority"] = strings.TrimSpace(*input.Priority)
	}
	if input.PackagingType != nil {
		updates["packaging_type"] = strings.TrimSpace(*input.PackagingType)
	}
	if input.ShippingAddress != nil {
		updates["shipping_address_json"] = input.ShippingAddress
	}
	if input.Notes != nil {
		updates["notes"] = strings.TrimSpace(*input.Notes)
	}
	if input.EstimatedDeliveryDate != nil {
		updates["estimated_delivery_date"] = *input.EstimatedDeliveryDate
	}
	if input.RequireSignature != nil {
		updates["require_signature"] = *input.RequireSignature
	}
	if input.IsGift != nil {
		updates["is_gift"] = *input.IsGift
	}
	if input.GiftMessage != nil {
		updates["gift_message"] = strings.TrimSpace(*input.GiftMessage)
	}

	if input.Status == nil || *input.Status == fulfillment.Status {
		if len(updates) > 1 {
			if err := s.fulfillmentRepo.UpdateFields(id, updates); err != nil {
				return nil, err
			}
		}
		return s.fulfillmentRepo.GetByID(id)
	}

	newStatus := strings.TrimSpace(*input.Status)
	if !canTransitFulfillment(fulfillment.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransitionInvalid, fulfillment.Status, newStatus)
	}
	if newStatus == constants.FulfillmentStatusShipped && strings.TrimSpace(fulfillment.TrackingNumber) == "" {
		return nil, ErrTrackingNumberRequired
	}
	switch newStatus {
	case constants.FulfillmentStatusShipped:
		if fulfillment.ShippedDate == nil {
			updates["shipped_date"] = now
		}
	case constants.FulfillmentStatusDelivered:
		updates["actual_delivery_date"] = now
	case constants.FulfillmentStatusCanceled:
		updates["canceled_at"] = now
	}

	if err := s.transitStatusVersioned(fulfillment, newStatus, updates); err != nil {
		return nil, err
	}
	if _, err := syncOrderStatus(s.orderRepo, s.fulfillmentRepo, fulfillment.OrderID, now); err != nil {
		logger.Errorw("order_status_sync_failed",
			"order_id", fulfillment.OrderID,
			"error", err,
		)
	}
	s.notifyStatus(id, newStatus)
	return s.fulfillmentRepo.GetByID(id)
}

// AddTrackingNumberInput 录入运单号输入
type AddTrackingNumberInput struct {
	ShippingProviderID    uint
	TrackingNumber        string
	EstimatedDeliveryDate *time.Time
}

// AddTrackingNumber 录入运单号并发货
// 有服务商时校验运单号格式；写入 label_created 事件，状态推进到 shipped，
// 并按预计送达时间投递延迟逾期检查任务。
func (s *FulfillmentService) AddTrackingNumber(id uint, input AddTrackingNumberInput) (*models.Fulfillment, error) {
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	if trackingNumber == "" {
		return nil, ErrTrackingNumberInvalid
	}
	fulfillment, err := s.fulfillmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	if !canTransitFulfillment(fulfillment.Status, constants.FulfillmentStatusShipped) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusTransitionInvalid,
			fulfillment.Status, constants.FulfillmentStatusShipped)
	}

	// 未指定服务商时回退到履约单上已有的服务商；两者都没有则跳过格式校验
	providerID := input.ShippingProviderID
	if providerID == 0 && fulfillment.ShippingProviderID != nil {
		providerID = *fulfillment.ShippingProviderID
	}
	var provider *models.ShippingProvider
	if providerID > 0 {
		provider, err = s.providerRepo.GetByID(providerID)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, ErrProviderNotFound
		}
		if !provider.IsActive {
			return nil, ErrProviderInactive
		}
		if !provider.ValidateTrackingNumber(trackingNumber) {
			return nil, fmt.Errorf("%w: %q does not match provider %s", ErrTrackingNumberInvalid,
				trackingNumber, provider.Code)
		}
	}

	now := time.Now()
	estimated := input.EstimatedDeliveryDate
	if estimated == nil {
		transitDays := s.cfg.DefaultTransitDays
		if transitDays <= 0 {
			transitDays = 7
		}
		at := now.Add(time.Duration(transitDays) * 24 * time.Hour)
		estimated = &at
	}

	updates := map[string]interface{}{
		"tracking_number":         trackingNumber,
		"shipped_date":            now,
		"estimated_delivery_date": *estimated,
		"updated_at":              now,
	}
	if provider != nil {
		updates["shipping_provider_id"] = provider.ID
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		fulfillmentRepo := s.fulfillmentRepo.WithTx(tx)
		trackingRepo := s.trackingRepo.WithTx(tx)

		if err := fulfillmentRepo.UpdateStatusVersioned(fulfillment.ID,
			constants.FulfillmentStatusShipped, fulfillment.Version, updates); err != nil {
			return err
		}
		return trackingRepo.Create(&models.TrackingEvent{
			FulfillmentID:     fulfillment.ID,
			TrackingNumber:    trackingNumber,
			Status:            constants.TrackingStatusLabelCreated,
			Description:       "shipping label created",
			EventTime:         now,
			EstimatedDelivery: estimated,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: concurrent update", ErrFulfillmentUpdateFailed)
		}
		return nil, err
	}

	if _, err := syncOrderStatus(s.orderRepo, s.fulfillmentRepo, fulfillment.OrderID, now); err != nil {
		logger.Errorw("order_status_sync_failed",
			"order_id", fulfillment.OrderID,
			"error", err,
		)
	}
	s.notifyStatus(id, constants.FulfillmentStatusShipped)
	if err := s.queueClient.EnqueueFulfillmentOverdueCheck(
		queue.FulfillmentOverdueCheckPayload{FulfillmentID: id},
		time.Until(*estimated),
	); err != nil {
		logger.Warnw("fulfillment_enqueue_overdue_check_failed",
			"fulfillment_id", id,
			"error", err,
		)
	}
	providerCode := ""
	if provider != nil {
		providerCode = provider.Code
	}
	logger.Infow("fulfillment_shipped",
		"fulfillment_id", id,
		"tracking_number", trackingNumber,
		"provider", providerCode,
	)
	return s.fulfillmentRepo.GetByID(id)
}

// CancelFulfillment 取消履约单
// 仅 pending/processing/packed 可取消；明细级联置为 canceled。
// 订单项台账不回退，已认领数量保持占用。
func (s *FulfillmentService) CancelFulfillment(id uint, reason string) (*models.Fulfillment, error) {
	fulfillment, err := s.fulfillmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	if !cancelableFulfillmentStatuses[fulfillment.Status] {
		return nil, fmt.Errorf("%w: status %s", ErrFulfillmentNotCancelable, fulfillment.Status)
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		fulfillmentRepo := s.fulfillmentRepo.WithTx(tx)
		itemRepo := s.itemRepo.WithTx(tx)

		if err := fulfillmentRepo.UpdateStatusVersioned(fulfillment.ID,
			constants.FulfillmentStatusCanceled, fulfillment.Version, map[string]interface{}{
				"cancel_reason": strings.TrimSpace(reason),
				"canceled_at":   now,
				"updated_at":    now,
			}); err != nil {
			return err
		}
		return itemRepo.UpdateStatusByFulfillment(fulfillment.ID,
			constants.FulfillmentItemStatusCanceled, map[string]interface{}{"updated_at": now})
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: concurrent update", ErrFulfillmentUpdateFailed)
		}
		return nil, err
	}

	if _, err := syncOrderStatus(s.orderRepo, s.fulfillmentRepo, fulfillment.OrderID, now); err != nil {
		logger.Errorw("order_status_sync_failed",
			"order_id", fulfillment.OrderID,
			"error", err,
		)
	}
	s.notifyStatus(id, constants.FulfillmentStatusCanceled)
	logger.Infow("fulfillment_canceled",
		"fulfillment_id", id,
		"reason", reason,
	)
	return s.fulfillmentRepo.GetByID(id)
}

// DeleteFulfillment 删除履约单
// 仅 pending 可删除；删除释放订单项台账上已认领的数量。
func (s *FulfillmentService) DeleteFulfillment(id uint) error {
	fulfillment, err := s.fulfillmentRepo.GetByID(id)
	if err != nil {
		return err
	}
	if fulfillment == nil {
		return ErrFulfillmentNotFound
	}
	if fulfillment.Status != constants.FulfillmentStatusPending {
		return fmt.Errorf("%w: status %s", ErrFulfillmentNotDeletable, fulfillment.Status)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		fulfillmentRepo := s.fulfillmentRepo.WithTx(tx)

		for _, item := range fulfillment.Items {
			if err := orderRepo.AddItemFulfilledQuantity(item.OrderItemID, -item.Quantity); err != nil {
				return err
			}
		}
		return fulfillmentRepo.Delete(fulfillment.ID)
	})
	if err != nil {
		return err
	}
	logger.Infow("fulfillment_deleted",
		"fulfillment_id", id,
		"fulfillment_no", fulfillment.FulfillmentNo,
	)
	return nil
}

// transitStatusVersioned 带乐观锁重试的状态写入
// 每次冲突后重新加载履约单并重新校验迁移合法性。
func (s *FulfillmentService) transitStatusVersioned(fulfillment *models.Fulfillment, newStatus string, updates map[string]interface{}) error {
	retries := s.cfg.StatusUpdateRetries
	if retries <= 0 {
		retries = 1
	}
	current := fulfillment
	for attempt := 0; attempt < retries; attempt++ {
		err := s.fulfillmentRepo.UpdateStatusVersioned(current.ID, newStatus, current.Version, updates)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		reloaded, loadErr := s.fulfillmentRepo.GetByID(current.ID)
		if loadErr != nil {
			return loadErr
		}
		if reloaded == nil {
			return ErrFulfillmentNotFound
		}
		if reloaded.Status == newStatus {
			return nil
		}
		if !canTransitFulfillment(reloaded.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrStatusTransitionInvalid, reloaded.Status, newStatus)
		}
		current = reloaded
	}
	return fmt.Errorf("%w: retries exhausted", ErrFulfillmentUpdateFailed)
}

func (s *FulfillmentService) notifyStatus(fulfillmentID uint, status string) {
	if err := s.queueClient.EnqueueFulfillmentStatusNotify(queue.FulfillmentStatusNotifyPayload{
		FulfillmentID: fulfillmentID,
		Status:        status,
	}); err != nil {
		logger.Warnw("fulfillment_enqueue_status_notify_failed",
			"fulfillment_id", fulfillmentID,
			"status", status,
			"error", err,
		)
	}
}
