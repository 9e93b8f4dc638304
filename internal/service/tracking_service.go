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

// TrackingService 物流跟踪服务
type TrackingService struct {
	fulfillmentService *FulfillmentService
	trackingRepo       repository.TrackingEventRepository
}

// NewTrackingService 创建物流跟踪服务
func NewTrackingService(fulfillmentService *FulfillmentService, trackingRepo repository.TrackingEventRepository) *TrackingService {
	return &TrackingService{
		fulfillmentService: fulfillmentService,
		trackingRepo:       trackingRepo,
	}
}

// AddTrackingEventInput 追加物流事件输入
type AddTrackingEventInput struct {
	Status            string
	Location          string
	Description       string
	EventTime         *time.Time
	EstimatedDelivery *time.Time
	RecipientName     string
	ExceptionReason   string
}

// AddTrackingEvent 追加物流事件并联动履约单状态
// 事件永远落库；映射表命中且迁移合法时才推进履约单状态，
// 乱序或重复的事件只留痕不回退状态。
func (s *TrackingService) AddTrackingEvent(fulfillmentID uint, input AddTrackingEventInput) (*models.TrackingEvent, error) {
	status := strings.TrimSpace(input.Status)
	if !knownTrackingStatuses[status] {
		return nil, fmt.Errorf("%w: %q", ErrTrackingStatusInvalid, status)
	}
	fulfillment, err := s.fulfillmentService.fulfillmentRepo.GetByID(fulfillmentID)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	if strings.TrimSpace(fulfillment.TrackingNumber) == "" {
		return nil, ErrTrackingNumberMissing
	}

	now := time.Now()
	eventTime := now
	if input.EventTime != nil {
		eventTime = *input.EventTime
	}
	event := &models.TrackingEvent{
		FulfillmentID:     fulfillment.ID,
		TrackingNumber:    fulfillment.TrackingNumber,
		Status:            status,
		Location:          strings.TrimSpace(input.Location),
		Description:       strings.TrimSpace(input.Description),
		EventTime:         eventTime,
		EstimatedDelivery: input.EstimatedDelivery,
		RecipientName:     strings.TrimSpace(input.RecipientName),
		ExceptionReason:   strings.TrimSpace(input.ExceptionReason),
		IsDelivered:       status == constants.TrackingStatusDelivered,
		IsException:       exceptionTrackingStatuses[status],
	}
	if err := s.trackingRepo.Create(event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrackingEventCreateFailed, err)
	}
	if event.IsException {
		logger.Warnw("tracking_exception_event",
			"fulfillment_id", fulfillment.ID,
			"tracking_number", fulfillment.TrackingNumber,
			"status", status,
			"reason", event.ExceptionReason,
		)
	}

	s.advanceFulfillment(fulfillment, status, input.EstimatedDelivery, now)
	return event, nil
}

// advanceFulfillment 按事件状态映射推进履约单
func (s *TrackingService) advanceFulfillment(fulfillment *models.Fulfillment, trackingStatus string, estimated *time.Time, now time.Time) {
	target, ok := fulfillmentStatusForTrackingStatus(trackingStatus)
	if !ok || target == fulfillment.Status {
		return
	}
	if !canTransitFulfillment(fulfillment.Status, target) {
		logger.Debugw("tracking_event_out_of_order",
			"fulfillment_id", fulfillment.ID,
			"current", fulfillment.Status,
			"target", target,
		)
		return
	}

	updates := map[string]interface{}{"updated_at": now}
	if estimated != nil {
		updates["estimated_delivery_date"] = *estimated
	}
	switch target {
	case constants.FulfillmentStatusShipped:
		if fulfillment.ShippedDate == nil {
			updates["shipped_date"] = now
		}
	case constants.FulfillmentStatusDelivered:
		updates["actual_delivery_date"] = now
	}
	if err := s.fulfillmentService.transitStatusVersioned(fulfillment, target, updates); err != nil {
		logger.Errorw("tracking_fulfillment_advance_failed",
			"fulfillment_id", fulfillment.ID,
			"target", target,
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
	s.fulfillmentService.notifyStatus(fulfillment.ID, target)
}

// ListTrackingEvents 查询某履约单的物流事件（按事件时间倒序）
func (s *TrackingService) ListTrackingEvents(fulfillmentID uint) ([]models.TrackingEvent, error) {
	fulfillment, err := s.fulfillmentService.fulfillmentRepo.GetByID(fulfillmentID)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	return s.trackingRepo.ListByFulfillment(fulfillmentID)
}

// TrackingInfo 公开运单查询结果
type TrackingInfo struct {
	TrackingNumber        string                 `json:"tracking_number"`
	Status                string                 `json:"status"`
	ShippedDate           *time.Time             `json:"shipped_date,omitempty"`
	EstimatedDeliveryDate *time.Time             `json:"estimated_delivery_date,omitempty"`
	ActualDeliveryDate    *time.Time             `json:"actual_delivery_date,omitempty"`
	IsOverdue             bool                   `json:"is_overdue"`
	ProviderName          string                 `json:"provider_name,omitempty"`
	TrackingURL           string                 `json:"tracking_url,omitempty"`
	Events                []models.TrackingEvent `json:"events"`
}

// QueryByTrackingNumber 根据运单号公开查询物流进度
// 不暴露订单、收货地址等内部信息。
func (s *TrackingService) QueryByTrackingNumber(trackingNumber string) (*TrackingInfo, error) {
	fulfillment, err := s.fulfillmentService.fulfillmentRepo.GetByTrackingNumber(trackingNumber)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	events, err := s.trackingRepo.ListByFulfillment(fulfillment.ID)
	if err != nil {
		return nil, err
	}

	info := &TrackingInfo{
		TrackingNumber:        fulfillment.TrackingNumber,
		Status:                fulfillment.Status,
		ShippedDate:           fulfillment.ShippedDate,
		EstimatedDeliveryDate: fulfillment.EstimatedDeliveryDate,
		ActualDeliveryDate:    fulfillment.ActualDeliveryDate,
		IsOverdue:             IsFulfillmentOverdue(fulfillment, time.Now()),
		Events:                events,
	}
	if fulfillment.ShippingProvider != nil {
		info.ProviderName = fulfillment.ShippingProvider.Name
		if template := fulfillment.ShippingProvider.TrackingURLTemplate; template != "" {
			info.TrackingURL = strings.ReplaceAll(template, "{tracking_number}", fulfillment.TrackingNumber)
		}
	}
	return info, nil
}
