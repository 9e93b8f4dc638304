package service

import (
	"time"

	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
)

// FulfillmentDetail 履约单详情视图，附带读时计算字段
type FulfillmentDetail struct {
	models.Fulfillment
	IsOverdue bool `json:"is_overdue"`
	Progress  int  `json:"progress"`
}

func newFulfillmentDetail(fulfillment models.Fulfillment, now time.Time) FulfillmentDetail {
	return FulfillmentDetail{
		Fulfillment: fulfillment,
		IsOverdue:   IsFulfillmentOverdue(&fulfillment, now),
		Progress:    FulfillmentProgress(fulfillment.Items),
	}
}

// GetFulfillment 获取履约单详情
func (s *FulfillmentService) GetFulfillment(id uint) (*FulfillmentDetail, error) {
	fulfillment, err := s.fulfillmentRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	detail := newFulfillmentDetail(*fulfillment, time.Now())
	return &detail, nil
}

// GetFulfillmentByNumber 根据履约单号获取详情
func (s *FulfillmentService) GetFulfillmentByNumber(fulfillmentNo string) (*FulfillmentDetail, error) {
	fulfillment, err := s.fulfillmentRepo.GetByNumber(fulfillmentNo)
	if err != nil {
		return nil, err
	}
	if fulfillment == nil {
		return nil, ErrFulfillmentNotFound
	}
	detail := newFulfillmentDetail(*fulfillment, time.Now())
	return &detail, nil
}

// ListFulfillments 分页查询履约单
func (s *FulfillmentService) ListFulfillments(filter repository.FulfillmentListFilter) ([]FulfillmentDetail, int64, error) {
	fulfillments, total, err := s.fulfillmentRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}
	now := time.Now()
	details := make([]FulfillmentDetail, 0, len(fulfillments))
	for _, fulfillment := range fulfillments {
		details = append(details, newFulfillmentDetail(fulfillment, now))
	}
	return details, total, nil
}

// ListOrderFulfillments 查询某订单的全部履约单
func (s *FulfillmentService) ListOrderFulfillments(orderID uint) ([]FulfillmentDetail, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	fulfillments, err := s.fulfillmentRepo.ListByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	details := make([]FulfillmentDetail, 0, len(fulfillments))
	for _, fulfillment := range fulfillments {
		details = append(details, newFulfillmentDetail(fulfillment, now))
	}
	return details, nil
}

// GetFulfillmentStats 履约统计
func (s *FulfillmentService) GetFulfillmentStats() (*repository.FulfillmentStats, error) {
	return s.fulfillmentRepo.Stats(time.Now())
}
