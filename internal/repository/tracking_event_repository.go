package repository

import (
	"errors"

	"github.com/fulfill-next/internal/models"

	"gorm.io/gorm"
)

// TrackingEventRepository 物流事件数据访问接口（只追加）
type TrackingEventRepository interface {
	Create(event *models.TrackingEvent) error
	ListByFulfillment(fulfillmentID uint) ([]models.TrackingEvent, error)
	Latest(fulfillmentID uint) (*models.TrackingEvent, error)
	WithTx(tx *gorm.DB) *GormTrackingEventRepository
}

// GormTrackingEventRepository GORM 实现
type GormTrackingEventRepository struct {
	db *gorm.DB
}

// NewTrackingEventRepository 创建物流事件仓库
func NewTrackingEventRepository(db *gorm.DB) *GormTrackingEventRepository {
	return &GormTrackingEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormTrackingEventRepository) WithTx(tx *gorm.DB) *GormTrackingEventRepository {
	if tx == nil {
		return r
	}
	return &GormTrackingEventRepository{db: tx}
}

// Create 追加物流事件
func (r *GormTrackingEventRepository) Create(event *models.TrackingEvent) error {
	return r.db.Create(event).Error
}

// ListByFulfillment 查询某履约单的物流事件（按事件时间倒序）
func (r *GormTrackingEventRepository) ListByFulfillment(fulfillmentID uint) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	if err := r.db.Where("fulfillment_id = ?", fulfillmentID).
		Order("event_time desc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Latest 获取某履约单事件时间最大的一条事件
func (r *GormTrackingEventRepository) Latest(fulfillmentID uint) (*models.TrackingEvent, error) {
	var event models.TrackingEvent
	if err := r.db.Where("fulfillment_id = ?", fulfillmentID).
		Order("event_time desc").First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
