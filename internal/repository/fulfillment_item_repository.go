package repository

import (
	"errors"
	"time"

	"github.com/fulfill-next/internal/models"

	"gorm.io/gorm"
)

// FulfillmentItemRepository 履约明细数据访问接口
type FulfillmentItemRepository interface {
	GetByID(id uint) (*models.FulfillmentItem, error)
	ListByFulfillment(fulfillmentID uint) ([]models.FulfillmentItem, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateStatusByFulfillment(fulfillmentID uint, status string, updates map[string]interface{}) error
	ListNeedsAttention(filter NeedsAttentionFilter) ([]models.FulfillmentItem, int64, error)
	WithTx(tx *gorm.DB) *GormFulfillmentItemRepository
}

// GormFulfillmentItemRepository GORM 实现
type GormFulfillmentItemRepository struct {
	db *gorm.DB
}

// NewFulfillmentItemRepository 创建履约明细仓库
func NewFulfillmentItemRepository(db *gorm.DB) *GormFulfillmentItemRepository {
	return &GormFulfillmentItemRepository{db: db}
}

// WithTx 绑定事务
func (r *GormFulfillmentItemRepository) WithTx(tx *gorm.DB) *GormFulfillmentItemRepository {
	if tx == nil {
		return r
	}
	return &GormFulfillmentItemRepository{db: tx}
}

// GetByID 根据 ID 获取履约明细
func (r *GormFulfillmentItemRepository) GetByID(id uint) (*models.FulfillmentItem, error) {
	var item models.FulfillmentItem
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByFulfillment 查询某履约单的全部明细
func (r *GormFulfillmentItemRepository) ListByFulfillment(fulfillmentID uint) ([]models.FulfillmentItem, error) {
	var items []models.FulfillmentItem
	if err := r.db.Where("fulfillment_id = ?", fulfillmentID).Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateFields 更新履约明细字段
func (r *GormFulfillmentItemRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.FulfillmentItem{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusByFulfillment 批量更新某履约单下全部明细的状态（取消级联）
func (r *GormFulfillmentItemRepository) UpdateStatusByFulfillment(fulfillmentID uint, status string, updates map[string]interface{}) error {
	values := map[string]interface{}{"status": status}
	for key, value := range updates {
		values[key] = value
	}
	return r.db.Model(&models.FulfillmentItem{}).
		Where("fulfillment_id = ?", fulfillmentID).Updates(values).Error
}

// ListNeedsAttention 查询需关注明细：有破损/缺失数量、临期或过期、或未质检
func (r *GormFulfillmentItemRepository) ListNeedsAttention(filter NeedsAttentionFilter) ([]models.FulfillmentItem, int64, error) {
	expiryBefore := time.Now().Add(filter.ExpiryWithin)
	query := r.db.Model(&models.FulfillmentItem{}).
		Where("damaged_quantity > 0 OR missing_quantity > 0 OR (expiry_date IS NOT NULL AND expiry_date < ?) OR quality_checked = ?",
			expiryBefore, false)
	if filter.FulfillmentID > 0 {
		query = query.Where("fulfillment_id = ?", filter.FulfillmentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.FulfillmentItem
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id asc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
