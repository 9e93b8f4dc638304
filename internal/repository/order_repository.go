package repository

import (
	"errors"

	"github.com/fulfill-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单台账数据访问接口
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetItemByID(id uint) (*models.OrderItem, error)
	GetItemForUpdate(id uint) (*models.OrderItem, error)
	AddItemFulfilledQuantity(itemID uint, delta int) error
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// GetByID 根据 ID 获取订单（预加载订单项与履约单）
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items").Preload("Fulfillments").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetItemByID 根据 ID 获取订单项
func (r *GormOrderRepository) GetItemByID(id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetItemForUpdate 行锁读取订单项，用于事务内的待履约数量校验
func (r *GormOrderRepository) GetItemForUpdate(id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// AddItemFulfilledQuantity 台账认领数量递增
func (r *GormOrderRepository) AddItemFulfilledQuantity(itemID uint, delta int) error {
	return r.db.Model(&models.OrderItem{}).Where("id = ?", itemID).
		UpdateColumn("fulfilled_quantity", gorm.Expr("fulfilled_quantity + ?", delta)).Error
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	values := map[string]interface{}{"status": status}
	for key, value := range updates {
		values[key] = value
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(values).Error
}
