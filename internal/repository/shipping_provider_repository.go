package repository

import (
	"errors"
	"strings"

	"github.com/fulfill-next/internal/models"

	"gorm.io/gorm"
)

// ShippingProviderRepository 物流服务商数据访问接口
type ShippingProviderRepository interface {
	Create(provider *models.ShippingProvider) error
	Update(provider *models.ShippingProvider) error
	GetByID(id uint) (*models.ShippingProvider, error)
	GetActiveByID(id uint) (*models.ShippingProvider, error)
	List(filter ShippingProviderListFilter) ([]models.ShippingProvider, int64, error)
}

// GormShippingProviderRepository GORM 实现
type GormShippingProviderRepository struct {
	db *gorm.DB
}

// NewShippingProviderRepository 创建物流服务商仓库
func NewShippingProviderRepository(db *gorm.DB) *GormShippingProviderRepository {
	return &GormShippingProviderRepository{db: db}
}

// Create 创建服务商
func (r *GormShippingProviderRepository) Create(provider *models.ShippingProvider) error {
	return r.db.Create(provider).Error
}

// Update 保存服务商
func (r *GormShippingProviderRepository) Update(provider *models.ShippingProvider) error {
	return r.db.Save(provider).Error
}

// GetByID 根据 ID 获取服务商
func (r *GormShippingProviderRepository) GetByID(id uint) (*models.ShippingProvider, error) {
	var provider models.ShippingProvider
	if err := r.db.First(&provider, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// GetActiveByID 根据 ID 获取启用中的服务商
func (r *GormShippingProviderRepository) GetActiveByID(id uint) (*models.ShippingProvider, error) {
	var provider models.ShippingProvider
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// List 分页查询服务商
func (r *GormShippingProviderRepository) List(filter ShippingProviderListFilter) ([]models.ShippingProvider, int64, error) {
	query := r.db.Model(&models.ShippingProvider{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var providers []models.ShippingProvider
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("id asc").Find(&providers).Error; err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}
