package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
)

// ShippingProviderService 物流服务商服务
type ShippingProviderService struct {
	providerRepo repository.ShippingProviderRepository
}

// NewShippingProviderService 创建物流服务商服务
func NewShippingProviderService(providerRepo repository.ShippingProviderRepository) *ShippingProviderService {
	return &ShippingProviderService{providerRepo: providerRepo}
}

// ShippingProviderInput 创建/更新服务商输入
type ShippingProviderInput struct {
	Name                  string
	Code                  string
	IsActive              *bool
	TrackingNumberPattern string
	TrackingURLTemplate   string
	ContactPhone          string
	ContactEmail          string
}

func (in ShippingProviderInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: name and code are required", ErrFulfillmentInvalid)
	}
	if pattern := strings.TrimSpace(in.TrackingNumberPattern); pattern != "" {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: tracking number pattern: %v", ErrFulfillmentInvalid, err)
		}
	}
	return nil
}

// CreateProvider 创建服务商
func (s *ShippingProviderService) CreateProvider(input ShippingProviderInput) (*models.ShippingProvider, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	provider := &models.ShippingProvider{
		Name:                  strings.TrimSpace(input.Name),
		Code:                  strings.TrimSpace(input.Code),
		IsActive:              true,
		TrackingNumberPattern: strings.TrimSpace(input.TrackingNumberPattern),
		TrackingURLTemplate:   strings.TrimSpace(input.TrackingURLTemplate),
		ContactPhone:          strings.TrimSpace(input.ContactPhone),
		ContactEmail:          strings.TrimSpace(input.ContactEmail),
	}
	if input.IsActive != nil {
		provider.IsActive = *input.IsActive
	}
	if err := s.providerRepo.Create(provider); err != nil {
		return nil, err
	}
	return provider, nil
}

// UpdateProvider 更新服务商
func (s *ShippingProviderService) UpdateProvider(id uint, input ShippingProviderInput) (*models.ShippingProvider, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	provider, err := s.providerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	provider.Name = strings.TrimSpace(input.Name)
	provider.Code = strings.TrimSpace(input.Code)
	provider.TrackingNumberPattern = strings.TrimSpace(input.TrackingNumberPattern)
	provider.TrackingURLTemplate = strings.TrimSpace(input.TrackingURLTemplate)
	provider.ContactPhone = strings.TrimSpace(input.ContactPhone)
	provider.ContactEmail = strings.TrimSpace(input.ContactEmail)
	if input.IsActive != nil {
		provider.IsActive = *input.IsActive
	}
	if err := s.providerRepo.Update(provider); err != nil {
		return nil, err
	}
	return provider, nil
}

// GetProvider 获取服务商
func (s *ShippingProviderService) GetProvider(id uint) (*models.ShippingProvider, error) {
	provider, err := s.providerRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// ListProviders 分页查询服务商
func (s *ShippingProviderService) ListProviders(filter repository.ShippingProviderListFilter) ([]models.ShippingProvider, int64, error) {
	return s.providerRepo.List(filter)
}
