package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ShippingProvider 物流服务商表
type ShippingProvider struct {
	ID                    uint           `gorm:"primarykey" json:"id"`
	Name                  string         `gorm:"not null" json:"name"`                             // 名称
	Code                  string         `gorm:"uniqueIndex;not null" json:"code"`                 // 编码
	IsActive              bool           `gorm:"index;not null;default:true" json:"is_active"`     // 启用状态
	TrackingNumberPattern string         `gorm:"type:varchar(200)" json:"tracking_number_pattern"` // 运单号正则
	TrackingURLTemplate   string         `gorm:"type:varchar(500)" json:"tracking_url_template"`   // 运单查询链接模板
	ContactPhone          string         `gorm:"type:varchar(50)" json:"contact_phone,omitempty"`
	ContactEmail          string         `gorm:"type:varchar(200)" json:"contact_email,omitempty"`
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (ShippingProvider) TableName() string {
	return "shipping_providers"
}

// ValidateTrackingNumber 按服务商配置的正则校验运单号格式；未配置正则时只要求非空
func (p ShippingProvider) ValidateTrackingNumber(trackingNumber string) bool {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return false
	}
	pattern := strings.TrimSpace(p.TrackingNumberPattern)
	if pattern == "" {
		return true
	}
	matched, err := regexp.MatchString(pattern, trackingNumber)
	if err != nil {
		return false
	}
	return matched
}
