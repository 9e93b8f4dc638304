package models

import (
	"time"

	"gorm.io/gorm"
)

// FulfillmentItem 履约明细表：订单项分配到某张履约单的部分
type FulfillmentItem struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	FulfillmentID     uint           `gorm:"index;not null" json:"fulfillment_id"`                  // 履约单ID
	OrderItemID       uint           `gorm:"index;not null" json:"order_item_id"`                   // 订单项ID
	Status            string         `gorm:"index;not null" json:"status"`                          // 明细状态
	Quantity          int            `gorm:"not null" json:"quantity"`                              // 分配数量
	FulfilledQuantity int            `gorm:"not null;default:0" json:"fulfilled_quantity"`          // 已处理数量
	ReturnedQuantity  int            `gorm:"not null;default:0" json:"returned_quantity"`           // 退回数量
	DamagedQuantity   int            `gorm:"not null;default:0" json:"damaged_quantity"`            // 破损数量
	MissingQuantity   int            `gorm:"not null;default:0" json:"missing_quantity"`            // 缺失数量
	BatchNumber       string         `gorm:"type:varchar(100)" json:"batch_number,omitempty"`       // 批次号
	SerialNumber      string         `gorm:"type:varchar(100)" json:"serial_number,omitempty"`      // 序列号
	Location          string         `gorm:"type:varchar(100)" json:"location,omitempty"`           // 库位
	ExpiryDate        *time.Time     `gorm:"index" json:"expiry_date,omitempty"`                    // 效期
	QualityChecked    bool           `gorm:"not null;default:false" json:"quality_checked"`         // 已质检
	QualityCheckedBy  string         `gorm:"type:varchar(100)" json:"quality_checked_by,omitempty"` // 质检人
	QualityCheckedAt  *time.Time     `json:"quality_checked_at,omitempty"`                          // 质检时间
	Notes             string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (FulfillmentItem) TableName() string {
	return "fulfillment_items"
}

// RemainingIntactQuantity 剩余完好数量（未破损、未缺失）
func (i FulfillmentItem) RemainingIntactQuantity() int {
	remaining := i.Quantity - i.DamagedQuantity - i.MissingQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}
