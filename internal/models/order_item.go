package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表（台账：订购数量与已被履约单认领的数量）
// FulfilledQuantity 只增不减：取消履约单不会释放已认领的数量。
type OrderItem struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	OrderID           uint           `gorm:"index;not null" json:"order_id"` // 订单ID
	ProductName       string         `gorm:"not null" json:"product_name"`   // 商品名称快照
	SKU               string         `gorm:"index" json:"sku"`               // SKU 快照
	UnitPrice         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`
	Quantity          int            `gorm:"not null" json:"quantity"`                     // 订购数量
	FulfilledQuantity int            `gorm:"not null;default:0" json:"fulfilled_quantity"` // 已认领数量
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// PendingQuantity 剩余可履约数量
func (i OrderItem) PendingQuantity() int {
	pending := i.Quantity - i.FulfilledQuantity
	if pending < 0 {
		return 0
	}
	return pending
}
