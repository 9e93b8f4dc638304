package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（履约侧只读状态与订单项台账，状态由同步引擎回写）
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                 // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"` // 订单编号
	Status        string         `gorm:"index;not null" json:"status"`         // 订单状态
	PaymentStatus string         `gorm:"index;not null" json:"payment_status"` // 支付状态
	Currency      string         `gorm:"not null" json:"currency"`             // 币种
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`
	CustomerEmail string         `gorm:"index" json:"customer_email,omitempty"` // 客户邮箱
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                  // 支付时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`              // 取消时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Items        []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`        // 订单项
	Fulfillments []Fulfillment `gorm:"foreignKey:OrderID" json:"fulfillments,omitempty"` // 履约单
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
