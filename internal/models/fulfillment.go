package models

import (
	"time"

	"gorm.io/gorm"
)

// Fulfillment 履约单表：一张订单的一次发货分组
type Fulfillment struct {
	ID                    uint           `gorm:"primarykey" json:"id"`
	FulfillmentNo         string         `gorm:"uniqueIndex;not null" json:"fulfillment_no"`     // 履约单号 FUL{YYYY}{MM}{NNNN}
	OrderID               uint           `gorm:"index;not null" json:"order_id"`                 // 订单ID
	Status                string         `gorm:"index;not null" json:"status"`                   // 履约状态
	Priority              string         `gorm:"index;not null;default:normal" json:"priority"`  // 优先级
	PackagingType         string         `gorm:"type:varchar(50)" json:"packaging_type"`         // 包装类型
	ShippingAddressJSON   JSON           `gorm:"type:json" json:"shipping_address"`              // 收货地址快照
	PickupAddressJSON     JSON           `gorm:"type:json" json:"pickup_address,omitempty"`      // 取货地址快照
	ShippingProviderID    *uint          `gorm:"index" json:"shipping_provider_id,omitempty"`    // 物流服务商ID
	TrackingNumber        string         `gorm:"index" json:"tracking_number,omitempty"`         // 运单号
	ShippedDate           *time.Time     `gorm:"index" json:"shipped_date,omitempty"`            // 发货时间
	EstimatedDeliveryDate *time.Time     `gorm:"index" json:"estimated_delivery_date,omitempty"` // 预计送达时间
	ActualDeliveryDate    *time.Time     `gorm:"index" json:"actual_delivery_date,omitempty"`    // 实际送达时间
	ShippingCost          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_cost"`
	InsuranceCost         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"insurance_cost"`
	RequireSignature      bool           `gorm:"not null;default:false" json:"require_signature"`  // 需要签收
	IsGift                bool           `gorm:"not null;default:false" json:"is_gift"`            // 礼品
	GiftMessage           string         `gorm:"type:varchar(500)" json:"gift_message,omitempty"`  // 礼品留言
	Notes                 string         `gorm:"type:text" json:"notes,omitempty"`                 // 备注
	CancelReason          string         `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"` // 取消原因
	CanceledAt            *time.Time     `gorm:"index" json:"canceled_at,omitempty"`               // 取消时间
	Version               int64          `gorm:"not null;default:0" json:"-"`                      // 乐观锁版本号
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	Items            []FulfillmentItem `gorm:"foreignKey:FulfillmentID" json:"items,omitempty"`           // 履约明细
	TrackingEvents   []TrackingEvent   `gorm:"foreignKey:FulfillmentID" json:"tracking_events,omitempty"` // 物流事件
	ShippingProvider *ShippingProvider `gorm:"foreignKey:ShippingProviderID" json:"shipping_provider,omitempty"`
}

// TableName 指定表名
func (Fulfillment) TableName() string {
	return "fulfillments"
}
