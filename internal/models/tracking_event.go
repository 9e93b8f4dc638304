package models

import (
	"time"
)

// TrackingEvent 物流事件表（追加写入，永不修改或删除）
type TrackingEvent struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	FulfillmentID     uint       `gorm:"index;not null" json:"fulfillment_id"`                // 履约单ID
	TrackingNumber    string     `gorm:"index;not null" json:"tracking_number"`               // 运单号
	Status            string     `gorm:"index;not null" json:"status"`                        // 事件状态
	Location          string     `gorm:"type:varchar(200)" json:"location,omitempty"`         // 地点
	Description       string     `gorm:"type:varchar(500)" json:"description,omitempty"`      // 描述
	EventTime         time.Time  `gorm:"index;not null" json:"event_time"`                    // 事件时间
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`                        // 承运商给出的预计送达
	RecipientName     string     `gorm:"type:varchar(200)" json:"recipient_name,omitempty"`   // 签收人
	ExceptionReason   string     `gorm:"type:varchar(500)" json:"exception_reason,omitempty"` // 异常原因
	IsDelivered       bool       `gorm:"index;not null;default:false" json:"is_delivered"`    // 妥投标记
	IsException       bool       `gorm:"index;not null;default:false" json:"is_exception"`    // 异常标记
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (TrackingEvent) TableName() string {
	return "tracking_events"
}
