package models

import "time"

// FulfillmentCounter 履约单号月度序列表
// 每个自然月一行，事务内锁行递增，保证同月单号严格递增且不冲突。
type FulfillmentCounter struct {
	Period    string    `gorm:"primarykey;type:varchar(6)" json:"period"` // YYYYMM
	Seq       int64     `gorm:"not null;default:0" json:"seq"`            // 当月已用序号
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (FulfillmentCounter) TableName() string {
	return "fulfillment_counters"
}
