package repository

import "time"

// FulfillmentListFilter 查询履约单列表的过滤条件
type FulfillmentListFilter struct {
	Page               int
	PageSize           int
	OrderID            uint
	Status             string
	Priority           string
	ShippingProviderID uint
	FulfillmentNo      string
	TrackingNumber     string
	OverdueOnly        bool
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// NeedsAttentionFilter 查询需关注履约明细的过滤条件
type NeedsAttentionFilter struct {
	Page          int
	PageSize      int
	FulfillmentID uint
	// ExpiryWithin 临期窗口：效期早于 now+ExpiryWithin 的明细视为需关注
	ExpiryWithin time.Duration
}

// ShippingProviderListFilter 查询物流服务商列表的过滤条件
type ShippingProviderListFilter struct {
	Page       int
	PageSize   int
	Search     string
	ActiveOnly bool
}

// FulfillmentStats 履约统计结果
type FulfillmentStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	Overdue  int64            `json:"overdue"`
}
