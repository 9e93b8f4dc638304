package repository

import "gorm.io/gorm"

// maxPageSize 列表查询单页上限，超出时按上限截断
const maxPageSize = 500

// applyPagination 应用分页参数，页码非法时按首页处理
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
