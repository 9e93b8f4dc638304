package shared

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseUintParam 解析路径上的无符号整数参数，0 视为非法。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

// ParseUintQuery 解析 query 上的无符号整数参数，缺失或非法时返回 0。
func ParseUintQuery(c *gin.Context, name string) uint {
	value, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
