package router

import (
	"fmt"
	"strings"

	"github.com/fulfill-next/internal/cache"
	"github.com/fulfill-next/internal/config"
	adminhandlers "github.com/fulfill-next/internal/http/handlers/admin"
	publichandlers "github.com/fulfill-next/internal/http/handlers/public"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ff"
	}
	trackingRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:tracking", redisPrefix),
		WindowSeconds: cfg.Security.TrackingRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.TrackingRateLimit.MaxRequests,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：运单查询，按 IP 限流
		public := apiV1.Group("/public")
		{
			public.GET("/tracking/:tracking_number",
				RateLimitMiddleware(cache.Client(), trackingRule, KeyByIP),
				publicHandler.QueryTracking)
		}

		// 管理端接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/fulfillments", adminHandler.CreateFulfillment)
			admin.GET("/fulfillments", adminHandler.ListFulfillments)
			admin.GET("/fulfillments/stats", adminHandler.GetFulfillmentStats)
			admin.GET("/fulfillments/by-number/:number", adminHandler.GetFulfillmentByNumber)
			admin.GET("/fulfillments/:id", adminHandler.GetFulfillment)
			admin.PUT("/fulfillments/:id", adminHandler.UpdateFulfillment)
			admin.DELETE("/fulfillments/:id", adminHandler.DeleteFulfillment)
			admin.POST("/fulfillments/:id/tracking-number", adminHandler.AddTrackingNumber)
			admin.POST("/fulfillments/:id/cancel", adminHandler.CancelFulfillment)
			admin.GET("/fulfillments/:id/items", adminHandler.ListFulfillmentItems)
			admin.GET("/fulfillments/:id/events", adminHandler.ListTrackingEvents)
			admin.POST("/fulfillments/:id/events", adminHandler.AddTrackingEvent)

			admin.GET("/orders/:order_id/fulfillments", adminHandler.ListOrderFulfillments)

			admin.GET("/fulfillment-items/needs-attention", adminHandler.ListNeedsAttention)
			admin.PUT("/fulfillment-items/:item_id/status", adminHandler.UpdateFulfillmentItemStatus)
			admin.PUT("/fulfillment-items/:item_id/fulfilled-quantity", adminHandler.UpdateFulfilledQuantity)
			admin.POST("/fulfillment-items/:item_id/quality-check", adminHandler.PerformQualityCheck)
			admin.POST("/fulfillment-items/:item_id/damaged", adminHandler.AddDamagedQuantity)
			admin.POST("/fulfillment-items/:item_id/missing", adminHandler.AddMissingQuantity)

			admin.POST("/shipping-providers", adminHandler.CreateShippingProvider)
			admin.GET("/shipping-providers", adminHandler.ListShippingProviders)
			admin.GET("/shipping-providers/:id", adminHandler.GetShippingProvider)
			admin.PUT("/shipping-providers/:id", adminHandler.UpdateShippingProvider)
		}
	}

	return r
}
