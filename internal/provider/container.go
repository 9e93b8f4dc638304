package provider

import (
	"github.com/fulfill-next/internal/cache"
	"github.com/fulfill-next/internal/config"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/queue"
	"github.com/fulfill-next/internal/repository"
	"github.com/fulfill-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	OrderRepo            repository.OrderRepository
	FulfillmentRepo      repository.FulfillmentRepository
	FulfillmentItemRepo  repository.FulfillmentItemRepository
	TrackingEventRepo    repository.TrackingEventRepository
	ShippingProviderRepo repository.ShippingProviderRepository

	// Services
	FulfillmentService     *service.FulfillmentService
	FulfillmentItemService *service.FulfillmentItemService
	TrackingService        *service.TrackingService
	ProviderService        *service.ShippingProviderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	db := models.DB
	orderRepo := repository.NewOrderRepository(db)
	fulfillmentRepo := repository.NewFulfillmentRepository(db)
	itemRepo := repository.NewFulfillmentItemRepository(db)
	trackingRepo := repository.NewTrackingEventRepository(db)
	providerRepo := repository.NewShippingProviderRepository(db)

	fulfillmentSvc := service.NewFulfillmentService(orderRepo, fulfillmentRepo, itemRepo, trackingRepo,
		providerRepo, queueClient, cfg.Fulfillment)

	return &Container{
		Config:      cfg,
		QueueClient: queueClient,

		OrderRepo:            orderRepo,
		FulfillmentRepo:      fulfillmentRepo,
		FulfillmentItemRepo:  itemRepo,
		TrackingEventRepo:    trackingRepo,
		ShippingProviderRepo: providerRepo,

		FulfillmentService:     fulfillmentSvc,
		FulfillmentItemService: service.NewFulfillmentItemService(fulfillmentSvc, itemRepo),
		TrackingService:        service.NewTrackingService(fulfillmentSvc, trackingRepo),
		ProviderService:        service.NewShippingProviderService(providerRepo),
	}
}

// Close 释放容器持有的外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
