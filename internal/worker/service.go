package worker

import (
	"context"
	"errors"
	"time"

	"github.com/fulfill-next/internal/config"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/queue"
	"github.com/fulfill-next/internal/repository"

	"github.com/hibiken/asynq"
)

const (
	overdueScanInterval  = time.Hour
	overdueScanBatchSize = 200
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.FulfillmentRepo != nil {
		go s.runOverdueScanLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runOverdueScanLoop 周期扫描逾期履约单，兜底补偿丢失的延时检查任务
func (s *Service) runOverdueScanLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.FulfillmentRepo == nil {
		return
	}
	runOnce := func() {
		now := time.Now()
		overdue, total, err := s.consumer.FulfillmentRepo.List(repository.FulfillmentListFilter{
			Page:        1,
			PageSize:    overdueScanBatchSize,
			OverdueOnly: true,
		})
		if err != nil {
			logger.Warnw("worker_overdue_scan_failed", "error", err)
			return
		}
		if total == 0 {
			logger.Debugw("worker_overdue_scan_clean", "scanned_at", now)
			return
		}
		logger.Warnw("worker_overdue_scan_found", "overdue_total", total)
		for _, fulfillment := range overdue {
			if err := s.consumer.QueueClient.EnqueueFulfillmentOverdueCheck(queue.FulfillmentOverdueCheckPayload{
				FulfillmentID: fulfillment.ID,
			}, 0); err != nil {
				logger.Warnw("worker_overdue_scan_enqueue_failed", "fulfillment_id", fulfillment.ID, "error", err)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(overdueScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
