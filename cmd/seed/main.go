package main

import (
	"fmt"
	"time"

	"github.com/fulfill-next/internal/config"
	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/logger"
	"github.com/fulfill-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 开发环境演示数据：常用物流服务商与一笔已支付订单。
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	if err := seedShippingProviders(models.DB); err != nil {
		stdLog.Fatalf("初始化物流服务商失败: %v", err)
	}
	if err := seedDemoOrder(models.DB); err != nil {
		stdLog.Fatalf("初始化演示订单失败: %v", err)
	}
	logger.Infow("seed_done")
}

func seedShippingProviders(db *gorm.DB) error {
	providers := []models.ShippingProvider{
		{
			Name:                  "顺丰速运",
			Code:                  "SF",
			IsActive:              true,
			TrackingNumberPattern: `^SF\d{12,15}$`,
			TrackingURLTemplate:   "https://www.sf-express.com/chn/sc/waybill/{tracking_number}",
		},
		{
			Name:                  "中通快递",
			Code:                  "ZTO",
			IsActive:              true,
			TrackingNumberPattern: `^\d{12,16}$`,
			TrackingURLTemplate:   "https://www.zto.com/express/expressCheck.html?txtBill={tracking_number}",
		},
		{
			Name:                  "圆通速递",
			Code:                  "YTO",
			IsActive:              true,
			TrackingNumberPattern: `^YT\d{13,15}$`,
			TrackingURLTemplate:   "https://www.yto.net.cn/gw/index/query.html?no={tracking_number}",
		},
		{
			Name:     "EMS",
			Code:     "EMS",
			IsActive: true,
		},
	}
	for _, provider := range providers {
		var count int64
		if err := db.Model(&models.ShippingProvider{}).Where("code = ?", provider.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&provider).Error; err != nil {
			return err
		}
		logger.Infow("seed_shipping_provider", "code", provider.Code, "name", provider.Name)
	}
	return nil
}

func seedDemoOrder(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Order{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	order := &models.Order{
		OrderNo:       fmt.Sprintf("ORD%s0001", now.Format("200601")),
		Status:        constants.OrderStatusConfirmed,
		PaymentStatus: constants.PaymentStatusPaid,
		Currency:      "CNY",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(357.00)),
		CustomerEmail: "demo@example.com",
		PaidAt:        &now,
		Items: []models.OrderItem{
			{
				ProductName: "机械键盘 87 键",
				SKU:         "KB-87-BLK",
				UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(299.00)),
				Quantity:    1,
			},
			{
				ProductName: "键帽清洁套装",
				SKU:         "KC-CLEAN-01",
				UnitPrice:   models.NewMoneyFromDecimal(decimal.NewFromFloat(29.00)),
				Quantity:    2,
			},
		},
	}
	if err := db.Create(order).Error; err != nil {
		return err
	}
	logger.Infow("seed_demo_order", "order_no", order.OrderNo, "items", len(order.Items))
	return nil
}
