package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fulfill-next/internal/config"
	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/queue"
	"github.com/fulfill-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db          *gorm.DB
	fulfillment *FulfillmentService
	item        *FulfillmentItemService
	tracking    *TrackingService
	provider    *ShippingProviderService
}

func setupServiceTest(t *testing.T) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:fulfillment_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.ShippingProvider{},
		&models.Fulfillment{},
		&models.FulfillmentItem{},
		&models.TrackingEvent{},
		&models.FulfillmentCounter{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	orderRepo := repository.NewOrderRepository(db)
	fulfillmentRepo := repository.NewFulfillmentRepository(db)
	itemRepo := repository.NewFulfillmentItemRepository(db)
	trackingRepo := repository.NewTrackingEventRepository(db)
	providerRepo := repository.NewShippingProviderRepository(db)

	fulfillmentSvc := NewFulfillmentService(orderRepo, fulfillmentRepo, itemRepo, trackingRepo, providerRepo,
		queueClient, config.FulfillmentConfig{DefaultTransitDays: 7, StatusUpdateRetries: 3})
	return &serviceTestEnv{
		db:          db,
		fulfillment: fulfillmentSvc,
		item:        NewFulfillmentItemService(fulfillmentSvc, itemRepo),
		tracking:    NewTrackingService(fulfillmentSvc, trackingRepo),
		provider:    NewShippingProviderService(providerRepo),
	}
}

func seedOrder(t *testing.T, db *gorm.DB, status, paymentStatus string, quantities ...int) *models.Order {
	t.Helper()
	order := models.Order{
		OrderNo:       fmt.Sprintf("ORD%d", time.Now().UnixNano()),
		Status:        status,
		PaymentStatus: paymentStatus,
		Currency:      "USD",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	for i, quantity := range quantities {
		item := models.OrderItem{
			OrderID:     order.ID,
			ProductName: fmt.Sprintf("测试商品%d", i+1),
			SKU:         fmt.Sprintf("SKU-%d-%d", order.ID, i+1),
			Quantity:    quantity,
		}
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create order item failed: %v", err)
		}
		order.Items = append(order.Items, item)
	}
	return &order
}

func seedProvider(t *testing.T, db *gorm.DB, pattern string) *models.ShippingProvider {
	t.Helper()
	provider := models.ShippingProvider{
		Name:                  "顺丰速运",
		Code:                  fmt.Sprintf("SF%d", time.Now().UnixNano()),
		IsActive:              true,
		TrackingNumberPattern: pattern,
		TrackingURLTemplate:   "https://track.example.com/{tracking_number}",
	}
	if err := db.Create(&provider).Error; err != nil {
		t.Fatalf("create provider failed: %v", err)
	}
	return &provider
}

func createTestFulfillment(t *testing.T, env *serviceTestEnv, order *models.Order, quantity int) *models.Fulfillment {
	t.Helper()
	fulfillment, err := env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: order.ID,
		Items: []CreateFulfillmentItemInput{
			{OrderItemID: order.Items[0].ID, Quantity: quantity},
		},
		ShippingAddress: models.JSON{"city": "Shanghai", "line1": "No.1 Road"},
	})
	if err != nil {
		t.Fatalf("create fulfillment failed: %v", err)
	}
	return fulfillment
}

func shipTestFulfillment(t *testing.T, env *serviceTestEnv, fulfillmentID uint, provider *models.ShippingProvider, trackingNumber string) *models.Fulfillment {
	t.Helper()
	if _, err := env.fulfillment.UpdateFulfillment(fulfillmentID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusPacked),
	}); err != nil {
		t.Fatalf("pack fulfillment failed: %v", err)
	}
	fulfillment, err := env.fulfillment.AddTrackingNumber(fulfillmentID, AddTrackingNumberInput{
		ShippingProviderID: provider.ID,
		TrackingNumber:     trackingNumber,
	})
	if err != nil {
		t.Fatalf("add tracking number failed: %v", err)
	}
	return fulfillment
}

func strPtr(s string) *string { return &s }

func TestCreateFulfillmentClaimsQuantityAndNumber(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)

	fulfillment := createTestFulfillment(t, env, order, 3)
	period := time.Now().Format("200601")
	if want := fmt.Sprintf("FUL%s0001", period); fulfillment.FulfillmentNo != want {
		t.Fatalf("expected number %s, got %s", want, fulfillment.FulfillmentNo)
	}
	if fulfillment.Status != constants.FulfillmentStatusPending {
		t.Fatalf("expected pending status, got %s", fulfillment.Status)
	}
	if len(fulfillment.Items) != 1 || fulfillment.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items: %+v", fulfillment.Items)
	}

	var orderItem models.OrderItem
	if err := env.db.First(&orderItem, order.Items[0].ID).Error; err != nil {
		t.Fatalf("load order item failed: %v", err)
	}
	if orderItem.FulfilledQuantity != 3 {
		t.Fatalf("expected claimed quantity 3, got %d", orderItem.FulfilledQuantity)
	}

	// confirmed 订单在首个履约单创建后推进到 processing
	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusProcessing {
		t.Fatalf("expected order processing, got %s", reloaded.Status)
	}
}

func TestCreateFulfillmentNumbersMonotonic(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 10)

	var previous string
	for i := 0; i < 3; i++ {
		fulfillment := createTestFulfillment(t, env, order, 2)
		if previous != "" && fulfillment.FulfillmentNo <= previous {
			t.Fatalf("expected %s > %s", fulfillment.FulfillmentNo, previous)
		}
		previous = fulfillment.FulfillmentNo
	}
	if !strings.HasSuffix(previous, "0003") {
		t.Fatalf("expected third number to end with 0003, got %s", previous)
	}
}

func TestCreateFulfillmentQuantityExceedsPending(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)

	createTestFulfillment(t, env, order, 3)
	_, err := env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: order.ID,
		Items: []CreateFulfillmentItemInput{
			{OrderItemID: order.Items[0].ID, Quantity: 3},
		},
	})
	if !errors.Is(err, ErrQuantityExceedsPending) {
		t.Fatalf("expected ErrQuantityExceedsPending, got %v", err)
	}

	// 失败的创建不应占用台账或单号
	var orderItem models.OrderItem
	if err := env.db.First(&orderItem, order.Items[0].ID).Error; err != nil {
		t.Fatalf("load order item failed: %v", err)
	}
	if orderItem.FulfilledQuantity != 3 {
		t.Fatalf("expected claimed quantity to stay 3, got %d", orderItem.FulfilledQuantity)
	}
	second := createTestFulfillment(t, env, order, 2)
	if !strings.HasSuffix(second.FulfillmentNo, "0002") {
		t.Fatalf("expected second claimed number to end with 0002, got %s", second.FulfillmentNo)
	}
}

func TestCreateFulfillmentRequiresFulfillableOrder(t *testing.T) {
	env := setupServiceTest(t)

	unpaid := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusUnpaid, 5)
	_, err := env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: unpaid.ID,
		Items:   []CreateFulfillmentItemInput{{OrderItemID: unpaid.Items[0].ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFulfillable) {
		t.Fatalf("expected ErrOrderNotFulfillable for unpaid order, got %v", err)
	}

	pending := seedOrder(t, env.db, constants.OrderStatusPending, constants.PaymentStatusPaid, 5)
	_, err = env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: pending.ID,
		Items:   []CreateFulfillmentItemInput{{OrderItemID: pending.Items[0].ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFulfillable) {
		t.Fatalf("expected ErrOrderNotFulfillable for pending order, got %v", err)
	}

	_, err = env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: 99999,
		Items:   []CreateFulfillmentItemInput{{OrderItemID: 1, Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateFulfillmentStatusTransitions(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 2)

	// pending -> shipped 迁移合法，但无运单号不得发货
	_, err := env.fulfillment.UpdateFulfillment(fulfillment.ID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusShipped),
	})
	if !errors.Is(err, ErrTrackingNumberRequired) {
		t.Fatalf("expected ErrTrackingNumberRequired, got %v", err)
	}

	// 迁移表外的目标仍被拒绝
	_, err = env.fulfillment.UpdateFulfillment(fulfillment.ID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusInTransit),
	})
	if !errors.Is(err, ErrStatusTransitionInvalid) {
		t.Fatalf("expected ErrStatusTransitionInvalid, got %v", err)
	}

	updated, err := env.fulfillment.UpdateFulfillment(fulfillment.ID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusPacked),
	})
	if err != nil {
		t.Fatalf("update to packed failed: %v", err)
	}
	if updated.Status != constants.FulfillmentStatusPacked {
		t.Fatalf("expected packed, got %s", updated.Status)
	}
	if updated.Version != fulfillment.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", fulfillment.Version+1, updated.Version)
	}

	// 无运单号不得发货
	_, err = env.fulfillment.UpdateFulfillment(fulfillment.ID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusShipped),
	})
	if !errors.Is(err, ErrTrackingNumberRequired) {
		t.Fatalf("expected ErrTrackingNumberRequired, got %v", err)
	}
}

func TestAddTrackingNumber(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, `^SF\d{8}$`)
	fulfillment := createTestFulfillment(t, env, order, 2)

	// 运单号不符合服务商正则
	_, err := env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		ShippingProviderID: provider.ID,
		TrackingNumber:     "BAD123",
	})
	if !errors.Is(err, ErrTrackingNumberInvalid) {
		t.Fatalf("expected ErrTrackingNumberInvalid, got %v", err)
	}

	shipped := shipTestFulfillment(t, env, fulfillment.ID, provider, "SF12345678")
	if shipped.Status != constants.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}
	if shipped.TrackingNumber != "SF12345678" {
		t.Fatalf("unexpected tracking number %s", shipped.TrackingNumber)
	}
	if shipped.ShippedDate == nil || shipped.EstimatedDeliveryDate == nil {
		t.Fatalf("expected shipped and estimated dates to be set")
	}
	if len(shipped.TrackingEvents) != 1 || shipped.TrackingEvents[0].Status != constants.TrackingStatusLabelCreated {
		t.Fatalf("expected single label_created event, got %+v", shipped.TrackingEvents)
	}
}

func TestAddTrackingNumberShipsFromPending(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, `^SF\d{8}$`)
	fulfillment := createTestFulfillment(t, env, order, 2)
	if fulfillment.Status != constants.FulfillmentStatusPending {
		t.Fatalf("expected pending, got %s", fulfillment.Status)
	}

	// 录入运单号即发货，无需先经过 packed
	shipped, err := env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		ShippingProviderID: provider.ID,
		TrackingNumber:     "SF87654321",
	})
	if err != nil {
		t.Fatalf("add tracking number from pending failed: %v", err)
	}
	if shipped.Status != constants.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}
	if shipped.ShippedDate == nil {
		t.Fatalf("expected shipped date to be set")
	}
}

func TestAddTrackingNumberWithoutProvider(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 2)

	// 履约单与请求都未指定服务商时跳过格式校验
	shipped, err := env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		TrackingNumber: "FREEFORM-001",
	})
	if err != nil {
		t.Fatalf("add tracking number without provider failed: %v", err)
	}
	if shipped.Status != constants.FulfillmentStatusShipped {
		t.Fatalf("expected shipped, got %s", shipped.Status)
	}
	if shipped.TrackingNumber != "FREEFORM-001" {
		t.Fatalf("unexpected tracking number %s", shipped.TrackingNumber)
	}
	if shipped.ShippingProviderID != nil {
		t.Fatalf("expected no shipping provider, got %v", *shipped.ShippingProviderID)
	}
}

func TestAddTrackingNumberFallsBackToFulfillmentProvider(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, `^SF\d{8}$`)

	fulfillment, err := env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: order.ID,
		Items: []CreateFulfillmentItemInput{
			{OrderItemID: order.Items[0].ID, Quantity: 2},
		},
		ShippingProviderID: provider.ID,
	})
	if err != nil {
		t.Fatalf("create fulfillment failed: %v", err)
	}

	// 请求省略服务商时沿用履约单上的服务商，正则仍然生效
	_, err = env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		TrackingNumber: "BAD123",
	})
	if !errors.Is(err, ErrTrackingNumberInvalid) {
		t.Fatalf("expected ErrTrackingNumberInvalid, got %v", err)
	}

	shipped, err := env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		TrackingNumber: "SF11112222",
	})
	if err != nil {
		t.Fatalf("add tracking number with inherited provider failed: %v", err)
	}
	if shipped.ShippingProviderID == nil || *shipped.ShippingProviderID != provider.ID {
		t.Fatalf("expected provider %d to be kept, got %v", provider.ID, shipped.ShippingProviderID)
	}
}

func TestAddTrackingNumberRejectsInactiveProvider(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, "")
	if err := env.db.Model(provider).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate provider failed: %v", err)
	}
	fulfillment := createTestFulfillment(t, env, order, 2)

	_, err := env.fulfillment.AddTrackingNumber(fulfillment.ID, AddTrackingNumberInput{
		ShippingProviderID: provider.ID,
		TrackingNumber:     "ANY123",
	})
	if !errors.Is(err, ErrProviderInactive) {
		t.Fatalf("expected ErrProviderInactive, got %v", err)
	}
}

func TestCancelFulfillmentKeepsClaimedQuantity(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 3)

	canceled, err := env.fulfillment.CancelFulfillment(fulfillment.ID, "仓库缺货")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.FulfillmentStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.CanceledAt == nil || canceled.CancelReason != "仓库缺货" {
		t.Fatalf("expected cancel metadata, got %+v", canceled)
	}
	for _, item := range canceled.Items {
		if item.Status != constants.FulfillmentItemStatusCanceled {
			t.Fatalf("expected item canceled, got %s", item.Status)
		}
	}

	// 取消不回退台账
	var orderItem models.OrderItem
	if err := env.db.First(&orderItem, order.Items[0].ID).Error; err != nil {
		t.Fatalf("load order item failed: %v", err)
	}
	if orderItem.FulfilledQuantity != 3 {
		t.Fatalf("expected claimed quantity to stay 3, got %d", orderItem.FulfilledQuantity)
	}

	// 唯一履约单被取消后订单回写为 canceled
	var reloaded models.Order
	if err := env.db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCanceled {
		t.Fatalf("expected order canceled, got %s", reloaded.Status)
	}
}

func TestCancelFulfillmentAfterShipDenied(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, "")
	fulfillment := createTestFulfillment(t, env, order, 2)
	shipTestFulfillment(t, env, fulfillment.ID, provider, "TN10001")

	_, err := env.fulfillment.CancelFulfillment(fulfillment.ID, "too late")
	if !errors.Is(err, ErrFulfillmentNotCancelable) {
		t.Fatalf("expected ErrFulfillmentNotCancelable, got %v", err)
	}
}

func TestDeleteFulfillment(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 3)

	if err := env.fulfillment.DeleteFulfillment(fulfillment.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := env.fulfillment.GetFulfillment(fulfillment.ID); !errors.Is(err, ErrFulfillmentNotFound) {
		t.Fatalf("expected ErrFulfillmentNotFound after delete, got %v", err)
	}

	// 删除释放台账上已认领的数量
	var orderItem models.OrderItem
	if err := env.db.First(&orderItem, order.Items[0].ID).Error; err != nil {
		t.Fatalf("load order item failed: %v", err)
	}
	if orderItem.FulfilledQuantity != 0 {
		t.Fatalf("expected claimed quantity released, got %d", orderItem.FulfilledQuantity)
	}
}

func TestDeleteFulfillmentOnlyPending(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 2)
	if _, err := env.fulfillment.UpdateFulfillment(fulfillment.ID, UpdateFulfillmentInput{
		Status: strPtr(constants.FulfillmentStatusProcessing),
	}); err != nil {
		t.Fatalf("update to processing failed: %v", err)
	}

	err := env.fulfillment.DeleteFulfillment(fulfillment.ID)
	if !errors.Is(err, ErrFulfillmentNotDeletable) {
		t.Fatalf("expected ErrFulfillmentNotDeletable, got %v", err)
	}
}

func TestListFulfillmentsFilters(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 10)
	provider := seedProvider(t, env.db, "")

	first := createTestFulfillment(t, env, order, 2)
	shipTestFulfillment(t, env, first.ID, provider, "TN20001")
	createTestFulfillment(t, env, order, 3)

	shippedOnly, total, err := env.fulfillment.ListFulfillments(repository.FulfillmentListFilter{
		Status: constants.FulfillmentStatusShipped,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(shippedOnly) != 1 || shippedOnly[0].ID != first.ID {
		t.Fatalf("unexpected shipped filter result: total=%d items=%+v", total, shippedOnly)
	}

	all, total, err := env.fulfillment.ListFulfillments(repository.FulfillmentListFilter{OrderID: order.ID})
	if err != nil {
		t.Fatalf("list by order failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("expected 2 fulfillments, got total=%d len=%d", total, len(all))
	}
}

func TestGetFulfillmentStats(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 10)
	createTestFulfillment(t, env, order, 2)
	createTestFulfillment(t, env, order, 3)

	stats, err := env.fulfillment.GetFulfillmentStats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("expected total 2, got %d", stats.Total)
	}
	if stats.ByStatus[constants.FulfillmentStatusPending] != 2 {
		t.Fatalf("expected 2 pending, got %+v", stats.ByStatus)
	}
}
