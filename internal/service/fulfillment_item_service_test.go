package service

import (
	"errors"
	"testing"
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"
	"github.com/fulfill-next/internal/repository"
)

func TestUpdateItemStatusMainLine(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 3)
	itemID := fulfillment.Items[0].ID

	// 主线不可跳级
	_, err := env.item.UpdateItemStatus(itemID, constants.FulfillmentItemStatusShipped)
	if !errors.Is(err, ErrStatusTransitionInvalid) {
		t.Fatalf("expected ErrStatusTransitionInvalid, got %v", err)
	}

	picked, err := env.item.UpdateItemStatus(itemID, constants.FulfillmentItemStatusPicked)
	if err != nil {
		t.Fatalf("update to picked failed: %v", err)
	}
	if picked.Status != constants.FulfillmentItemStatusPicked {
		t.Fatalf("expected picked, got %s", picked.Status)
	}

	// 全部明细达到 picked 后，pending 履约单聚合推进到 processing
	reloaded, err := env.fulfillment.GetFulfillment(fulfillment.ID)
	if err != nil {
		t.Fatalf("get fulfillment failed: %v", err)
	}
	if reloaded.Status != constants.FulfillmentStatusProcessing {
		t.Fatalf("expected fulfillment processing, got %s", reloaded.Status)
	}

	// 回退被拒绝
	_, err = env.item.UpdateItemStatus(itemID, constants.FulfillmentItemStatusPending)
	if !errors.Is(err, ErrStatusTransitionInvalid) {
		t.Fatalf("expected ErrStatusTransitionInvalid on rollback, got %v", err)
	}

	_, err = env.item.UpdateItemStatus(itemID, "teleported")
	if !errors.Is(err, ErrItemStatusInvalid) {
		t.Fatalf("expected ErrItemStatusInvalid, got %v", err)
	}
}

func TestItemDeliveryAggregatesToOrder(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	provider := seedProvider(t, env.db, "")
	fulfillment := createTestFulfillment(t, env, order, 3)
	itemID := fulfillment.Items[0].ID

	shipTestFulfillment(t, env, fulfillment.ID, provider, "TN30001")
	for _, status := range []string{
		constants.FulfillmentItemStatusPicked,
		constants.FulfillmentItemStatusPacked,
		constants.FulfillmentItemStatusShipped,
		constants.FulfillmentItemStatusDelivered,
	} {
		if _, err := env.item.UpdateItemStatus(itemID, status); err != nil {
			t.Fatalf("update to %s failed: %v", status, err)
		}
	}

	item, err := env.item.GetItem(itemID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if item.FulfilledQuantity != item.Quantity {
		t.Fatalf("expected delivered item fully fulfilled, got %d/%d", item.FulfilledQuantity, item.Quantity)
	}

	reloaded, err := env.fulfillment.GetFulfillment(fulfillment.ID)
	if err != nil {
		t.Fatalf("get fulfillment failed: %v", err)
	}
	if reloaded.Status != constants.FulfillmentStatusDelivered {
		t.Fatalf("expected fulfillment delivered, got %s", reloaded.Status)
	}
	if reloaded.ActualDeliveryDate == nil {
		t.Fatalf("expected actual delivery date to be set")
	}

	var reloadedOrder models.Order
	if err := env.db.First(&reloadedOrder, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloadedOrder.Status != constants.OrderStatusDelivered {
		t.Fatalf("expected order delivered, got %s", reloadedOrder.Status)
	}
}

func TestUpdateFulfilledQuantityBounds(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 3)
	itemID := fulfillment.Items[0].ID

	item, err := env.item.UpdateFulfilledQuantity(itemID, 2)
	if err != nil {
		t.Fatalf("update fulfilled quantity failed: %v", err)
	}
	if item.FulfilledQuantity != 2 {
		t.Fatalf("expected fulfilled 2, got %d", item.FulfilledQuantity)
	}

	if _, err := env.item.UpdateFulfilledQuantity(itemID, 4); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange, got %v", err)
	}
	if _, err := env.item.UpdateFulfilledQuantity(itemID, -1); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange for negative, got %v", err)
	}
}

func TestPerformQualityCheckOnce(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 5)
	fulfillment := createTestFulfillment(t, env, order, 3)
	itemID := fulfillment.Items[0].ID

	item, err := env.item.PerformQualityCheck(itemID, "qa-wang", "外观完好")
	if err != nil {
		t.Fatalf("quality check failed: %v", err)
	}
	if !item.QualityChecked || item.QualityCheckedBy != "qa-wang" || item.QualityCheckedAt == nil {
		t.Fatalf("unexpected quality check result: %+v", item)
	}

	if _, err := env.item.PerformQualityCheck(itemID, "qa-li", ""); !errors.Is(err, ErrQualityCheckDone) {
		t.Fatalf("expected ErrQualityCheckDone, got %v", err)
	}
}

func TestAddDamagedAndMissingQuantityBounds(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 10)
	fulfillment := createTestFulfillment(t, env, order, 5)
	itemID := fulfillment.Items[0].ID

	item, err := env.item.AddDamagedQuantity(itemID, 2)
	if err != nil {
		t.Fatalf("add damaged failed: %v", err)
	}
	if item.DamagedQuantity != 2 || item.Status != constants.FulfillmentItemStatusDamaged {
		t.Fatalf("unexpected damaged result: %+v", item)
	}

	item, err = env.item.AddMissingQuantity(itemID, 1)
	if err != nil {
		t.Fatalf("add missing failed: %v", err)
	}
	if item.MissingQuantity != 1 || item.RemainingIntactQuantity() != 2 {
		t.Fatalf("unexpected missing result: %+v", item)
	}

	// 超过剩余完好数量被拒绝
	if _, err := env.item.AddDamagedQuantity(itemID, 3); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange, got %v", err)
	}
	if _, err := env.item.AddMissingQuantity(itemID, 0); !errors.Is(err, ErrQuantityOutOfRange) {
		t.Fatalf("expected ErrQuantityOutOfRange for zero, got %v", err)
	}
}

func TestListNeedsAttention(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 10, 10)
	fulfillment, err := env.fulfillment.CreateFulfillment(CreateFulfillmentInput{
		OrderID: order.ID,
		Items: []CreateFulfillmentItemInput{
			{OrderItemID: order.Items[0].ID, Quantity: 4},
			{OrderItemID: order.Items[1].ID, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("create fulfillment failed: %v", err)
	}

	// 第二条明细质检通过且效期充足，不应出现在关注列表
	farExpiry := time.Now().Add(180 * 24 * time.Hour)
	if err := env.db.Model(&models.FulfillmentItem{}).
		Where("id = ?", fulfillment.Items[1].ID).
		Updates(map[string]interface{}{"quality_checked": true, "expiry_date": farExpiry}).Error; err != nil {
		t.Fatalf("prepare second item failed: %v", err)
	}
	if _, err := env.item.AddDamagedQuantity(fulfillment.Items[0].ID, 1); err != nil {
		t.Fatalf("add damaged failed: %v", err)
	}

	items, total, err := env.item.ListNeedsAttention(repository.NeedsAttentionFilter{
		FulfillmentID: fulfillment.ID,
	})
	if err != nil {
		t.Fatalf("list needs attention failed: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != fulfillment.Items[0].ID {
		t.Fatalf("unexpected needs-attention result: total=%d items=%+v", total, items)
	}
}

func TestItemSideBranchesReachableBeforeShip(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 9)

	// 旁路状态从发货前的各状态直接可达
	for _, target := range []string{
		constants.FulfillmentItemStatusReturned,
		constants.FulfillmentItemStatusDamaged,
		constants.FulfillmentItemStatusMissing,
		constants.FulfillmentItemStatusCanceled,
	} {
		fulfillment := createTestFulfillment(t, env, order, 1)
		item, err := env.item.UpdateItemStatus(fulfillment.Items[0].ID, target)
		if err != nil {
			t.Fatalf("pending -> %s failed: %v", target, err)
		}
		if item.Status != target {
			t.Fatalf("expected %s, got %s", target, item.Status)
		}
	}

	// 已发货的明细同样可以整件取消
	fulfillment := createTestFulfillment(t, env, order, 1)
	itemID := fulfillment.Items[0].ID
	for _, status := range []string{
		constants.FulfillmentItemStatusPicked,
		constants.FulfillmentItemStatusPacked,
		constants.FulfillmentItemStatusShipped,
	} {
		if _, err := env.item.UpdateItemStatus(itemID, status); err != nil {
			t.Fatalf("advance to %s failed: %v", status, err)
		}
	}
	canceled, err := env.item.UpdateItemStatus(itemID, constants.FulfillmentItemStatusCanceled)
	if err != nil {
		t.Fatalf("shipped -> canceled failed: %v", err)
	}
	if canceled.Status != constants.FulfillmentItemStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}

	// 终态出发仍被拒绝
	_, err = env.item.UpdateItemStatus(itemID, constants.FulfillmentItemStatusDamaged)
	if !errors.Is(err, ErrStatusTransitionInvalid) {
		t.Fatalf("expected ErrStatusTransitionInvalid from canceled, got %v", err)
	}
}

func TestItemMutationsResyncFulfillment(t *testing.T) {
	env := setupServiceTest(t)
	order := seedOrder(t, env.db, constants.OrderStatusConfirmed, constants.PaymentStatusPaid, 6)

	// 明细已拣货但履约单仍为 pending（绕过服务直接写库构造）
	prepare := func() *models.Fulfillment {
		fulfillment := createTestFulfillment(t, env, order, 1)
		if err := env.db.Model(&models.FulfillmentItem{}).
			Where("id = ?", fulfillment.Items[0].ID).
			Update("status", constants.FulfillmentItemStatusPicked).Error; err != nil {
			t.Fatalf("prepare item status failed: %v", err)
		}
		return fulfillment
	}
	expectProcessing := func(fulfillmentID uint, mutation string) {
		reloaded, err := env.fulfillment.GetFulfillment(fulfillmentID)
		if err != nil {
			t.Fatalf("get fulfillment failed: %v", err)
		}
		if reloaded.Status != constants.FulfillmentStatusProcessing {
			t.Fatalf("expected processing after %s, got %s", mutation, reloaded.Status)
		}
	}

	f1 := prepare()
	if _, err := env.item.PerformQualityCheck(f1.Items[0].ID, "质检员A", ""); err != nil {
		t.Fatalf("quality check failed: %v", err)
	}
	expectProcessing(f1.ID, "quality check")

	f2 := prepare()
	if _, err := env.item.UpdateFulfilledQuantity(f2.Items[0].ID, 1); err != nil {
		t.Fatalf("update fulfilled quantity failed: %v", err)
	}
	expectProcessing(f2.ID, "fulfilled quantity update")
}
