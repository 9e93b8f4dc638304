package service

import (
	"testing"
	"time"

	"github.com/fulfill-next/internal/constants"
	"github.com/fulfill-next/internal/models"
)

func itemsWithStatuses(statuses ...string) []models.FulfillmentItem {
	items := make([]models.FulfillmentItem, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, models.FulfillmentItem{Status: status, Quantity: 1})
	}
	return items
}

func TestDeriveFulfillmentStatusFromItems(t *testing.T) {
	cases := []struct {
		name          string
		itemStatuses  []string
		currentStatus string
		want          string
	}{
		{
			name:          "all delivered",
			itemStatuses:  []string{constants.FulfillmentItemStatusDelivered, constants.FulfillmentItemStatusDelivered},
			currentStatus: constants.FulfillmentStatusOutForDelivery,
			want:          constants.FulfillmentStatusDelivered,
		},
		{
			name:          "all shipped or later",
			itemStatuses:  []string{constants.FulfillmentItemStatusShipped, constants.FulfillmentItemStatusDelivered},
			currentStatus: constants.FulfillmentStatusPacked,
			want:          constants.FulfillmentStatusShipped,
		},
		{
			name:          "all packed or later",
			itemStatuses:  []string{constants.FulfillmentItemStatusPacked, constants.FulfillmentItemStatusShipped},
			currentStatus: constants.FulfillmentStatusProcessing,
			want:          constants.FulfillmentStatusPacked,
		},
		{
			name:          "all picked promotes pending to processing",
			itemStatuses:  []string{constants.FulfillmentItemStatusPicked, constants.FulfillmentItemStatusPacked},
			currentStatus: constants.FulfillmentStatusPending,
			want:          constants.FulfillmentStatusProcessing,
		},
		{
			name:          "all picked leaves non-pending alone",
			itemStatuses:  []string{constants.FulfillmentItemStatusPicked, constants.FulfillmentItemStatusPicked},
			currentStatus: constants.FulfillmentStatusProcessing,
			want:          "",
		},
		{
			name:          "mixed pending blocks promotion",
			itemStatuses:  []string{constants.FulfillmentItemStatusPending, constants.FulfillmentItemStatusDelivered},
			currentStatus: constants.FulfillmentStatusProcessing,
			want:          "",
		},
		{
			name:          "side status breaks aggregation",
			itemStatuses:  []string{constants.FulfillmentItemStatusDelivered, constants.FulfillmentItemStatusDamaged},
			currentStatus: constants.FulfillmentStatusShipped,
			want:          "",
		},
		{
			name:          "no items",
			itemStatuses:  nil,
			currentStatus: constants.FulfillmentStatusPending,
			want:          "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveFulfillmentStatusFromItems(itemsWithStatuses(tc.itemStatuses...), tc.currentStatus)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCanTransitFulfillment(t *testing.T) {
	allowed := [][2]string{
		{constants.FulfillmentStatusPending, constants.FulfillmentStatusProcessing},
		{constants.FulfillmentStatusPending, constants.FulfillmentStatusPacked},
		{constants.FulfillmentStatusPending, constants.FulfillmentStatusShipped},
		{constants.FulfillmentStatusProcessing, constants.FulfillmentStatusShipped},
		{constants.FulfillmentStatusPacked, constants.FulfillmentStatusShipped},
		{constants.FulfillmentStatusShipped, constants.FulfillmentStatusInTransit},
		{constants.FulfillmentStatusInTransit, constants.FulfillmentStatusDelivered},
		{constants.FulfillmentStatusOutForDelivery, constants.FulfillmentStatusFailed},
		{constants.FulfillmentStatusProcessing, constants.FulfillmentStatusCanceled},
	}
	for _, pair := range allowed {
		if !canTransitFulfillment(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{constants.FulfillmentStatusShipped, constants.FulfillmentStatusPacked},
		{constants.FulfillmentStatusShipped, constants.FulfillmentStatusCanceled},
		{constants.FulfillmentStatusDelivered, constants.FulfillmentStatusReturned},
		{constants.FulfillmentStatusCanceled, constants.FulfillmentStatusPending},
	}
	for _, pair := range denied {
		if canTransitFulfillment(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be denied", pair[0], pair[1])
		}
	}

	// 同状态写入视为合法（幂等）
	if !canTransitFulfillment(constants.FulfillmentStatusShipped, constants.FulfillmentStatusShipped) {
		t.Fatalf("expected same-status transition to be allowed")
	}
}

func TestFulfillmentStatusForTrackingStatus(t *testing.T) {
	cases := map[string]string{
		constants.TrackingStatusPickedUp:       constants.FulfillmentStatusShipped,
		constants.TrackingStatusInTransit:      constants.FulfillmentStatusInTransit,
		constants.TrackingStatusOutForDelivery: constants.FulfillmentStatusOutForDelivery,
		constants.TrackingStatusDelivered:      constants.FulfillmentStatusDelivered,
	}
	for trackingStatus, want := range cases {
		got, ok := fulfillmentStatusForTrackingStatus(trackingStatus)
		if !ok || got != want {
			t.Fatalf("tracking %s: expected %s, got %s (ok=%v)", trackingStatus, want, got, ok)
		}
	}

	for _, trackingStatus := range []string{
		constants.TrackingStatusLabelCreated,
		constants.TrackingStatusException,
		constants.TrackingStatusFailedAttempt,
		constants.TrackingStatusLost,
	} {
		if _, ok := fulfillmentStatusForTrackingStatus(trackingStatus); ok {
			t.Fatalf("tracking %s should not map to a fulfillment status", trackingStatus)
		}
	}
}

func fulfillmentsWithStatuses(statuses ...string) []models.Fulfillment {
	fulfillments := make([]models.Fulfillment, 0, len(statuses))
	for _, status := range statuses {
		fulfillments = append(fulfillments, models.Fulfillment{Status: status})
	}
	return fulfillments
}

func TestCalcOrderStatus(t *testing.T) {
	cases := []struct {
		name          string
		statuses      []string
		currentStatus string
		want          string
	}{
		{
			name:          "all delivered",
			statuses:      []string{constants.FulfillmentStatusDelivered, constants.FulfillmentStatusDelivered},
			currentStatus: constants.OrderStatusProcessing,
			want:          constants.OrderStatusDelivered,
		},
		{
			name:          "all canceled or returned",
			statuses:      []string{constants.FulfillmentStatusCanceled, constants.FulfillmentStatusReturned},
			currentStatus: constants.OrderStatusProcessing,
			want:          constants.OrderStatusCanceled,
		},
		{
			name:          "mixed stays processing",
			statuses:      []string{constants.FulfillmentStatusDelivered, constants.FulfillmentStatusShipped},
			currentStatus: constants.OrderStatusConfirmed,
			want:          constants.OrderStatusProcessing,
		},
		{
			name:          "no change when already matching",
			statuses:      []string{constants.FulfillmentStatusShipped},
			currentStatus: constants.OrderStatusProcessing,
			want:          "",
		},
		{
			name:          "no fulfillments",
			statuses:      nil,
			currentStatus: constants.OrderStatusConfirmed,
			want:          "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calcOrderStatus(fulfillmentsWithStatuses(tc.statuses...), tc.currentStatus)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsFulfillmentOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	overdue := &models.Fulfillment{
		Status:                constants.FulfillmentStatusInTransit,
		EstimatedDeliveryDate: &past,
	}
	if !IsFulfillmentOverdue(overdue, now) {
		t.Fatalf("expected in_transit past estimate to be overdue")
	}

	delivered := &models.Fulfillment{
		Status:                constants.FulfillmentStatusDelivered,
		EstimatedDeliveryDate: &past,
	}
	if IsFulfillmentOverdue(delivered, now) {
		t.Fatalf("delivered fulfillment should never be overdue")
	}

	onTime := &models.Fulfillment{
		Status:                constants.FulfillmentStatusShipped,
		EstimatedDeliveryDate: &future,
	}
	if IsFulfillmentOverdue(onTime, now) {
		t.Fatalf("future estimate should not be overdue")
	}

	noEstimate := &models.Fulfillment{Status: constants.FulfillmentStatusShipped}
	if IsFulfillmentOverdue(noEstimate, now) {
		t.Fatalf("missing estimate should not be overdue")
	}
}

func TestFulfillmentProgress(t *testing.T) {
	items := []models.FulfillmentItem{
		{Quantity: 4, FulfilledQuantity: 4},
		{Quantity: 6, FulfilledQuantity: 3},
	}
	if got := FulfillmentProgress(items); got != 70 {
		t.Fatalf("expected progress 70, got %d", got)
	}
	if got := FulfillmentProgress(nil); got != 0 {
		t.Fatalf("expected progress 0 for no items, got %d", got)
	}
}

func TestItemNeedsAttention(t *testing.T) {
	now := time.Now()
	soon := now.Add(10 * 24 * time.Hour)
	far := now.Add(90 * 24 * time.Hour)

	damaged := &models.FulfillmentItem{QualityChecked: true, DamagedQuantity: 1}
	if !ItemNeedsAttention(damaged, now) {
		t.Fatalf("damaged item should need attention")
	}

	expiring := &models.FulfillmentItem{QualityChecked: true, ExpiryDate: &soon}
	if !ItemNeedsAttention(expiring, now) {
		t.Fatalf("expiring item should need attention")
	}

	unchecked := &models.FulfillmentItem{QualityChecked: false}
	if !ItemNeedsAttention(unchecked, now) {
		t.Fatalf("unchecked item should need attention")
	}

	healthy := &models.FulfillmentItem{QualityChecked: true, ExpiryDate: &far}
	if ItemNeedsAttention(healthy, now) {
		t.Fatalf("healthy item should not need attention")
	}
}
