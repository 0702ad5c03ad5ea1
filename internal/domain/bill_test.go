package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBillStatus_IsValid(t *testing.T) {
	for _, s := range allBillStatuses() {
		assert.True(t, s.IsValid(), "status %s should be valid", s)
	}
	assert.False(t, BillStatus("SHIPPED").IsValid(), "unknown status should be invalid")
	assert.False(t, BillStatus("").IsValid(), "empty status should be invalid")
}

func TestBillStatus_IsTerminal(t *testing.T) {
	terminal := map[BillStatus]bool{
		BillStatusComplete:  true,
		BillStatusCancelled: true,
		BillStatusFailed:    true,
		BillStatusRefused:   true,
	}

	for _, s := range allBillStatuses() {
		assert.Equal(t, terminal[s], s.IsTerminal(), "IsTerminal(%s)", s)
	}
}

// TestCanTransition walks every ordered status pair against the
// expected lifecycle edges.
func TestCanTransition(t *testing.T) {
	allowed := map[BillStatus]map[BillStatus]bool{
		BillStatusWorking: {BillStatusPlaced: true},
		BillStatusPlaced:  {BillStatusPending: true, BillStatusPreProd: true},
		BillStatusPending: {
			BillStatusSoldOut: true,
			BillStatusPartial: true,
			BillStatusFailed:  true,
			BillStatusRefused: true,
		},
		BillStatusSoldOut: {BillStatusComplete: true, BillStatusPayback: true},
	}

	for _, from := range allBillStatuses() {
		for _, to := range allBillStatuses() {
			want := allowed[from][to]
			// Cancellation is reachable from every non-terminal state.
			if to == BillStatusCancelled && from != to && !from.IsTerminal() {
				want = true
			}
			got := CanTransition(from, to)
			assert.Equal(t, want, got, "CanTransition(%s, %s)", from, to)
		}
	}
}

func TestCanTransition_NoSelfLoop(t *testing.T) {
	for _, s := range allBillStatuses() {
		assert.False(t, CanTransition(s, s), "self transition %s should be rejected", s)
	}
}

func TestBill_IsFrozen(t *testing.T) {
	bill := &Bill{}
	assert.False(t, bill.IsFrozen(), "bill without accounting number is mutable")

	bill.IDNumber = "INV-2026-000042"
	assert.True(t, bill.IsFrozen(), "bill with accounting number is frozen")
}

func TestBill_RemainingAmount(t *testing.T) {
	bill := &Bill{Amount: 120.0, PaidAmount: 50.0}
	assert.InDelta(t, 70.0, bill.RemainingAmount(), 0.001)
}

func TestBill_ItemByCode(t *testing.T) {
	bill := &Bill{
		Items: []BillItem{
			{ItemCode: "SEAT1", Quantity: 2},
			{ItemCode: ShippingItemCode, Quantity: 1},
		},
	}

	item := bill.ItemByCode("SEAT1")
	if assert.NotNil(t, item) {
		assert.Equal(t, 2, item.Quantity)
	}
	assert.Nil(t, bill.ItemByCode("MISSING"))
}

func allBillStatuses() []BillStatus {
	return []BillStatus{
		BillStatusWorking, BillStatusPlaced, BillStatusPending,
		BillStatusSoldOut, BillStatusPartial, BillStatusComplete,
		BillStatusPreProd, BillStatusPayback, BillStatusCancelled,
		BillStatusFailed, BillStatusRefused,
	}
}
