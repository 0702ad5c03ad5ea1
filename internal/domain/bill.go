package domain

import (
	"time"
)

// BillStatus tracks a bill through its lifecycle, from cart assembly to
// final settlement.
type BillStatus string

const (
	// BillStatusWorking is a cart under construction, not yet submitted.
	BillStatusWorking BillStatus = "WORKING"

	// BillStatusPlaced is a submitted order awaiting payment initiation.
	BillStatusPlaced BillStatus = "PLACED"

	// BillStatusPending means payment was initiated and the gateway has
	// not yet confirmed the outcome.
	BillStatusPending BillStatus = "PENDING"

	// BillStatusSoldOut means payment is confirmed. Production runs from
	// this state.
	BillStatusSoldOut BillStatus = "SOLDOUT"

	// BillStatusPartial means part of the expected amount was received.
	// Requires operator action before production.
	BillStatusPartial BillStatus = "PARTIAL"

	// BillStatusComplete means payment was confirmed and all items were
	// produced. Terminal.
	BillStatusComplete BillStatus = "COMPLETE"

	// BillStatusPreProd means goods were produced before payment cleared,
	// on operator decision.
	BillStatusPreProd BillStatus = "PREPROD"

	// BillStatusPayback means the customer is owed a refund.
	BillStatusPayback BillStatus = "PAYBACK"

	// BillStatusCancelled is an abandoned or administratively voided
	// bill. Terminal.
	BillStatusCancelled BillStatus = "CANCELLED"

	// BillStatusFailed means the gateway reported a definitive payment
	// failure. Terminal.
	BillStatusFailed BillStatus = "FAILED"

	// BillStatusRefused means the payment was rejected (wrong recipient
	// account, refused card). Terminal.
	BillStatusRefused BillStatus = "REFUSED"
)

// IsValid returns true for a known bill status.
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusWorking, BillStatusPlaced, BillStatusPending,
		BillStatusSoldOut, BillStatusPartial, BillStatusComplete,
		BillStatusPreProd, BillStatusPayback, BillStatusCancelled,
		BillStatusFailed, BillStatusRefused:
		return true
	}
	return false
}

// IsTerminal returns true for statuses that accept no further transition.
func (s BillStatus) IsTerminal() bool {
	switch s {
	case BillStatusComplete, BillStatusCancelled, BillStatusFailed, BillStatusRefused:
		return true
	}
	return false
}

// billTransitions enumerates the forward edges of the lifecycle.
// Cancellation of any non-terminal bill is handled separately in
// CanTransition so the table stays readable.
var billTransitions = map[BillStatus][]BillStatus{
	BillStatusWorking: {BillStatusPlaced},
	BillStatusPlaced:  {BillStatusPending, BillStatusPreProd},
	BillStatusPending: {BillStatusSoldOut, BillStatusPartial, BillStatusFailed, BillStatusRefused},
	BillStatusSoldOut: {BillStatusComplete, BillStatusPayback},
}

// CanTransition reports whether a bill may move from one status to
// another. Any non-terminal bill may be cancelled; every other edge
// must appear in the lifecycle table.
func CanTransition(from, to BillStatus) bool {
	if from == to {
		return false
	}
	if to == BillStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range billTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Bill lifecycle errors.
var (
	// ErrInvalidTransition indicates a lifecycle edge outside the table.
	ErrInvalidTransition = &Error{
		Code:    ECONFLICT,
		Message: "Bill status transition not permitted",
	}

	// ErrFrozenBill indicates an attempt to recalculate a bill that has
	// already been assigned an accounting number.
	ErrFrozenBill = &Error{
		Code:    ECONFLICT,
		Message: "Bill is frozen: accounting number already assigned",
	}

	// ErrPaymentAlreadyProcessed indicates a duplicate gateway
	// notification. Not a failure: the first delivery won.
	ErrPaymentAlreadyProcessed = &Error{
		Code:    ECONFLICT,
		Message: "Payment notification already processed",
	}
)

// Bill is one customer order with its lifecycle state, pricing totals
// and gateway bookkeeping. Amounts are in currency units.
type Bill struct {
	ID         int64
	CustomerID int64
	CatalogID  int64

	// TransactionID is the unique uppercase token identifying the bill
	// to payment gateways. Gateways echo it back in notifications.
	TransactionID string

	// OnlineTransactionID is the gateway-side transaction reference,
	// recorded when a notification is confirmed.
	OnlineTransactionID string

	// IDNumber is the accounting number. Once set, pricing fields are
	// frozen and recalculation is refused.
	IDNumber string

	Status   BillStatus
	Gateway  string
	Currency string

	// Country and Zip drive shipping zone resolution.
	Country string
	Zip     string

	// Untaxed order total, before shipping and discount.
	UntaxedAmount float64
	// Tax collected across all lines.
	TaxAmount float64
	// Shipping charge, tax included.
	ShippingAmount float64
	// Discount subtracted from the taxed total.
	DiscountAmount float64
	// Amount is the final taxed total the customer owes.
	Amount float64
	// PaidAmount is what the gateway reported received.
	PaidAmount float64
	// PaymentFee is the gateway's cut, informational.
	PaymentFee float64

	Items []BillItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RemainingAmount is what the customer still owes.
func (b *Bill) RemainingAmount() float64 {
	return b.Amount - b.PaidAmount
}

// IsFrozen reports whether the bill received an accounting number.
// Frozen bills refuse recalculation.
func (b *Bill) IsFrozen() bool {
	return b.IDNumber != ""
}

// ItemByCode returns the first bill line carrying the given catalog
// item code, or nil.
func (b *Bill) ItemByCode(code string) *BillItem {
	for i := range b.Items {
		if b.Items[i].ItemCode == code {
			return &b.Items[i]
		}
	}
	return nil
}

// BillItemType discriminates ordinary product lines from synthetic ones.
type BillItemType string

const (
	// BillItemProduct is an ordered catalog item.
	BillItemProduct BillItemType = "PRODUCT"
	// BillItemShipping is the synthetic shipping line.
	BillItemShipping BillItemType = "SHIPPING"
)

// BillItem is one line of a bill.
type BillItem struct {
	ID     int64
	BillID int64

	Type BillItemType

	// ItemCode references the catalog item. "_SHIPPING" for the
	// synthetic shipping line.
	ItemCode      string
	CatalogItemID int64

	Label    string
	Quantity int

	// UnitPrice is the effective untaxed unit price after tier pricing.
	UnitPrice float64
	// TotalPrice is untaxed, UnitPrice times Quantity.
	TotalPrice float64
	// TaxAmount is the tax collected on this line.
	TaxAmount float64

	// Produced marks a line that has been fulfilled.
	Produced bool
	// ProductionError carries the handler failure, if production of
	// this line failed.
	ProductionError string

	// CustomerData carries per-line form answers forwarded to the
	// production handler.
	CustomerData map[string]string
}

// ShippingItemCode is the reserved catalog code of synthetic shipping lines.
const ShippingItemCode = "_SHIPPING"
