package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/locks"
	"github.com/verzog/merchant/internal/pricing"
	"github.com/verzog/merchant/internal/shipping"
	"github.com/verzog/merchant/internal/tax"
	"github.com/verzog/merchant/internal/telemetry"
)

// BillStore is the persistence surface of the bill lifecycle.
type BillStore interface {
	Bill(ctx context.Context, id int64) (*domain.Bill, error)
	BillByTransactionID(ctx context.Context, transID string) (*domain.Bill, error)
	CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error)

	// UpdateBillStatus moves a bill between statuses, failing with a
	// domain ECONFLICT error when the stored status is not `from`.
	UpdateBillStatus(ctx context.Context, billID int64, from, to domain.BillStatus) error

	UpdateBillTotals(ctx context.Context, bill *domain.Bill) error
	SetBillIDNumber(ctx context.Context, billID int64, idNumber string) error
	SetBillPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error

	ListBillsByStatus(ctx context.Context, status domain.BillStatus, olderThan time.Time) ([]domain.Bill, error)

	// WithBillLock runs fn under the bill's cross-process advisory
	// lock, so only one process settles a given bill at a time.
	WithBillLock(ctx context.Context, billID int64, fn func() error) error
}

// BillService owns the bill lifecycle: transitions, pricing
// recalculation and freezing.
type BillService struct {
	store    BillStore
	catalog  *catalog.Resolver
	taxes    tax.Calculator
	quoter   shipping.Quoter
	discount pricing.Discount
	events   events.Publisher
	locks    *locks.Keyed
	logger   zerolog.Logger
}

// NewBillService wires the bill lifecycle service.
func NewBillService(store BillStore, resolver *catalog.Resolver, taxes tax.Calculator, quoter shipping.Quoter, discount pricing.Discount, publisher events.Publisher, keyed *locks.Keyed, logger zerolog.Logger) *BillService {
	return &BillService{
		store:    store,
		catalog:  resolver,
		taxes:    taxes,
		quoter:   quoter,
		discount: discount,
		events:   publisher,
		locks:    keyed,
		logger:   logger.With().Str("component", "bills").Logger(),
	}
}

// Get loads one bill with its lines.
func (s *BillService) Get(ctx context.Context, billID int64) (*domain.Bill, error) {
	return s.store.Bill(ctx, billID)
}

// GetByTransactionID loads the bill a gateway notification refers to.
func (s *BillService) GetByTransactionID(ctx context.Context, transID string) (*domain.Bill, error) {
	return s.store.BillByTransactionID(ctx, transID)
}

// Transition moves a bill along the lifecycle. Edges outside the
// transition table are refused with ErrInvalidTransition.
func (s *BillService) Transition(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error) {
	s.locks.Lock(billID)
	defer s.locks.Unlock(billID)
	return s.transitionLocked(ctx, billID, to)
}

// TransitionLocked is Transition for callers that already hold the
// bill's key lock, such as gateway notification processing.
func (s *BillService) TransitionLocked(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error) {
	return s.transitionLocked(ctx, billID, to)
}

func (s *BillService) transitionLocked(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error) {
	bill, err := s.store.Bill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(bill.Status, to) {
		return nil, domain.WrapError(domain.ErrInvalidTransition, domain.ECONFLICT, "bill.transition",
			"cannot move bill "+strconv.FormatInt(billID, 10)+" from "+string(bill.Status)+" to "+string(to))
	}
	if err := s.store.UpdateBillStatus(ctx, billID, bill.Status, to); err != nil {
		return nil, err
	}

	from := bill.Status
	bill.Status = to
	s.logger.Info().
		Int64("bill_id", billID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("bill transitioned")
	if telemetry.Business != nil {
		telemetry.Business.BillTransitions.WithLabelValues(string(from), string(to)).Inc()
	}

	subject := events.SubjectBillStatus
	if to == domain.BillStatusComplete {
		subject = events.SubjectBillCompleted
	}
	_ = s.events.Publish(subject, events.BillStatusEvent{
		BillID:        bill.ID,
		TransactionID: bill.TransactionID,
		From:          string(from),
		To:            string(to),
		Gateway:       bill.Gateway,
		Amount:        bill.Amount,
		OccurredAt:    time.Now().UTC(),
	})
	return bill, nil
}

// Cancel voids a bill. Customers may only abandon bills that have not
// entered payment; operators may cancel any non-terminal bill.
func (s *BillService) Cancel(ctx context.Context, billID int64, administrative bool) (*domain.Bill, error) {
	s.locks.Lock(billID)
	defer s.locks.Unlock(billID)

	bill, err := s.store.Bill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if !administrative {
		switch bill.Status {
		case domain.BillStatusWorking, domain.BillStatusPlaced:
		default:
			return nil, domain.Conflict("bill.cancel",
				"bill has entered payment and can only be cancelled by an operator")
		}
	}
	return s.transitionLocked(ctx, billID, domain.BillStatusCancelled)
}

// AssignIDNumber gives the bill its accounting number, freezing its
// pricing fields from then on.
func (s *BillService) AssignIDNumber(ctx context.Context, billID int64, idNumber string) error {
	if idNumber == "" {
		return domain.Invalid("bill.freeze", "accounting number must not be empty")
	}
	s.locks.Lock(billID)
	defer s.locks.Unlock(billID)

	bill, err := s.store.Bill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.IsFrozen() {
		return domain.WrapError(domain.ErrFrozenBill, domain.ECONFLICT, "bill.freeze",
			"bill already carries the accounting number "+bill.IDNumber)
	}
	if err := s.store.SetBillIDNumber(ctx, billID, idNumber); err != nil {
		return err
	}
	if telemetry.Business != nil {
		telemetry.Business.BillsFrozen.Inc()
	}
	return nil
}

// RecordPayment stores what the gateway reported received.
func (s *BillService) RecordPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error {
	return s.store.SetBillPayment(ctx, billID, paid, fee, onlineTransactionID)
}

// Recalculate reprices every line of a mutable bill from the current
// catalog, tax and shipping configuration. Bills that received an
// accounting number are frozen and refuse repricing.
func (s *BillService) Recalculate(ctx context.Context, billID int64) (*domain.Bill, error) {
	s.locks.Lock(billID)
	defer s.locks.Unlock(billID)

	bill, err := s.store.Bill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.IsFrozen() {
		return nil, domain.WrapError(domain.ErrFrozenBill, domain.ECONFLICT, "bill.recalculate",
			"bill "+strconv.FormatInt(billID, 10)+" is frozen")
	}
	if err := s.price(ctx, bill); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBillTotals(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListStuck returns bills sitting in a status since before the cutoff,
// for the sweep worker.
func (s *BillService) ListStuck(ctx context.Context, status domain.BillStatus, olderThan time.Time) ([]domain.Bill, error) {
	return s.store.ListBillsByStatus(ctx, status, olderThan)
}

// WithLock runs fn while holding both the bill's in-process key lock
// and the store's advisory lock, so the verify, transition and produce
// section is exclusive across processes too.
func (s *BillService) WithLock(ctx context.Context, billID int64, fn func() error) error {
	s.locks.Lock(billID)
	defer s.locks.Unlock(billID)
	return s.store.WithBillLock(ctx, billID, fn)
}

// price fills unit prices, line taxes, the shipping line and the bill
// totals in place. Product lines keep their quantity and customer
// data; everything money-related is derived fresh.
func (s *BillService) price(ctx context.Context, bill *domain.Bill) error {
	addr := shipping.Address{Country: bill.Country, Zip: bill.Zip}

	var (
		untaxedTotal float64
		taxTotal     float64
		taxedTotal   float64
		shipLines    []shipping.Line
		kept         []domain.BillItem
	)

	for i := range bill.Items {
		item := bill.Items[i]
		if item.Type != domain.BillItemProduct {
			continue
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}

		ci, err := s.catalog.Item(ctx, bill.CatalogID, item.ItemCode)
		if err != nil {
			return err
		}
		if ci.MaxDeliveryQuantity > 0 && item.Quantity > ci.MaxDeliveryQuantity {
			return domain.WrapError(ErrQuantityCapped, domain.EINVALID, "bill.price",
				"item "+item.ItemCode+" is capped at "+strconv.Itoa(ci.MaxDeliveryQuantity)+" per order")
		}

		unit, err := pricing.UnitPrice(ci.Tiers, item.Quantity)
		if err != nil {
			return err
		}
		lineUntaxed := pricing.Round(unit * float64(item.Quantity))
		taxed, err := s.taxes.Apply(ci.TaxCode, lineUntaxed)
		if err != nil {
			if !tax.IsUnknownRule(err) {
				return err
			}
			// Apply handed back the identity amount; a missing rule is a
			// configuration gap, not a reason to block the sale.
			s.logger.Warn().
				Str("item", item.ItemCode).
				Str("tax_code", ci.TaxCode).
				Msg("no tax rule for code, selling untaxed")
		}

		item.CatalogItemID = ci.ID
		item.Label = ci.Name
		item.UnitPrice = unit
		item.TotalPrice = lineUntaxed
		item.TaxAmount = pricing.Round(taxed.Tax)

		untaxedTotal += lineUntaxed
		taxTotal += item.TaxAmount
		taxedTotal += pricing.Round(taxed.Taxed)

		shipLines = append(shipLines, shipping.Line{
			ItemCode:  item.ItemCode,
			Quantity:  item.Quantity,
			Untaxed:   lineUntaxed,
			Taxed:     taxed.Taxed,
			ItemValue: ci.ShippingValue,
		})
		kept = append(kept, item)
	}

	if len(kept) == 0 {
		return ErrEmptyCart
	}

	shipCharge, err := s.quoter.Quote(addr, shipLines)
	if err != nil {
		return err
	}
	if shipCharge.Taxed != 0 {
		kept = append(kept, domain.BillItem{
			BillID:     bill.ID,
			Type:       domain.BillItemShipping,
			ItemCode:   domain.ShippingItemCode,
			Label:      "Shipping",
			Quantity:   1,
			UnitPrice:  shipCharge.Untaxed,
			TotalPrice: shipCharge.Untaxed,
			TaxAmount:  shipCharge.Tax,
		})
		taxTotal += shipCharge.Tax
	}

	grossTaxed := pricing.Round(taxedTotal + shipCharge.Taxed)
	discount := s.discount.Amount(grossTaxed)

	bill.Items = kept
	bill.UntaxedAmount = pricing.Round(untaxedTotal)
	bill.TaxAmount = pricing.Round(taxTotal)
	bill.ShippingAmount = shipCharge.Taxed
	bill.DiscountAmount = discount
	bill.Amount = pricing.Round(grossTaxed - discount)
	return nil
}
