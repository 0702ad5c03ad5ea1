package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/production"
)

// fakeBills holds a handful of bills and applies transitions the way
// the bill service does, minus persistence.
type fakeBills struct {
	mu    sync.Mutex
	bills map[string]*domain.Bill
}

func newFakeBills(bills ...*domain.Bill) *fakeBills {
	byToken := make(map[string]*domain.Bill, len(bills))
	for _, bill := range bills {
		byToken[bill.TransactionID] = bill
	}
	return &fakeBills{bills: byToken}
}

func (f *fakeBills) GetByTransactionID(ctx context.Context, transID string) (*domain.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bill, ok := f.bills[transID]
	if !ok {
		return nil, domain.NotFound("bill.get", "bill", transID)
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeBills) TransitionLocked(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bill := range f.bills {
		if bill.ID != billID {
			continue
		}
		if !domain.CanTransition(bill.Status, to) {
			return nil, domain.ErrInvalidTransition
		}
		bill.Status = to
		copied := *bill
		return &copied, nil
	}
	return nil, domain.NotFound("bill.get", "bill", "")
}

func (f *fakeBills) RecordPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bill := range f.bills {
		if bill.ID == billID {
			bill.PaidAmount = paid
			bill.PaymentFee = fee
			bill.OnlineTransactionID = onlineTransactionID
			return nil
		}
	}
	return domain.NotFound("bill.update", "bill", "")
}

func (f *fakeBills) WithLock(ctx context.Context, billID int64, fn func() error) error {
	return fn()
}

func (f *fakeBills) status(transID string) domain.BillStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bills[transID].Status
}

// fakeProducer counts production runs and can simulate partial
// failure.
type fakeProducer struct {
	mu     sync.Mutex
	runs   int
	failed map[string]string
}

func (f *fakeProducer) RunPostpay(ctx context.Context, bill *domain.Bill) (*production.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	return &production.Result{Failed: f.failed}, nil
}

func (f *fakeProducer) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

// notifStore keeps notifications in memory with the same uniqueness
// rule the real store enforces.
type notifStore struct {
	mu     sync.Mutex
	rows   map[string]*domain.Notification
	nextID int64
}

func newNotifStore() *notifStore {
	return &notifStore{rows: make(map[string]*domain.Notification)}
}

func (s *notifStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := n.Gateway + "/" + n.ExternalID
	if _, exists := s.rows[key]; exists {
		return domain.Conflict("notification.create", "notification already recorded")
	}
	s.nextID++
	n.ID = s.nextID
	copied := *n
	s.rows[key] = &copied
	return nil
}

func (s *notifStore) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := n.Gateway + "/" + n.ExternalID
	if _, exists := s.rows[key]; !exists {
		return domain.NotFound("notification.update", "notification", key)
	}
	copied := *n
	s.rows[key] = &copied
	return nil
}

func (s *notifStore) Notification(ctx context.Context, gateway, externalID string) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := gateway + "/" + externalID
	row, exists := s.rows[key]
	if !exists {
		return nil, domain.NotFound("notification.get", "notification", key)
	}
	copied := *row
	return &copied, nil
}

func (s *notifStore) get(gateway, externalID string) *domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[gateway+"/"+externalID]
}

// harness bundles a processor over the fakes.
type harness struct {
	bills    *fakeBills
	producer *fakeProducer
	store    *notifStore
	proc     *Processor
}

func newHarness(bills ...*domain.Bill) *harness {
	h := &harness{
		bills:    newFakeBills(bills...),
		producer: &fakeProducer{},
		store:    newNotifStore(),
	}
	h.proc = NewProcessor(h.bills, h.producer, h.store, zerolog.Nop())
	return h
}

func placedBill(transID string, amount float64) *domain.Bill {
	return &domain.Bill{
		ID:            1,
		TransactionID: transID,
		Status:        domain.BillStatusPlaced,
		Gateway:       "paypal",
		Currency:      "EUR",
		Amount:        amount,
	}
}
