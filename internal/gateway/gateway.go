// Package gateway turns payment provider callbacks into bill
// transitions. Each provider gets an Adapter that parses and verifies
// its wire format, then hands the verified facts to the shared
// Processor which owns deduplication, the status walk and production.
package gateway

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/production"
)

// Bills is the slice of the bill service the gateways drive.
type Bills interface {
	GetByTransactionID(ctx context.Context, transID string) (*domain.Bill, error)
	TransitionLocked(ctx context.Context, billID int64, to domain.BillStatus) (*domain.Bill, error)
	RecordPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error
	WithLock(ctx context.Context, billID int64, fn func() error) error
}

// Producer runs post payment production for a paid bill.
type Producer interface {
	RunPostpay(ctx context.Context, bill *domain.Bill) (*production.Result, error)
}

// Store persists notification intake rows. CreateNotification must
// enforce uniqueness of (Gateway, ExternalID) and return an ECONFLICT
// error on a redelivery; Notification loads the stored row so the
// processor can tell a settled verdict from an attempt that died
// before verification finished.
type Store interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	UpdateNotification(ctx context.Context, n *domain.Notification) error
	Notification(ctx context.Context, gateway, externalID string) (*domain.Notification, error)
}

// PaymentRequest tells the front end how to send the customer to the
// provider: a plain redirect when Fields is empty, a form post
// otherwise.
type PaymentRequest struct {
	URL    string     `json:"url"`
	Method string     `json:"method"`
	Fields url.Values `json:"fields,omitempty"`
}

// Outcome is what an adapter reports back to the webhook handler.
// Adapters return a nil error for anything that should still be
// acknowledged to the provider, including rejections and redeliveries.
type Outcome struct {
	Notification *domain.Notification
	Bill         *domain.Bill
	// Duplicate marks a redelivered notification that changed nothing.
	Duplicate bool
}

// Adapter verifies one provider's callback format and applies it.
type Adapter interface {
	// Name is the gateway identifier stored on bills, such as "paypal".
	Name() string
	// BuildPaymentRequest returns the provider specific redirect for a
	// placed bill.
	BuildPaymentRequest(ctx context.Context, bill *domain.Bill) (*PaymentRequest, error)
	// HandleReturn processes the customer's interactive return trip.
	// It typically walks the bill PLACED to PENDING and is a no-op when
	// a notification already moved the bill further.
	HandleReturn(ctx context.Context, transID string) (*domain.Bill, error)
	// HandleNotification processes one provider callback. Errors are
	// reserved for infrastructure failures where a retry can help.
	HandleNotification(ctx context.Context, r *http.Request) (*Outcome, error)
}

// Registry holds the configured payment adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same name twice is a
// programming error.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.Name()]; exists {
		panic("gateway: adapter already registered: " + a.Name())
	}
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a gateway name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, domain.NotFound("gateway.get", "payment gateway", name)
	}
	return a, nil
}

// Names lists the registered gateways in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
