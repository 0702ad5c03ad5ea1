// Package production turns paid bill lines into delivered product
// instances. Each catalog item names a handler; the controller
// dispatches bill lines to handlers and records what they deliver.
package production

import (
	"context"

	"github.com/verzog/merchant/internal/domain"
)

// Feedback is what a handler wants said about a production run, split
// by audience.
type Feedback struct {
	// Public is shown to the purchaser on the confirmation page.
	Public string
	// Private goes into the purchaser's confirmation email.
	Private string
	// SalesAdmin goes to the operator's sales notification.
	SalesAdmin string
}

// Context carries everything a handler may need about the line being
// produced.
type Context struct {
	Bill        *domain.Bill
	Item        *domain.BillItem
	CatalogItem *domain.CatalogItem
	Customer    *domain.Customer

	// Params is the catalog item's decoded handler configuration.
	Params map[string]string
}

// Handler produces one kind of catalog item.
type Handler interface {
	// Name is the registry key referenced by catalog items.
	Name() string

	// ProducePrepay runs when the order is placed, before payment.
	// It must be idempotent and change nothing irreversible; its role
	// is early feedback such as recognizing the purchaser's account.
	ProducePrepay(ctx context.Context, pctx *Context) (*Feedback, error)

	// ProducePostpay runs once payment is confirmed and returns the
	// product instances to record. The controller persists them.
	ProducePostpay(ctx context.Context, pctx *Context) ([]domain.Product, *Feedback, error)

	// Validate checks a catalog item's handler configuration and
	// files findings into the report under the item's code.
	Validate(ctx context.Context, item *domain.CatalogItem, report *ValidationReport)

	// AssignSeat binds a delivered instance to an account.
	AssignSeat(ctx context.Context, product *domain.Product, accountID int64) error

	// ReleaseSeat unbinds a delivered instance.
	ReleaseSeat(ctx context.Context, product *domain.Product) error
}

// Base provides no-op defaults for the optional handler capabilities,
// so simple handlers implement only what they need.
type Base struct{}

func (Base) ProducePrepay(ctx context.Context, pctx *Context) (*Feedback, error) {
	return &Feedback{}, nil
}

func (Base) Validate(ctx context.Context, item *domain.CatalogItem, report *ValidationReport) {}

func (Base) AssignSeat(ctx context.Context, product *domain.Product, accountID int64) error {
	return domain.Errorf(domain.ENOTIMPL, "production.assignseat", "handler does not support seat assignment")
}

func (Base) ReleaseSeat(ctx context.Context, product *domain.Product) error {
	return domain.Errorf(domain.ENOTIMPL, "production.releaseseat", "handler does not support seat release")
}
