package domain

import "time"

// ProductStatus tracks a produced instance through its life.
type ProductStatus string

const (
	// ProductStatusActive is a live, usable product instance.
	ProductStatusActive ProductStatus = "ACTIVE"
	// ProductStatusExpired means the instance ran past its end date.
	ProductStatusExpired ProductStatus = "EXPIRED"
	// ProductStatusDeleted is a soft-deleted instance, restorable.
	ProductStatusDeleted ProductStatus = "DELETED"
)

// Product is one unit delivered by production: a seat, a license, an
// enrolment. It stays linked to the bill line that bought it.
type Product struct {
	ID         int64
	CustomerID int64
	BillItemID int64

	CatalogItemID int64
	ItemCode      string

	// Reference is the handler-assigned instance identifier, unique
	// per handler (a seat code, a license key).
	Reference string

	Status ProductStatus

	StartDate time.Time
	// EndDate zero means no expiry.
	EndDate time.Time

	// ExtraData is handler-specific instance state.
	ExtraData map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt time.Time
}

// IsRunning reports whether the instance is active at the given time.
func (p *Product) IsRunning(at time.Time) bool {
	if p.Status != ProductStatusActive {
		return false
	}
	if at.Before(p.StartDate) {
		return false
	}
	if !p.EndDate.IsZero() && at.After(p.EndDate) {
		return false
	}
	return true
}

// ProductEventType names the lifecycle events recorded against a product.
type ProductEventType string

const (
	ProductEventCreated   ProductEventType = "CREATED"
	ProductEventAssigned  ProductEventType = "ASSIGNED"
	ProductEventReleased  ProductEventType = "RELEASED"
	ProductEventDeleted   ProductEventType = "DELETED"
	ProductEventRestored  ProductEventType = "RESTORED"
	ProductEventDestroyed ProductEventType = "DESTROYED"
)

// ProductEvent is one audit entry in a product's history. Every
// production run records at least the creation event.
type ProductEvent struct {
	ID        int64
	ProductID int64

	Type ProductEventType

	// Actor identifies who triggered the event, 0 for the system.
	Actor int64

	Detail string

	CreatedAt time.Time
}
