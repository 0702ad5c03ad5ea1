package domain

import (
	"net/url"
	"strings"
	"time"
)

// Catalog is a sellable item collection. A catalog either stands alone
// or is a slave of a master catalog, in which case items missing
// locally are resolved from the master.
type Catalog struct {
	ID          int64
	Name        string
	Description string

	// MasterID is the master catalog this one shadows, 0 for a
	// standalone or master catalog.
	MasterID int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSlave reports whether item lookups should fall back to a master.
func (c *Catalog) IsSlave() bool {
	return c.MasterID != 0
}

// CatalogItem is one sellable entry. Pricing is tiered by quantity;
// production behaviour is selected by the handler parameters.
type CatalogItem struct {
	ID        int64
	CatalogID int64

	// Code is the short unique reference used on bill lines and in
	// production feedback.
	Code string

	Name        string
	Description string

	// TaxCode selects the tax rule applied to this item's prices.
	TaxCode string

	// Tiers give the untaxed unit price per quantity bracket, in
	// order. The last tier is open-ended.
	Tiers []PriceTier

	// MaxDeliveryQuantity caps a single order line, 0 for unlimited.
	MaxDeliveryQuantity int

	// Eligibility constrains who may buy the item.
	Eligibility ItemEligibility

	// HandlerParams is the urlencoded production configuration, with
	// the reserved "handler" key naming the production handler.
	HandlerParams string

	// PackSize is how many units one quantity of this item delivers.
	PackSize int

	// ShippingValue is the per-item flat shipping charge used when the
	// matching zone rule carries no formula.
	ShippingValue float64

	Leaflet string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemEligibility constrains the audience of a catalog item.
type ItemEligibility string

const (
	// EligibleAll items are sold to everyone.
	EligibleAll ItemEligibility = "ALL"
	// EligibleLoggedIn items require an authenticated customer.
	EligibleLoggedIn ItemEligibility = "LOGGEDIN"
	// EligibleGuest items are for anonymous checkout only.
	EligibleGuest ItemEligibility = "GUEST"
)

// PriceTier is one quantity bracket of an item's price schedule.
// A bracket covers quantities in [From, From+Range); a zero Range
// leaves the bracket open-ended.
type PriceTier struct {
	From  int
	Range int
	Price float64
}

// Covers reports whether the bracket applies to the given quantity.
func (t PriceTier) Covers(qty int) bool {
	if qty < t.From {
		return false
	}
	if t.Range == 0 {
		return true
	}
	return qty < t.From+t.Range
}

// HandlerName extracts the production handler name from the item's
// handler parameters. Empty string means the item needs no production.
func (ci *CatalogItem) HandlerName() string {
	return ci.DecodedHandlerParams()["handler"]
}

// DecodedHandlerParams parses the urlencoded handler configuration.
// Malformed pairs are skipped rather than failing the whole item.
func (ci *CatalogItem) DecodedHandlerParams() map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(ci.HandlerParams, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		params[key] = value
	}
	return params
}

// UnitSize returns the number of units delivered per ordered quantity,
// defaulting to one.
func (ci *CatalogItem) UnitSize() int {
	if ci.PackSize <= 0 {
		return 1
	}
	return ci.PackSize
}
