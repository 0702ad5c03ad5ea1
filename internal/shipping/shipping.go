// Package shipping computes the shipping charge of an order from the
// operator's zone table. An order address resolves to one zone; the
// zone either carries a whole-bill amount or per-item rules.
package shipping

import (
	"github.com/verzog/merchant/internal/tax"
)

// DefaultZoneCode is the catch-all zone, consulted only when no other
// zone matches the address.
const DefaultZoneCode = "00"

// Address is the destination evaluated against zone patterns.
type Address struct {
	// Country is the ISO 3166-1 alpha-2 code.
	Country string
	Zip     string
}

// Zone is one shipping zone. The pattern is a list of AND groups
// separated by "&", each group a list of alternatives separated by
// "|". Every group must be satisfied by the address; an alternative
// matches the country code exactly or the zip as a "*" glob.
type Zone struct {
	ID   int64
	Code string

	Pattern string

	// BillScopeAmount, when non-zero, is the untaxed shipping charge
	// for the whole bill. Per-item rules are skipped.
	BillScopeAmount float64

	// TaxCode selects the tax rule applied to the shipping charge.
	TaxCode string
}

// Rule is a per-item charge within a zone. When Formula is set it is
// evaluated with the variables A, B, C (the rule constants), HT and
// TTC (the line's untaxed and taxed totals) and Q (the quantity);
// otherwise Value is the flat charge for the line.
type Rule struct {
	ZoneCode string
	ItemCode string

	Value   float64
	Formula string

	A, B, C float64
}

// Line is one bill line presented for shipping quotation.
type Line struct {
	ItemCode string
	Quantity int

	// Untaxed and Taxed are the line totals, inputs to rule formulas.
	Untaxed float64
	Taxed   float64

	// ItemValue is the catalog item's per-unit fallback charge, used
	// when the zone has no rule for the item.
	ItemValue float64
}

// Quoter prices the shipping of an order.
type Quoter interface {
	Quote(addr Address, lines []Line) (tax.TaxedAmount, error)
}

// Free is a Quoter for deployments that never charge shipping.
type Free struct{}

// NewFree creates a quoter that always returns zero.
func NewFree() *Free {
	return &Free{}
}

// Quote returns a zero charge for every order.
func (f *Free) Quote(addr Address, lines []Line) (tax.TaxedAmount, error) {
	return tax.TaxedAmount{}, nil
}
