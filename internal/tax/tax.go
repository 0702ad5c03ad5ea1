// Package tax turns untaxed amounts into taxed ones according to the
// rules the operator configured per catalog item.
package tax

// TaxedAmount is the result of applying a tax rule.
type TaxedAmount struct {
	// Untaxed is the input amount.
	Untaxed float64
	// Tax is the collected tax.
	Tax float64
	// Taxed is Untaxed plus Tax.
	Taxed float64
}

// Calculator applies the tax rule named by code to an untaxed amount.
// An empty code means the untaxed amount passes through unchanged.
type Calculator interface {
	Apply(code string, untaxed float64) (TaxedAmount, error)
}

// Rule is one configured tax rule. The formula computes the taxed
// amount from the variables ht (the untaxed amount) and tr (the
// ratio); an empty formula leaves the amount unchanged.
type Rule struct {
	Code    string
	Country string
	Ratio   float64
	Formula string
}

// identity is the pass-through result for untaxed amounts.
func identity(untaxed float64) TaxedAmount {
	return TaxedAmount{Untaxed: untaxed, Taxed: untaxed}
}
