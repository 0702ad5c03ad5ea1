package shipping

import (
	"fmt"

	"github.com/verzog/merchant/internal/expr"
	"github.com/verzog/merchant/internal/pricing"
	"github.com/verzog/merchant/internal/tax"
)

// Resolver quotes shipping from a zone table and per-item rules, then
// taxes the charge with the zone's tax code.
type Resolver struct {
	zones []Zone
	rules map[string]map[string]compiledRule
	calc  tax.Calculator
}

type compiledRule struct {
	rule    Rule
	formula *expr.Formula
}

// NewResolver compiles the rule formulas up front so a bad formula
// fails at startup, not at checkout.
func NewResolver(zones []Zone, rules []Rule, calc tax.Calculator) (*Resolver, error) {
	r := &Resolver{
		zones: zones,
		rules: make(map[string]map[string]compiledRule),
		calc:  calc,
	}
	for _, rule := range rules {
		compiled := compiledRule{rule: rule}
		if rule.Formula != "" {
			formula, err := expr.Parse(rule.Formula)
			if err != nil {
				return nil, WrapShippingError(err, ErrCodeBadFormula,
					fmt.Sprintf("zone %q item %q has an invalid formula", rule.ZoneCode, rule.ItemCode))
			}
			compiled.formula = formula
		}
		byItem := r.rules[rule.ZoneCode]
		if byItem == nil {
			byItem = make(map[string]compiledRule)
			r.rules[rule.ZoneCode] = byItem
		}
		byItem[rule.ItemCode] = compiled
	}
	return r, nil
}

// Quote computes the taxed shipping charge of an order. Orders whose
// address falls outside every zone ship free.
func (r *Resolver) Quote(addr Address, lines []Line) (tax.TaxedAmount, error) {
	zone := ResolveZone(r.zones, addr)
	if zone == nil {
		return tax.TaxedAmount{}, nil
	}

	untaxed, err := r.untaxedCharge(zone, lines)
	if err != nil {
		return tax.TaxedAmount{}, err
	}
	if untaxed == 0 {
		return tax.TaxedAmount{}, nil
	}

	// A zone pointing at a missing tax rule ships untaxed: Apply
	// already returned the identity amount for that case.
	taxed, err := r.calc.Apply(zone.TaxCode, pricing.Round(untaxed))
	if err != nil && !tax.IsUnknownRule(err) {
		return tax.TaxedAmount{}, WrapShippingError(err, ErrCodeTaxFailed,
			fmt.Sprintf("zone %q shipping tax failed", zone.Code))
	}
	taxed.Tax = pricing.Round(taxed.Tax)
	taxed.Taxed = pricing.Round(taxed.Taxed)
	return taxed, nil
}

// untaxedCharge applies the zone's whole-bill amount when present,
// otherwise accumulates per-line charges.
func (r *Resolver) untaxedCharge(zone *Zone, lines []Line) (float64, error) {
	if zone.BillScopeAmount != 0 {
		return zone.BillScopeAmount, nil
	}

	total := 0.0
	byItem := r.rules[zone.Code]
	for _, line := range lines {
		compiled, ok := byItem[line.ItemCode]
		if !ok {
			// No rule in this zone: the catalog item's own flat
			// value applies per unit.
			total += line.ItemValue * float64(line.Quantity)
			continue
		}
		if compiled.formula == nil {
			total += compiled.rule.Value
			continue
		}
		charge, err := compiled.formula.Eval(map[string]float64{
			"A":   compiled.rule.A,
			"B":   compiled.rule.B,
			"C":   compiled.rule.C,
			"HT":  line.Untaxed,
			"TTC": line.Taxed,
			"Q":   float64(line.Quantity),
		})
		if err != nil {
			return 0, WrapShippingError(err, ErrCodeEvalFailed,
				fmt.Sprintf("zone %q item %q formula failed", zone.Code, line.ItemCode))
		}
		total += charge
	}
	return total, nil
}
