package tax

import (
	"fmt"

	"github.com/verzog/merchant/internal/expr"
)

// Table is a Calculator over a fixed set of rules, with formulas
// compiled once at construction. Safe for concurrent use.
type Table struct {
	rules map[string]compiledRule
}

type compiledRule struct {
	rule    Rule
	formula *expr.Formula
}

// NewTable compiles the given rules. A rule with an unparseable
// formula fails construction rather than surfacing at checkout.
func NewTable(rules []Rule) (*Table, error) {
	table := &Table{rules: make(map[string]compiledRule, len(rules))}
	for _, rule := range rules {
		compiled := compiledRule{rule: rule}
		if rule.Formula != "" {
			formula, err := expr.Parse(rule.Formula)
			if err != nil {
				return nil, WrapTaxError(err, ErrCodeBadFormula,
					fmt.Sprintf("rule %q has an invalid formula", rule.Code))
			}
			compiled.formula = formula
		}
		table.rules[rule.Code] = compiled
	}
	return table, nil
}

// Apply computes the taxed amount for one rule code. The formula sees
// ht bound to the untaxed amount and tr bound to the rule's ratio, and
// its result is the taxed amount. Rules without a formula, and the
// empty code, leave the amount unchanged.
func (t *Table) Apply(code string, untaxed float64) (TaxedAmount, error) {
	if code == "" {
		return identity(untaxed), nil
	}

	compiled, ok := t.rules[code]
	if !ok {
		return identity(untaxed), NewTaxError(ErrCodeUnknownRule,
			fmt.Sprintf("no tax rule for code %q", code))
	}
	if compiled.formula == nil {
		return identity(untaxed), nil
	}

	taxed, err := compiled.formula.Eval(map[string]float64{
		"ht": untaxed,
		"tr": compiled.rule.Ratio,
	})
	if err != nil {
		return identity(untaxed), WrapTaxError(err, ErrCodeEvalFailed,
			fmt.Sprintf("rule %q failed to evaluate", code))
	}

	return TaxedAmount{
		Untaxed: untaxed,
		Tax:     taxed - untaxed,
		Taxed:   taxed,
	}, nil
}

// Rule returns the raw rule for a code, for admin display.
func (t *Table) Rule(code string) (Rule, bool) {
	compiled, ok := t.rules[code]
	return compiled.rule, ok
}
