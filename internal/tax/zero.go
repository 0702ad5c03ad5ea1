package tax

// Zero is a Calculator that never collects tax. Used for tax-exempt
// deployments and as the default when no rules are configured.
type Zero struct{}

// NewZero creates a pass-through calculator.
func NewZero() *Zero {
	return &Zero{}
}

// Apply returns the untaxed amount unchanged for every code.
func (z *Zero) Apply(code string, untaxed float64) (TaxedAmount, error) {
	return identity(untaxed), nil
}
