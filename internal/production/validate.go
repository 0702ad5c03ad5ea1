package production

// ValidationReport collects configuration findings per catalog item
// code: errors block sales, warnings need operator attention, messages
// are informational.
type ValidationReport struct {
	Errors   map[string][]string
	Warnings map[string][]string
	Messages map[string][]string
}

// NewValidationReport creates an empty report.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{
		Errors:   make(map[string][]string),
		Warnings: make(map[string][]string),
		Messages: make(map[string][]string),
	}
}

// AddError files a blocking finding against an item code.
func (r *ValidationReport) AddError(code, msg string) {
	r.Errors[code] = append(r.Errors[code], msg)
}

// AddWarning files a non-blocking finding against an item code.
func (r *ValidationReport) AddWarning(code, msg string) {
	r.Warnings[code] = append(r.Warnings[code], msg)
}

// AddMessage files an informational note against an item code.
func (r *ValidationReport) AddMessage(code, msg string) {
	r.Messages[code] = append(r.Messages[code], msg)
}

// HasErrors reports whether any item has a blocking finding.
func (r *ValidationReport) HasErrors() bool {
	return len(r.Errors) > 0
}
