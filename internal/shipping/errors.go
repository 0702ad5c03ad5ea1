package shipping

import "fmt"

// Shipping error codes.
const (
	ErrCodeBadPattern = "bad_pattern"
	ErrCodeBadFormula = "bad_formula"
	ErrCodeEvalFailed = "eval_failed"
	ErrCodeTaxFailed  = "tax_failed"
)

// ShippingError is a structured shipping calculation error.
type ShippingError struct {
	Code    string
	Message string
	Err     error
}

func (e *ShippingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shipping: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("shipping: %s: %s", e.Code, e.Message)
}

func (e *ShippingError) Unwrap() error {
	return e.Err
}

// NewShippingError creates a shipping error without an underlying cause.
func NewShippingError(code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message}
}

// WrapShippingError creates a shipping error wrapping an underlying cause.
func WrapShippingError(err error, code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message, Err: err}
}
