package tax

import (
	"errors"
	"fmt"
)

// Tax error codes.
const (
	ErrCodeUnknownRule = "unknown_rule"
	ErrCodeBadFormula  = "bad_formula"
	ErrCodeEvalFailed  = "eval_failed"
)

// TaxError is a structured tax calculation error.
type TaxError struct {
	Code    string
	Message string
	Err     error
}

func (e *TaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tax: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("tax: %s: %s", e.Code, e.Message)
}

func (e *TaxError) Unwrap() error {
	return e.Err
}

// NewTaxError creates a tax error without an underlying cause.
func NewTaxError(code, message string) *TaxError {
	return &TaxError{Code: code, Message: message}
}

// WrapTaxError creates a tax error wrapping an underlying cause.
func WrapTaxError(err error, code, message string) *TaxError {
	return &TaxError{Code: code, Message: message, Err: err}
}

// IsUnknownRule reports whether err marks a tax code with no rule.
// Apply returns the identity amount alongside this error, so callers
// degrade to selling untaxed instead of failing the order.
func IsUnknownRule(err error) bool {
	var te *TaxError
	return errors.As(err, &te) && te.Code == ErrCodeUnknownRule
}
