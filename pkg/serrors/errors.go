// Package serrors provides coded errors that survive wrapping. Callers
// match on the machine-readable Code with errors.As rather than on message
// text.
package serrors

import "fmt"

type BaseError struct {
	Code    string
	Message string
	Details string
}

func NewError(code, message, details string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func (e *BaseError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy carrying call-site specific details, keeping
// the original error usable as a sentinel.
func (e *BaseError) WithDetails(format string, args ...any) *BaseError {
	return &BaseError{
		Code:    e.Code,
		Message: e.Message,
		Details: fmt.Sprintf(format, args...),
	}
}

// Is lets errors.Is match two coded errors by Code, so sentinels compare
// equal to their WithDetails copies.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
