// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrMarketClosed   = errors.New("market is closed")
	ErrNoData         = errors.New("no data in window")
	ErrSignalNotFound = errors.New("no signals for date")
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrTimeout        = errors.New("operation timed out")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrDatabaseError  = errors.New("database error")
)

// APIError represents an error response from an upstream HTTP service.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error [%d]: %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error [%d]: %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(service string, status int, message string, err error) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}

// OrderError represents a failed order placement. Order failures are
// reported, never retried, so callers need the symbol for the report.
type OrderError struct {
	SymbolKey string
	Reason    string
	Err       error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order failed for %s: %s: %v", e.SymbolKey, e.Reason, e.Err)
	}
	return fmt.Sprintf("order failed for %s: %s", e.SymbolKey, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches any wrapped sentinel.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
