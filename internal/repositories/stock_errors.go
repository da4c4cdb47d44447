package repositories

import "fmt"

// StockErrorCode enumerates repository error causes for stock movement operations.
type StockErrorCode string

const (
	// StockErrorUnknown represents an unspecified failure.
	StockErrorUnknown StockErrorCode = "stock_unknown"
	// StockErrorInsufficientStock indicates the movement would drive stock below zero.
	StockErrorInsufficientStock StockErrorCode = "stock_insufficient"
	// StockErrorProductNotFound indicates the product document is missing.
	StockErrorProductNotFound StockErrorCode = "stock_product_not_found"
	// StockErrorInvalidMovement indicates the movement payload is malformed.
	StockErrorInvalidMovement StockErrorCode = "stock_invalid_movement"
)

// StockError wraps stock-ledger failures with machine readable codes.
type StockError struct {
	Op      string
	Code    StockErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StockError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *StockError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStockError constructs a typed stock error.
func NewStockError(code StockErrorCode, message string, err error) *StockError {
	if message == "" {
		message = string(code)
	}
	return &StockError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
