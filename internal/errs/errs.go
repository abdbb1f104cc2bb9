// Package errs holds the error kinds shared by the storefront packages.
// Callers match them with errors.Is; the HTTP layer maps them to status codes.
package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrEmptyCart           = errors.New("your cart is empty")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
)

// StockError describes a requested quantity the product cannot cover.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Invalid wraps ErrInvalidInput with a field-specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// CheckID reports ErrNotFound for an id that is not a hyphenated UUID. Rows
// are keyed by UUID, so such an id cannot name anything.
func CheckID(kind, id string) error {
	if len(id) == 36 {
		if _, err := uuid.Parse(id); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
