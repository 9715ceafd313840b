package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced store, product, supplier or stock row does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrInsufficientStock indicates a sale larger than the on-hand quantity.
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	// ErrInvalidInput indicates a non-positive quantity or price, or a malformed amount.
	ErrInvalidInput = errors.New("ledger: invalid input")
)

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// Invalid wraps ErrInvalidInput with a field message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InsufficientStock describes the shortfall for a sale.
type InsufficientStock struct {
	StoreID   int64
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStock) Error() string {
	return fmt.Sprintf("ledger: insufficient stock for product %d at store %d: have %d, want %d", e.ProductID, e.StoreID, e.Available, e.Requested)
}

// Is lets errors.Is match ErrInsufficientStock.
func (e *InsufficientStock) Is(target error) bool {
	return target == ErrInsufficientStock
}
