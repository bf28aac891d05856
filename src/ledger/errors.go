package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrMissingColumn   = errors.New("missing column")
)

// DatasetNotFoundError is returned for dataset names the store does not know.
type DatasetNotFoundError struct {
	Name string
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("Dataset '%s' not found (expected one of: %s, %s)", e.Name, Contracts, Inventory)
}

// StoreUnreadableError wraps failures to load or parse a dataset file.
type StoreUnreadableError struct {
	Path string
	Err  error
}

func (e *StoreUnreadableError) Error() string {
	return fmt.Sprintf("Error reading CSV %s: %v", e.Path, e.Err)
}

func (e *StoreUnreadableError) Unwrap() error { return e.Err }

// ProductNotFoundError is returned when a product id has no row.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product ID '%s' not found in database", e.ProductID)
}

// QuantityExceededError is returned when an update would push used past the
// contracted quantity. Available is the remaining headroom.
type QuantityExceededError struct {
	Requested int64
	Available int64
	Total     int64
	Used      int64
}

func (e *QuantityExceededError) Error() string {
	return fmt.Sprintf("Cannot use %d units. Only %d units available (total: %d, already used: %d)",
		e.Requested, e.Available, e.Total, e.Used)
}

// IsNotFound reports whether err is a missing product or dataset.
func IsNotFound(err error) bool {
	var pnf *ProductNotFoundError
	var dnf *DatasetNotFoundError
	return errors.As(err, &pnf) || errors.As(err, &dnf)
}
