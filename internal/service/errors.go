package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation        = errors.New("validation")        // 400
	ErrNotFound          = errors.New("not found")         // 404
	ErrPermissionDenied  = errors.New("permission denied") // 403
	ErrConflict          = errors.New("conflict")          // 409
	ErrStockInsufficient = errors.New("insufficient stock")
)

// StockError reports a line that cannot be served from current stock.
// errors.Is(err, ErrStockInsufficient) matches it.
type StockError struct {
	BookID    uint
	BookName  string
	Requested int64
	Available int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: only %d available", e.BookName, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrStockInsufficient
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return err
}

var errEmptyCart = fmt.Errorf("%w: the cart is empty", ErrValidation)
