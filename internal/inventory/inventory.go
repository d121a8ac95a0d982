// Package inventory decides whether an order operation is admissible against an
// item's stock and computes the stock level and order totals to persist. It does
// no I/O; callers load the current values, apply the result and commit.
package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ecommerce-service/internal/models"
)

var (
	// ErrInsufficientStock matches any *InsufficientStockError via errors.Is
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// InsufficientStockError reports how much stock was left when a request asked for more
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Admission is the outcome of placing a new order
type Admission struct {
	NewStock    int
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal
	Status      string
}

// Admit reserves quantity units out of stock at the item's current price.
func Admit(stock int, price decimal.Decimal, quantity int) (*Admission, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity > stock {
		return nil, &InsufficientStockError{Available: stock, Requested: quantity}
	}

	return &Admission{
		NewStock:    stock - quantity,
		UnitPrice:   price,
		TotalAmount: price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:      models.OrderStatusUnshipped,
	}, nil
}

// Revision is the outcome of changing an existing order's quantity
type Revision struct {
	Delta       int
	NewStock    int
	TotalAmount decimal.Decimal
}

// Revise moves an order from oldQuantity to newQuantity. stock is what remains
// after the order's current reservation, so only a positive delta draws on it.
func Revise(stock int, unitPrice decimal.Decimal, oldQuantity, newQuantity int) (*Revision, error) {
	if newQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	delta := newQuantity - oldQuantity
	if delta > stock {
		return nil, &InsufficientStockError{Available: stock, Requested: delta}
	}

	return &Revision{
		Delta:       delta,
		NewStock:    stock - delta,
		TotalAmount: unitPrice.Mul(decimal.NewFromInt(int64(newQuantity))),
	}, nil
}

// Release returns an order's reservation to stock. It cannot fail.
func Release(stock, quantity int) int {
	return stock + quantity
}
