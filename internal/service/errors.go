package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to commit")
	ErrBusy              = errors.New("another commitment is already in progress for this account")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidRole       = errors.New("role must be buyer or seller")
	ErrInvalidField      = errors.New("field must be one of name, price or quantity")
	ErrIllegalTransition = errors.New("illegal transition of commitment status")
)

// ProductVanishedError aborts a commitment before any mutation when a
// cart line references a product that no longer exists.
type ProductVanishedError struct {
	ProductID string
}

func (e *ProductVanishedError) Error() string {
	return fmt.Sprintf("product %s no longer exists", e.ProductID)
}

// InsufficientStockError names the product whose reservation failed.
// Everything granted before it has already been compensated by the time
// this error is returned.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}
