package inventory

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("reservation quantity must be greater than zero")
	ErrProductNotFound   = errors.New("product not found")
)
