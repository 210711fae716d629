package order

import (
	"errors"

	"essenza-be/internal/inventory"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInsufficientStock       = inventory.ErrInsufficientStock
	ErrPaymentNotConfirmed     = errors.New("payment not confirmed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrAdminCheckout           = errors.New("administrators cannot place orders")
	ErrInvalidPaymentReference = errors.New("invalid payment reference")

	// errDuplicatePayment signals that another confirmation already created
	// the order for this payment reference.
	errDuplicatePayment = errors.New("order already exists for payment reference")
)
