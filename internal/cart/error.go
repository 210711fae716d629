package cart

import "errors"

var (
	// -- Identity --
	ErrNoIdentity      = errors.New("cart requires a user or a session")
	ErrInvalidIdentity = errors.New("invalid cart identity reference")

	// -- Resource State --
	ErrProductNotFound  = errors.New("product not found")
	ErrOutOfStock       = errors.New("product out of stock")
	ErrCartItemNotFound = errors.New("cart item not found")
)
