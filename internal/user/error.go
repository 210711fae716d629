package user

import "errors"

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("email and a password of at least 8 characters are required")
	ErrInvalidToken       = errors.New("invalid token")

	PgUniqueViolation = "23505"
)
