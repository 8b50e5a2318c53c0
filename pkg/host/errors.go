package host

import "errors"

var (
	ErrInvalidUsername = errors.New("username must be 3-16 ASCII characters")
	ErrInvalidText     = errors.New("message must be 1-192 ASCII characters")
	ErrInvalidConfig   = errors.New("channel code and backoff must not be 0xFF")
	ErrFrameTooLong    = errors.New("no terminator within 256 bytes")
)
