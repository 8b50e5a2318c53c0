package config

import "errors"

var (
	ErrInvalidBaud    = errors.New("config: baud rate must be positive")
	ErrInvalidChannel = errors.New("config: initial channel must be -1 or 0-255")
	ErrInvalidTimeout = errors.New("config: timeouts must be positive")
	ErrMissingPin     = errors.New("config: board pin not set")
	ErrInvalidSPI     = errors.New("config: SPI clock must be positive")
)
