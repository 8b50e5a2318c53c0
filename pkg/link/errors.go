package link

import "errors"

var (
	// ErrRXStall is returned when a packet stops making progress
	ErrRXStall = errors.New("link: RX packet stalled")

	// ErrMalformedCommand marks a host command too short for its tag
	ErrMalformedCommand = errors.New("link: malformed host command")

	// ErrUnknownCommand marks a host command with an unknown tag
	ErrUnknownCommand = errors.New("link: unknown host command")
)
