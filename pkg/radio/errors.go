package radio

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a status poll does not reach its
	// condition within PollTimeout
	ErrTimeout = errors.New("radio: poll timed out")

	// ErrTXUnderflow is returned when the TX FIFO ran dry mid-packet
	ErrTXUnderflow = errors.New("radio: TX FIFO underflow")

	// ErrRXOverflow is returned when the RX FIFO overflowed
	ErrRXOverflow = errors.New("radio: RX FIFO overflow")

	// ErrFrameTooLong is returned for payloads over MaxPayload bytes
	ErrFrameTooLong = errors.New("radio: frame exceeds 255 bytes")
)

// BusError records a failed bus transaction
type BusError struct {
	Op     string
	Header byte
	Err    error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("radio: %s (header 0x%02X): %v", e.Op, e.Header, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
