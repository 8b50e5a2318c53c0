// Package hal holds the narrow hardware interfaces the link layer is built
// on, and their periph.io and serial port implementations.
package hal

import (
	"context"
)

// Bus is the chip control bus: an active-low select line plus a
// full-duplex byte exchange. One transaction is Select, one or more
// Exchange calls, Deselect.
type Bus interface {
	Select() error
	Deselect() error
	// Exchange clocks out w and, when r is non-nil, stores the bytes
	// clocked in. r must be nil or len(w).
	Exchange(w, r []byte) error
	// FlushReceiveQueue drops anything the bus controller buffered from
	// write-only exchanges.
	FlushReceiveQueue()
}

// Interrupt gates delivery of an edge event source.
type Interrupt interface {
	Enable()
	Disable()
	ClearPending()
}

// EdgeSource is an Interrupt that runs its own delivery goroutine.
type EdgeSource interface {
	Interrupt
	Run(ctx context.Context, handler func()) error
}

// UART is a byte-oriented duplex serial line.
type UART interface {
	SendByte(b byte) error
	// Run delivers every received byte to onByte until ctx is done or
	// the line fails.
	Run(ctx context.Context, onByte func(byte)) error
}

// Counter is a free-running microsecond counter.
type Counter interface {
	Read() uint32
	Reset()
}
