package hal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the host link rate of the device
const DefaultBaud = 38400

// serialReadTimeout lets the reader notice cancellation
const serialReadTimeout = 100 * time.Millisecond

// StreamUART adapts any byte stream, usually a serial.Port, to UART
type StreamUART struct {
	rw  io.ReadWriter
	wmu sync.Mutex
	one [1]byte
}

// NewStreamUART wraps rw
func NewStreamUART(rw io.ReadWriter) *StreamUART {
	return &StreamUART{rw: rw}
}

// OpenSerialUART opens a serial port in 8N1 at baud
func OpenSerialUART(name string, baud int) (*StreamUART, io.Closer, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("failed to reset %s: %w", name, err)
	}
	return NewStreamUART(port), port, nil
}

// SendByte writes one byte
func (u *StreamUART) SendByte(b byte) error {
	u.wmu.Lock()
	defer u.wmu.Unlock()
	u.one[0] = b
	_, err := u.rw.Write(u.one[:])
	return err
}

// Run reads until ctx is done, EOF, or a read error
func (u *StreamUART) Run(ctx context.Context, onByte func(byte)) error {
	var buf [64]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := u.rw.Read(buf[:])
		for _, b := range buf[:n] {
			onByte(b)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("uart read: %w", err)
		}
	}
}
