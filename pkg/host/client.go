// Package host is the computer side of the serial link: it configures
// the device and exchanges chat messages with it.
package host

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/denisbrodbeck/machineid"
	"go.bug.st/serial"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/link"
	"github.com/herlein/airchat/pkg/profiles"
)

const (
	MinBackoff = 10
	MaxBackoff = 50
)

// Client talks to one device
type Client struct {
	rw  io.ReadWriter
	r   *bufio.Reader
	wmu sync.Mutex
}

// NewClient wraps an open byte stream
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw, r: bufio.NewReaderSize(rw, MaxFrameLen)}
}

// Dial opens a serial port at the device rate
func Dial(port string) (*Client, io.Closer, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: hal.DefaultBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", port, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("failed to reset %s: %w", port, err)
	}
	return NewClient(p), p, nil
}

// RandomBackoff picks a backoff in [MinBackoff, MaxBackoff]
func RandomBackoff() byte {
	return byte(MinBackoff + rand.Intn(MaxBackoff-MinBackoff+1))
}

// DefaultUsername derives a stable name from the machine id
func DefaultUsername() string {
	id, err := machineid.ProtectedID("airchat")
	if err != nil || len(id) < 8 {
		return "airchat"
	}
	return "node-" + id[:8]
}

// Configure selects a channel code and backoff
func (c *Client) Configure(code, backoff byte) error {
	frame, err := EncodeConfig(code, backoff)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// ConfigureProfile selects p with a random backoff
func (c *Client) ConfigureProfile(p profiles.Profile) (byte, error) {
	backoff := RandomBackoff()
	return backoff, c.Configure(p.Channel, backoff)
}

// Send queues a chat message for transmission
func (c *Client) Send(user, text string) error {
	frame, err := EncodeMessage(user, text)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Client) write(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.rw.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadEvent blocks for the next frame. A frame longer than MaxFrameLen
// is returned as garbled together with ErrFrameTooLong.
func (c *Client) ReadEvent() (Event, error) {
	frame := make([]byte, 0, MaxFrameLen)
	for len(frame) < MaxFrameLen {
		b, err := c.r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		frame = append(frame, b)
		if b == link.Sentinel {
			return DecodeFrame(frame), nil
		}
	}
	return Event{Kind: EventGarbled, Raw: frame}, ErrFrameTooLong
}
