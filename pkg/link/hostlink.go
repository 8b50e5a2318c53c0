package link

import (
	"sync/atomic"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/radio"
)

// Host link framing. Every host command ends with Sentinel; the first
// byte is its tag.
const (
	Sentinel  = 0xFF
	TagConfig = 0x01
	TagData   = 0x02
	TagBoot   = 0x03

	// MaxCommandLen bounds an inbound command, sentinel included
	MaxCommandLen = 255

	commandQueueLen = 4
)

// BootMessage is sent to the host when the node starts
var BootMessage = []byte{TagBoot, Sentinel}

// Command is one sentinel-terminated host command
type Command struct {
	buf [MaxCommandLen]byte
	n   int
}

// NewCommand builds a command from raw bytes
func NewCommand(b []byte) Command {
	var c Command
	c.n = copy(c.buf[:], b)
	return c
}

// Bytes returns the command including tag and sentinel
func (c *Command) Bytes() []byte { return c.buf[:c.n] }

// Len is the command length including tag and sentinel
func (c *Command) Len() int { return c.n }

// Tag is the first byte of the command
func (c *Command) Tag() byte {
	if c.n == 0 {
		return 0
	}
	return c.buf[0]
}

// HostLink frames bytes between the host UART and the node loop. OnByte
// runs on the UART goroutine; everything else belongs to the loop.
type HostLink struct {
	uart hal.UART

	in         [MaxCommandLen]byte
	inPos      int
	discarding bool
	commands   chan Command
	notify     func()
	dropped    atomic.Uint64
	overflows  atomic.Uint64

	out    [radio.MaxPayload]byte
	outLen int
	outPos int
}

// NewHostLink returns a link writing to uart. notify, if set, is called
// after each completed command is handed off.
func NewHostLink(uart hal.UART, notify func()) *HostLink {
	return &HostLink{
		uart:     uart,
		commands: make(chan Command, commandQueueLen),
		notify:   notify,
	}
}

// OnByte accumulates one inbound byte. A command that fills the buffer
// without a sentinel is discarded along with the rest of it.
func (h *HostLink) OnByte(b byte) {
	if h.discarding {
		if b == Sentinel {
			h.discarding = false
		}
		return
	}
	if h.inPos == len(h.in) {
		h.overflows.Add(1)
		h.inPos = 0
		h.discarding = b != Sentinel
		return
	}
	h.in[h.inPos] = b
	h.inPos++
	if b != Sentinel {
		return
	}

	c := NewCommand(h.in[:h.inPos])
	h.inPos = 0
	select {
	case h.commands <- c:
	default:
		h.dropped.Add(1)
	}
	if h.notify != nil {
		h.notify()
	}
}

// Next returns the next completed command without blocking
func (h *HostLink) Next() (Command, bool) {
	select {
	case c := <-h.commands:
		return c, true
	default:
		return Command{}, false
	}
}

// Queue loads payload for draining to the host, first flushing whatever
// is still pending from the previous payload
func (h *HostLink) Queue(payload []byte) error {
	err := h.Flush()
	h.outLen = copy(h.out[:], payload)
	h.outPos = 0
	return err
}

// DrainOne sends the next pending byte, reporting whether one was sent
func (h *HostLink) DrainOne() (bool, error) {
	if h.outPos >= h.outLen {
		return false, nil
	}
	b := h.out[h.outPos]
	h.outPos++
	return true, h.uart.SendByte(b)
}

// Flush sends every pending byte
func (h *HostLink) Flush() error {
	var first error
	for h.Pending() > 0 {
		if _, err := h.DrainOne(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Pending is the number of bytes not yet sent to the host
func (h *HostLink) Pending() int {
	return h.outLen - h.outPos
}

// Dropped counts commands lost because the loop fell behind
func (h *HostLink) Dropped() uint64 { return h.dropped.Load() }

// Overflows counts commands discarded for lacking a sentinel
func (h *HostLink) Overflows() uint64 { return h.overflows.Load() }
