package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/herlein/airchat/pkg/hal/sim"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
)

func newRadio(t *testing.T, chip *sim.Chip) *radio.Transceiver {
	t.Helper()
	tr := radio.New(chip)
	tr.Settle = radio.Settle{}
	tr.PollTimeout = time.Second
	return tr
}

func newConfiguredRadio(t *testing.T, chip *sim.Chip) *radio.Transceiver {
	t.Helper()
	tr := newRadio(t, chip)
	require.NoError(t, tr.Configure(profiles.ForChannelCode(0), nil))
	return tr
}

func payload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*13 + 5)
	}
	return p
}

// fakeUART collects outbound bytes and feeds inbound bytes from a channel
type fakeUART struct {
	in  chan byte
	mu  sync.Mutex
	out []byte
	err error
}

func newFakeUART() *fakeUART {
	return &fakeUART{in: make(chan byte, 1024)}
}

func (u *fakeUART) SendByte(b byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.out = append(u.out, b)
	return nil
}

func (u *fakeUART) Run(ctx context.Context, onByte func(byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b := <-u.in:
			onByte(b)
		}
	}
}

func (u *fakeUART) write(b ...byte) {
	for _, c := range b {
		u.in <- c
	}
}

func (u *fakeUART) written() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.out...)
}

type fakeCounter struct {
	mu     sync.Mutex
	v      uint32
	resets int
}

func (c *fakeCounter) Read() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *fakeCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = 0
	c.resets++
}

func (c *fakeCounter) set(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
}

type recordingIRQ struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingIRQ) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingIRQ) Enable()       { r.record("enable") }
func (r *recordingIRQ) Disable()      { r.record("disable") }
func (r *recordingIRQ) ClearPending() { r.record("clear") }
