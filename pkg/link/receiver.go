package link

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/registers"
)

// DefaultStallTimeout aborts a packet that stops delivering bytes
const DefaultStallTimeout = 250 * time.Millisecond

// RxState is the receive state machine state
type RxState int32

const (
	RxIdle RxState = iota
	RxArmed
	RxDraining
	RxComplete
)

func (s RxState) String() string {
	switch s {
	case RxIdle:
		return "idle"
	case RxArmed:
		return "armed"
	case RxDraining:
		return "draining"
	case RxComplete:
		return "complete"
	}
	return fmt.Sprintf("RxState(%d)", int32(s))
}

// Receiver drains one packet at a time from the RX FIFO. Arm is called
// from the sync-word edge; Step, Frame and Release from the loop.
//
// The FIFO is only read while it holds more than one byte, except for
// the final byte of a packet whose length is known, which by then has
// fully arrived. This avoids the CC1101 erratum where reading the last
// byte of a packet still being received duplicates or drops it.
type Receiver struct {
	radio        *radio.Transceiver
	StallTimeout time.Duration

	state    atomic.Int32
	deferred atomic.Bool

	buf      [radio.MaxPayload]byte
	n        int
	expected int
	known    bool
	started  bool
	progress time.Time
	now      func() time.Time
}

// NewReceiver returns an idle receiver on tr
func NewReceiver(tr *radio.Transceiver) *Receiver {
	return &Receiver{
		radio:        tr,
		StallTimeout: DefaultStallTimeout,
		now:          time.Now,
	}
}

// State returns the current state
func (r *Receiver) State() RxState {
	return RxState(r.state.Load())
}

// Arm starts a packet. It does no bus traffic. An edge that arrives
// before the previous packet is released is replayed by Release.
func (r *Receiver) Arm() bool {
	if r.arm() {
		return true
	}
	r.deferred.Store(true)
	// Release may have gone idle before the edge was recorded.
	if r.arm() {
		r.deferred.Store(false)
		return true
	}
	return false
}

func (r *Receiver) arm() bool {
	if !r.state.CompareAndSwap(int32(RxIdle), int32(RxArmed)) {
		return false
	}
	r.radio.SetRXLED(true)
	return true
}

// Step advances the packet by at most one FIFO drain. It reports true
// once the frame is complete and the chip is back in RX.
func (r *Receiver) Step() (bool, error) {
	switch r.State() {
	case RxIdle, RxComplete:
		return r.State() == RxComplete, nil
	}
	if !r.started {
		r.n, r.expected, r.known = 0, 0, false
		r.progress = r.now()
		r.started = true
	}

	if r.lastByteDue() {
		return r.finish()
	}

	avail, overflow, err := r.radio.RXBytes()
	if err != nil {
		return false, err
	}
	if overflow {
		return false, r.abort(radio.ErrRXOverflow)
	}

	if avail == 1 && !r.known {
		// A zero-length packet leaves only its length byte behind.
		state, err := r.radio.MARCState()
		if err != nil {
			return false, err
		}
		if state == registers.StateIDLE {
			avail = 2
		}
	}

	if avail <= 1 {
		if r.now().Sub(r.progress) > r.StallTimeout {
			return false, r.abort(ErrRXStall)
		}
		return false, nil
	}

	// Batch every byte but the newest in one step. The newest stays
	// behind until the length says it is the last one.
	for i := 0; i < avail-1 && !r.lastByteDue(); i++ {
		b, err := r.radio.ReadFIFOByte()
		if err != nil {
			return false, err
		}
		r.take(b)
	}
	r.progress = r.now()

	if r.lastByteDue() {
		return r.finish()
	}
	return false, nil
}

func (r *Receiver) lastByteDue() bool {
	return r.known && r.n >= r.expected-1
}

func (r *Receiver) take(b byte) {
	if !r.known {
		r.expected = int(b)
		r.known = true
		r.state.Store(int32(RxDraining))
		return
	}
	r.buf[r.n] = b
	r.n++
}

// finish reads the final byte, idles the chip and re-enters RX
func (r *Receiver) finish() (bool, error) {
	if r.expected > 0 {
		b, err := r.radio.ReadFIFOByte()
		if err != nil {
			return false, r.abort(err)
		}
		r.take(b)
	}
	if _, err := r.radio.Strobe(registers.StrobeSIDLE); err != nil {
		return false, r.abort(err)
	}
	if err := r.radio.ResetRX(); err != nil {
		return false, r.abort(err)
	}
	r.state.Store(int32(RxComplete))
	return true, nil
}

// abort drops the packet in progress and forces the chip back to RX
func (r *Receiver) abort(cause error) error {
	r.deferred.Store(false)
	r.Reset()
	if err := r.radio.RecoverRX(); err != nil {
		return fmt.Errorf("%w (recovery failed: %v)", cause, err)
	}
	return cause
}

// Frame returns the completed payload. It is valid until Release.
func (r *Receiver) Frame() []byte {
	return r.buf[:r.n]
}

// Release returns a completed receiver to idle
func (r *Receiver) Release() {
	r.Reset()
	if r.deferred.Swap(false) {
		r.arm()
	}
}

// Reset drops any packet state without touching the chip
func (r *Receiver) Reset() {
	r.n, r.expected, r.known = 0, 0, false
	r.started = false
	r.radio.SetRXLED(false)
	r.state.Store(int32(RxIdle))
}
