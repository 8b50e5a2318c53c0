package link

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/herlein/airchat/pkg/hal"
)

// BackoffUnit is the counter time represented by one backoff byte, in µs
const BackoffUnit = 1000

// PollResult describes what one scheduler poll did
type PollResult int

const (
	// Idle means nothing was pending
	Idle PollResult = iota
	// Waiting means a backoff period is still running
	Waiting
	// Deferred means the channel was busy and a backoff started
	Deferred
	// Retry means the backoff expired; the frame goes out on a later poll
	Retry
	// Attempted means the frame was handed to the transmitter
	Attempted
)

func (r PollResult) String() string {
	switch r {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Deferred:
		return "deferred"
	case Retry:
		return "retry"
	case Attempted:
		return "attempted"
	}
	return "unknown"
}

// Scheduler gates transmission on clear channel assessment. A busy
// channel starts a fixed backoff of backoff×BackoffUnit µs; there is one
// pending slot and no jitter.
type Scheduler struct {
	cca     gpio.PinIn
	irq     hal.Interrupt
	counter hal.Counter

	period     uint32
	backingOff bool
	pending    bool
}

// NewScheduler returns a scheduler sampling cca. irq is masked around
// each transmission.
func NewScheduler(cca gpio.PinIn, irq hal.Interrupt, counter hal.Counter) *Scheduler {
	return &Scheduler{cca: cca, irq: irq, counter: counter}
}

// SetBackoff sets the backoff period from the host's backoff byte
func (s *Scheduler) SetBackoff(b byte) {
	s.period = uint32(b) * BackoffUnit
}

// Period is the backoff period in µs
func (s *Scheduler) Period() uint32 { return s.period }

// Submit marks a frame pending, replacing any frame not yet sent
func (s *Scheduler) Submit() { s.pending = true }

// Pending reports whether a frame waits for the channel
func (s *Scheduler) Pending() bool { return s.pending }

// BackingOff reports whether a backoff is running
func (s *Scheduler) BackingOff() bool { return s.backingOff }

// Poll runs one scheduling step. tx is called only when the channel is
// clear; the pending frame is cleared whatever tx returns.
func (s *Scheduler) Poll(tx func() error) (PollResult, error) {
	if !s.pending {
		return Idle, nil
	}
	if s.backingOff {
		if s.counter.Read() <= s.period {
			return Waiting, nil
		}
		s.backingOff = false
		return Retry, nil
	}
	if s.cca.Read() == gpio.Low {
		s.counter.Reset()
		s.backingOff = true
		return Deferred, nil
	}

	if s.irq != nil {
		s.irq.Disable()
	}
	err := tx()
	if s.irq != nil {
		s.irq.ClearPending()
		s.irq.Enable()
	}
	s.pending = false
	return Attempted, err
}
