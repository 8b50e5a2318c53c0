package hal

import (
	"context"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// DefaultEdgePoll bounds each WaitForEdge call so Run notices cancellation
const DefaultEdgePoll = 50 * time.Millisecond

// EdgeWatcher turns a periph edge-detecting input into a maskable
// interrupt. While disabled, edges latch a pending flag that fires on
// Enable unless ClearPending ran first.
type EdgeWatcher struct {
	pin     gpio.PinIn
	poll    time.Duration
	handler atomic.Pointer[func()]
	enabled atomic.Bool
	pending atomic.Bool
}

// NewEdgeWatcher wraps a pin already configured for edge detection
func NewEdgeWatcher(pin gpio.PinIn) *EdgeWatcher {
	w := &EdgeWatcher{pin: pin, poll: DefaultEdgePoll}
	w.enabled.Store(true)
	return w
}

// Enable unmasks the edge, delivering a latched edge first
func (w *EdgeWatcher) Enable() {
	w.enabled.Store(true)
	if w.pending.Swap(false) {
		w.fire()
	}
}

// Disable masks the edge
func (w *EdgeWatcher) Disable() {
	w.enabled.Store(false)
}

// ClearPending drops an edge latched while masked
func (w *EdgeWatcher) ClearPending() {
	w.pending.Store(false)
}

// Run waits for edges and calls handler for each unmasked one
func (w *EdgeWatcher) Run(ctx context.Context, handler func()) error {
	w.handler.Store(&handler)
	defer w.handler.Store(nil)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.pin.WaitForEdge(w.poll) {
			continue
		}
		if w.enabled.Load() {
			handler()
		} else {
			w.pending.Store(true)
		}
	}
}

func (w *EdgeWatcher) fire() {
	if h := w.handler.Load(); h != nil {
		(*h)()
	}
}
