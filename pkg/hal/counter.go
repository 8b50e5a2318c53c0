package hal

import (
	"sync/atomic"
	"time"
)

// MonotonicCounter is a microsecond counter on the runtime monotonic clock
type MonotonicCounter struct {
	base  time.Time
	start atomic.Int64 // nanoseconds since base at the last Reset
}

// NewMonotonicCounter starts a counter at zero
func NewMonotonicCounter() *MonotonicCounter {
	return &MonotonicCounter{base: time.Now()}
}

// Read returns microseconds since the last Reset, saturating at 2^32-1
func (c *MonotonicCounter) Read() uint32 {
	us := (time.Since(c.base).Nanoseconds() - c.start.Load()) / 1000
	if us > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(us)
}

// Reset restarts the count
func (c *MonotonicCounter) Reset() {
	c.start.Store(time.Since(c.base).Nanoseconds())
}
