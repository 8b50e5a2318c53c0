package sim

import "sync"

// Air connects chips. A completed transmission reaches every other chip
// tuned to the same channel and modulation.
type Air struct {
	mu       sync.Mutex
	chips    []*Chip
	loopback bool
}

// NewAir returns an empty medium
func NewAir() *Air {
	return &Air{}
}

// SetLoopback lets a chip hear its own transmissions
func (a *Air) SetLoopback(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loopback = on
}

// NewChip attaches a new chip
func (a *Air) NewChip() *Chip {
	c := NewChip()
	c.air = a
	a.mu.Lock()
	a.chips = append(a.chips, c)
	a.mu.Unlock()
	return c
}

func (a *Air) transmit(from *Chip, payload []byte) {
	a.mu.Lock()
	chips := append([]*Chip(nil), a.chips...)
	loopback := a.loopback
	a.mu.Unlock()

	from.mu.Lock()
	channel, modulation := from.tuning()
	from.mu.Unlock()

	for _, c := range chips {
		if c == from && !loopback {
			continue
		}
		c.hear(channel, modulation, append([]byte(nil), payload...))
	}
}
