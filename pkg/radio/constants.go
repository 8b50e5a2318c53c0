package radio

import "time"

// TX FIFO loading
const (
	// SingleBurstMax is the longest payload loaded in one FIFO burst.
	// With its length byte it fills the 64-byte FIFO exactly.
	SingleBurstMax = 63

	// RefillThreshold is the TX FIFO occupancy at or below which the
	// next chunk is written
	RefillThreshold = 32

	// RefillChunk is the size of each refill write
	RefillChunk = 24

	// MaxPayload is the longest payload a one-byte length field allows
	MaxPayload = 255
)

// DefaultPollTimeout bounds every status poll. A full-length OOK packet
// is on air for roughly 430 ms.
const DefaultPollTimeout = 2 * time.Second

// Settle holds the delays the chip needs between configuration steps
type Settle struct {
	ResetPulse    time.Duration `json:"reset_pulse"`
	PostReset     time.Duration `json:"post_reset"`
	PostCalibrate time.Duration `json:"post_calibrate"`
	Step          time.Duration `json:"step"`
	Poll          time.Duration `json:"poll"`
}

// DefaultSettle returns the delays used on hardware
func DefaultSettle() Settle {
	return Settle{
		ResetPulse:    10 * time.Millisecond,
		PostReset:     10 * time.Millisecond,
		PostCalibrate: 100 * time.Millisecond,
		Step:          10 * time.Millisecond,
		Poll:          100 * time.Microsecond,
	}
}
