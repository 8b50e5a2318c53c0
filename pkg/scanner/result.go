package scanner

import (
	"fmt"
	"time"

	"github.com/herlein/airchat/pkg/profiles"
)

// Reading is the noise measured on one channel code
type Reading struct {
	Code        uint8
	Name        string
	Modulation  profiles.Modulation
	FrequencyHz float64
	RSSI        float64 // dBm, smoothed over sweeps
	Peak        float64 // dBm, loudest single sample
	Samples     int
	Timestamp   time.Time
}

func (r Reading) String() string {
	return fmt.Sprintf("%-6s %-4s %9.3f MHz  %7.1f dBm (peak %6.1f)",
		r.Name, r.Modulation, r.FrequencyHz/1e6, r.RSSI, r.Peak)
}

// Quietest returns the reading with the lowest smoothed RSSI. Ties go
// to the lower channel code.
func Quietest(readings []Reading) (Reading, bool) {
	if len(readings) == 0 {
		return Reading{}, false
	}
	best := readings[0]
	for _, r := range readings[1:] {
		if r.RSSI < best.RSSI || (r.RSSI == best.RSSI && r.Code < best.Code) {
			best = r
		}
	}
	return best, true
}
