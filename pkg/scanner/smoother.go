package scanner

import "math"

const (
	// DefaultSmoothThreshold is the dB jump treated as a new signal
	DefaultSmoothThreshold = 6.0
	DefaultKFast           = 0.7
	DefaultKSlow           = 0.2
)

// Smoother is an exponential moving average that adapts quickly to
// large jumps and slowly to small ones
type Smoother struct {
	value     float64
	primed    bool
	threshold float64 // dB - above this difference, use fast adaptation
	kFast     float64
	kSlow     float64
}

// NewSmoother creates a smoother with default parameters
func NewSmoother() *Smoother {
	return NewSmootherWithParams(DefaultSmoothThreshold, DefaultKFast, DefaultKSlow)
}

// NewSmootherWithParams creates a smoother with custom parameters
func NewSmootherWithParams(threshold, kFast, kSlow float64) *Smoother {
	return &Smoother{threshold: threshold, kFast: kFast, kSlow: kSlow}
}

// Update folds in a sample and returns the smoothed value
func (s *Smoother) Update(sample float64) float64 {
	// First value is returned as-is
	if !s.primed {
		s.value, s.primed = sample, true
		return sample
	}

	k := s.kSlow
	if math.Abs(sample-s.value) > s.threshold {
		k = s.kFast
	}
	s.value += (sample - s.value) * k
	return s.value
}

// Value returns the current smoothed value
func (s *Smoother) Value() float64 {
	return s.value
}

// Reset clears the smoother state
func (s *Smoother) Reset() {
	s.value, s.primed = 0, false
}
