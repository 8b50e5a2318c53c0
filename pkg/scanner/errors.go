package scanner

import "errors"

var (
	ErrNoChannels     = errors.New("no channels to survey")
	ErrInvalidSweeps  = errors.New("sweeps must be at least 1")
	ErrInvalidSmoothK = errors.New("smoothing coefficients must be in (0, 1]")
)
