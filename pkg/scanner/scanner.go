// Package scanner surveys channel codes for background noise so a quiet
// channel can be picked before chatting.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/registers"
)

const (
	DefaultDwell       = 2 * time.Millisecond
	DefaultSweeps      = 4
	DefaultCalibration = time.Millisecond
)

// Config tunes a survey
type Config struct {
	Codes       []uint8
	Sweeps      int
	Dwell       time.Duration // AGC settle time before reading RSSI
	Calibration time.Duration

	SmoothThreshold float64
	SmoothKFast     float64
	SmoothKSlow     float64
}

// DefaultConfig surveys the sixteen client channel codes
func DefaultConfig() *Config {
	return &Config{
		Codes:           profiles.ChannelCodes(),
		Sweeps:          DefaultSweeps,
		Dwell:           DefaultDwell,
		Calibration:     DefaultCalibration,
		SmoothThreshold: DefaultSmoothThreshold,
		SmoothKFast:     DefaultKFast,
		SmoothKSlow:     DefaultKSlow,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if len(c.Codes) == 0 {
		return ErrNoChannels
	}
	if c.Sweeps < 1 {
		return ErrInvalidSweeps
	}
	for _, k := range []float64{c.SmoothKFast, c.SmoothKSlow} {
		if k <= 0 || k > 1 {
			return ErrInvalidSmoothK
		}
	}
	return nil
}

// Scanner measures RSSI per channel on a transceiver. The chip is left
// idle and unconfigured afterwards; callers reconfigure the channel they
// want to use.
type Scanner struct {
	tr     *radio.Transceiver
	config *Config
}

// New creates a scanner. A nil config uses DefaultConfig.
func New(tr *radio.Transceiver, config *Config) (*Scanner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{tr: tr, config: config}, nil
}

// Survey runs the configured number of sweeps and returns one reading
// per channel code, in survey order
func (s *Scanner) Survey(ctx context.Context) ([]Reading, error) {
	cfg := s.config
	readings := make([]Reading, len(cfg.Codes))
	smoothers := make([]*Smoother, len(cfg.Codes))
	for i, code := range cfg.Codes {
		p := profiles.ForChannelCode(code)
		readings[i] = Reading{
			Code:        code,
			Name:        p.Name,
			Modulation:  p.Modulation,
			FrequencyHz: p.FrequencyHz(),
			Peak:        -200,
		}
		smoothers[i] = NewSmootherWithParams(cfg.SmoothThreshold, cfg.SmoothKFast, cfg.SmoothKSlow)
	}

	for sweep := 0; sweep < cfg.Sweeps; sweep++ {
		for i, code := range cfg.Codes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			dBm, err := s.measure(profiles.ForChannelCode(code))
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", code, err)
			}
			r := &readings[i]
			r.RSSI = smoothers[i].Update(dBm)
			r.Peak = max(r.Peak, dBm)
			r.Samples++
			r.Timestamp = time.Now()
			glog.V(2).Infof("survey sweep %d %s: %.1f dBm", sweep, r.Name, dBm)
		}
	}
	return readings, nil
}

// measure tunes p, lets the AGC settle in RX and reads RSSI
func (s *Scanner) measure(p profiles.Profile) (float64, error) {
	if _, err := s.tr.Strobe(registers.StrobeSIDLE); err != nil {
		return 0, err
	}
	if err := s.tr.WriteConfig(p.ConfigTable()); err != nil {
		return 0, err
	}
	if _, err := s.tr.Strobe(registers.StrobeSCAL); err != nil {
		return 0, err
	}
	time.Sleep(s.config.Calibration)
	// SCAL returns to IDLE once the synthesizer is calibrated.
	if err := s.tr.WaitForState(registers.StateIDLE); err != nil {
		return 0, fmt.Errorf("calibration: %w", err)
	}
	if _, err := s.tr.Strobe(registers.StrobeSRX); err != nil {
		return 0, err
	}
	time.Sleep(s.config.Dwell)

	raw, err := s.tr.ReadStatusRegister(registers.RegRSSI)
	if err != nil {
		return 0, fmt.Errorf("failed to read RSSI: %w", err)
	}
	if _, err := s.tr.Strobe(registers.StrobeSIDLE); err != nil {
		return 0, err
	}
	return radio.RSSIToDBm(raw), nil
}
