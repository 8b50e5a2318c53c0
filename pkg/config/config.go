// Package config holds the daemon configuration file and register
// snapshots of a running transceiver.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/link"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
)

// DefaultPath is where airchatd looks for its configuration
const DefaultPath = "etc/airchat/airchatd.json"

// Duration is a time.Duration stored as a string such as "250ms"
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

// SerialConfig is the host UART
type SerialConfig struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}

// SettleConfig mirrors radio.Settle
type SettleConfig struct {
	ResetPulse    Duration `json:"reset_pulse"`
	PostReset     Duration `json:"post_reset"`
	PostCalibrate Duration `json:"post_calibrate"`
	Step          Duration `json:"step"`
	Poll          Duration `json:"poll"`
}

// LinkConfig tunes the link loop
type LinkConfig struct {
	PollTimeout            Duration     `json:"poll_timeout"`
	RXStallTimeout         Duration     `json:"rx_stall_timeout"`
	IdleInterval           Duration     `json:"idle_interval"`
	MaxConsecutiveFailures int          `json:"max_consecutive_failures"`
	Settle                 SettleConfig `json:"settle"`
}

// Config is the airchatd configuration file
type Config struct {
	Board  hal.BoardConfig `json:"board"`
	Serial SerialConfig    `json:"serial"`
	Link   LinkConfig      `json:"link"`

	// InitialChannel configures a channel code at start; -1 waits for
	// the host to send one
	InitialChannel int `json:"initial_channel"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	s := radio.DefaultSettle()
	return &Config{
		Board: hal.DefaultBoardConfig(),
		Serial: SerialConfig{
			Port: "/dev/ttyAMA0",
			Baud: hal.DefaultBaud,
		},
		Link: LinkConfig{
			PollTimeout:            Duration{radio.DefaultPollTimeout},
			RXStallTimeout:         Duration{link.DefaultStallTimeout},
			IdleInterval:           Duration{link.DefaultIdleInterval},
			MaxConsecutiveFailures: link.DefaultMaxConsecutiveFailures,
			Settle: SettleConfig{
				ResetPulse:    Duration{s.ResetPulse},
				PostReset:     Duration{s.PostReset},
				PostCalibrate: Duration{s.PostCalibrate},
				Step:          Duration{s.Step},
				Poll:          Duration{s.Poll},
			},
		},
		InitialChannel: -1,
	}
}

// Validate checks the configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBaud, c.Serial.Baud)
	}
	if c.InitialChannel < -1 || c.InitialChannel > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, c.InitialChannel)
	}
	if c.Link.PollTimeout.Duration <= 0 || c.Link.RXStallTimeout.Duration <= 0 || c.Link.IdleInterval.Duration <= 0 {
		return ErrInvalidTimeout
	}
	if c.Board.SPIHz <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSPI, c.Board.SPIHz)
	}
	pins := map[string]string{
		"cs_pin":   c.Board.CSPin,
		"gdo0_pin": c.Board.GDO0Pin,
		"gdo2_pin": c.Board.GDO2Pin,
	}
	for name, pin := range pins {
		if pin == "" {
			return fmt.Errorf("%w: %s", ErrMissingPin, name)
		}
	}
	return nil
}

// InitialProfile returns the profile for InitialChannel, or nil
func (c *Config) InitialProfile() *profiles.Profile {
	if c.InitialChannel < 0 {
		return nil
	}
	p := profiles.ForChannelCode(uint8(c.InitialChannel))
	return &p
}

// Settle returns the configured settle delays
func (c *Config) Settle() radio.Settle {
	s := c.Link.Settle
	return radio.Settle{
		ResetPulse:    s.ResetPulse.Duration,
		PostReset:     s.PostReset.Duration,
		PostCalibrate: s.PostCalibrate.Duration,
		Step:          s.Step.Duration,
		Poll:          s.Poll.Duration,
	}
}

// LinkOptions converts the link section to link.Options
func (c *Config) LinkOptions() link.Options {
	return link.Options{
		IdleInterval:           c.Link.IdleInterval.Duration,
		MaxConsecutiveFailures: c.Link.MaxConsecutiveFailures,
		RXStallTimeout:         c.Link.RXStallTimeout.Duration,
		InitialProfile:         c.InitialProfile(),
	}
}
