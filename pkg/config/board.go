package config

import (
	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/radio"
)

// Apply copies the link timing into a transceiver
func (c *Config) Apply(tr *radio.Transceiver) {
	tr.PollTimeout = c.Link.PollTimeout.Duration
	tr.Settle = c.Settle()
}

// OpenBoard opens the configured wiring and returns a transceiver on it
// with the LEDs attached. Close the board when done.
func (c *Config) OpenBoard() (*radio.Transceiver, *hal.Board, error) {
	board, err := hal.OpenPeriph(c.Board)
	if err != nil {
		return nil, nil, err
	}
	tr := radio.New(board.Bus)
	tr.TXLED, tr.RXLED = board.TXLED, board.RXLED
	c.Apply(tr)
	return tr, board, nil
}
