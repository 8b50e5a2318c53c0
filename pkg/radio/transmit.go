package radio

import (
	"fmt"

	"github.com/herlein/airchat/pkg/registers"
)

// TxFrame is an outgoing packet: the length byte followed by up to 255
// payload bytes, laid out as they enter the FIFO
type TxFrame struct {
	buf [MaxPayload + 1]byte
}

// Load copies payload into the frame
func (f *TxFrame) Load(payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(payload))
	}
	f.buf[0] = byte(len(payload))
	copy(f.buf[1:], payload)
	return nil
}

// Len is the payload length
func (f *TxFrame) Len() int {
	return int(f.buf[0])
}

// Payload returns the loaded payload
func (f *TxFrame) Payload() []byte {
	return f.buf[1 : 1+f.Len()]
}

func (f *TxFrame) fifoBytes() []byte {
	return f.buf[:1+f.Len()]
}

// Transmit sends one packet and returns the chip to RX. Payloads up to
// SingleBurstMax go in a single FIFO burst; longer ones start with a full
// FIFO and are topped up in RefillChunk pieces whenever occupancy falls to
// RefillThreshold. The RX FIFO is flushed and RX re-entered on every exit.
func (t *Transceiver) Transmit(f *TxFrame) (err error) {
	t.SetTXLED(true)
	defer t.SetTXLED(false)
	defer func() {
		if rerr := t.resumeRX(); err == nil && rerr != nil {
			err = fmt.Errorf("failed to resume RX: %w", rerr)
		}
	}()

	if _, err := t.Strobe(registers.StrobeSIDLE); err != nil {
		return err
	}

	data := f.fifoBytes()
	if f.Len() <= SingleBurstMax {
		if err := t.WriteFIFO(data); err != nil {
			return err
		}
		if _, err := t.Strobe(registers.StrobeSTX); err != nil {
			return err
		}
		if err := t.waitTXDrained(); err != nil {
			return err
		}
		return t.waitIdleStatus()
	}

	sent := SingleBurstMax + 1
	if err := t.WriteFIFO(data[:sent]); err != nil {
		return err
	}
	if _, err := t.Strobe(registers.StrobeSTX); err != nil {
		return err
	}
	err = t.poll("refill TX FIFO", func() (bool, error) {
		n, underflow, err := t.TXBytes()
		if err != nil {
			return false, err
		}
		if underflow {
			return false, t.flushUnderflow()
		}
		if n > RefillThreshold {
			return false, nil
		}
		remaining := len(data) - sent
		if remaining == 0 {
			return true, nil
		}
		chunk := min(RefillChunk, remaining)
		if err := t.WriteFIFO(data[sent : sent+chunk]); err != nil {
			return false, err
		}
		sent += chunk
		return sent == len(data), nil
	})
	if err != nil {
		return err
	}
	return t.waitIdleStatus()
}

// waitTXDrained polls TXBYTES until the FIFO is empty
func (t *Transceiver) waitTXDrained() error {
	return t.poll("drain TX FIFO", func() (bool, error) {
		n, underflow, err := t.TXBytes()
		if err != nil {
			return false, err
		}
		if underflow {
			return false, t.flushUnderflow()
		}
		return n == 0, nil
	})
}

// waitIdleStatus polls SNOP until the status byte shows a ready, idle chip
func (t *Transceiver) waitIdleStatus() error {
	return t.poll("wait for TX end", func() (bool, error) {
		st, err := t.Strobe(registers.StrobeSNOP)
		if err != nil {
			return false, err
		}
		if st.State() == registers.ChipTXUnderflow {
			return false, t.flushUnderflow()
		}
		return st&0xF0 == 0, nil
	})
}

func (t *Transceiver) flushUnderflow() error {
	if _, err := t.Strobe(registers.StrobeSFTX); err != nil {
		return err
	}
	return ErrTXUnderflow
}
