// Package radio drives a CC1101 transceiver over a chip-selected SPI bus.
// Every operation is one bus transaction or a bounded sequence of them.
package radio

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/registers"
)

// Status is the chip status byte clocked out with every header byte
type Status byte

// Ready reports CHIP_RDYn low
func (s Status) Ready() bool { return s&0x80 == 0 }

// State is the main state machine summary in bits 6:4
func (s Status) State() registers.ChipState { return registers.ChipState((s >> 4) & 0x07) }

// FIFOBytes is the FIFO space or occupancy field, saturating at 15
func (s Status) FIFOBytes() int { return int(s & 0x0F) }

func (s Status) String() string {
	return fmt.Sprintf("%s ready=%t fifo=%d", s.State(), s.Ready(), s.FIFOBytes())
}

// Transceiver is a CC1101 on a hal.Bus. It is not safe for concurrent
// use; one goroutine owns the bus.
type Transceiver struct {
	bus hal.Bus

	// Optional diagnostic LEDs
	TXLED gpio.PinOut
	RXLED gpio.PinOut

	PollTimeout time.Duration
	Settle      Settle

	hdr [1]byte
	st  [1]byte
	one [1]byte
}

// New returns a transceiver with hardware settle delays
func New(bus hal.Bus) *Transceiver {
	return &Transceiver{
		bus:         bus,
		PollTimeout: DefaultPollTimeout,
		Settle:      DefaultSettle(),
	}
}

// Bus returns the underlying bus
func (t *Transceiver) Bus() hal.Bus {
	return t.bus
}

func (t *Transceiver) transact(op string, header byte, w, r []byte) (Status, error) {
	if err := t.bus.Select(); err != nil {
		return 0, &BusError{Op: op, Header: header, Err: err}
	}
	t.hdr[0] = header
	err := t.bus.Exchange(t.hdr[:], t.st[:])
	if err == nil && len(w) > 0 {
		err = t.bus.Exchange(w, r)
	}
	if derr := t.bus.Deselect(); err == nil {
		err = derr
	}
	if err != nil {
		return 0, &BusError{Op: op, Header: header, Err: err}
	}
	return Status(t.st[0]), nil
}

// Strobe issues a command strobe and returns the status byte
func (t *Transceiver) Strobe(cmd byte) (Status, error) {
	return t.transact("strobe", cmd, nil, nil)
}

// WriteRegister writes one configuration register
func (t *Transceiver) WriteRegister(addr, value byte) error {
	t.one[0] = value
	_, err := t.transact("write register", addr, t.one[:], nil)
	return err
}

// WriteBurst writes consecutive registers starting at addr
func (t *Transceiver) WriteBurst(addr byte, data []byte) error {
	_, err := t.transact("write burst", addr|registers.FlagBurst, data, nil)
	return err
}

// ReadBurst reads n consecutive registers starting at addr
func (t *Transceiver) ReadBurst(addr byte, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := t.transact("read burst", addr|registers.FlagBurst|registers.FlagRead, buf, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadStatus reads one status register (0x30-0x3D)
func (t *Transceiver) ReadStatus(addr byte) (byte, Status, error) {
	t.one[0] = 0
	st, err := t.transact("read status", addr|registers.FlagBurst|registers.FlagRead, t.one[:], t.one[:])
	if err != nil {
		return 0, 0, err
	}
	return t.one[0], st, nil
}

// WriteFIFO bursts data into the TX FIFO
func (t *Transceiver) WriteFIFO(data []byte) error {
	_, err := t.transact("write FIFO", registers.HeaderBurstTXFIFO, data, nil)
	return err
}

// ReadFIFOByte reads a single byte from the RX FIFO
func (t *Transceiver) ReadFIFOByte() (byte, error) {
	t.one[0] = 0
	if _, err := t.transact("read FIFO", registers.HeaderSingleRXFIFO, t.one[:], t.one[:]); err != nil {
		return 0, err
	}
	return t.one[0], nil
}

// WritePATable bursts the PA ramp
func (t *Transceiver) WritePATable(pa []byte) error {
	_, err := t.transact("write PA table", registers.HeaderBurstPATABLE, pa, nil)
	return err
}

// ReadStatusRegister implements registers.Accessor
func (t *Transceiver) ReadStatusRegister(addr uint8) (uint8, error) {
	v, _, err := t.ReadStatus(addr)
	return v, err
}

// SendStrobe implements registers.Accessor
func (t *Transceiver) SendStrobe(cmd uint8) error {
	_, err := t.Strobe(cmd)
	return err
}

// PartNum reads the PARTNUM register
func (t *Transceiver) PartNum() (uint8, error) {
	return t.ReadStatusRegister(registers.RegPARTNUM)
}

// Version reads the VERSION register
func (t *Transceiver) Version() (uint8, error) {
	return t.ReadStatusRegister(registers.RegVERSION)
}

// MARCState returns the current radio state machine state
func (t *Transceiver) MARCState() (registers.RadioState, error) {
	v, _, err := t.ReadStatus(registers.RegMARCSTATE)
	return registers.RadioState(v & 0x1F), err
}

// TXBytes returns TX FIFO occupancy and the underflow flag
func (t *Transceiver) TXBytes() (int, bool, error) {
	v, _, err := t.ReadStatus(registers.RegTXBYTES)
	return int(v & registers.FIFOCountMask), v&registers.FIFOErrorFlag != 0, err
}

// RXBytes returns RX FIFO occupancy and the overflow flag
func (t *Transceiver) RXBytes() (int, bool, error) {
	v, _, err := t.ReadStatus(registers.RegRXBYTES)
	return int(v & registers.FIFOCountMask), v&registers.FIFOErrorFlag != 0, err
}

// poll calls cond until it reports done, fails, or PollTimeout passes
func (t *Transceiver) poll(what string, cond func() (bool, error)) error {
	deadline := time.Now().Add(t.PollTimeout)
	for {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%s: %w", what, ErrTimeout)
		}
		sleep(t.Settle.Poll)
	}
}

// WaitForState polls MARCSTATE until the desired state is reached or timeout
func (t *Transceiver) WaitForState(state registers.RadioState) error {
	var last registers.RadioState
	err := t.poll("wait for state", func() (bool, error) {
		current, err := t.MARCState()
		if err != nil {
			return false, fmt.Errorf("failed to read MARCSTATE: %w", err)
		}
		last = current
		return current == state, nil
	})
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("radio state %s, want %s: %w", last, state, err)
	}
	return err
}

// ResetRX waits for IDLE, flushes the RX FIFO and re-enters RX. The
// flush is only legal once the chip has left RX.
func (t *Transceiver) ResetRX() error {
	if err := t.WaitForState(registers.StateIDLE); err != nil {
		return err
	}
	return t.resumeRX()
}

// RecoverRX forces the chip back into RX after an aborted packet
func (t *Transceiver) RecoverRX() error {
	if _, err := t.Strobe(registers.StrobeSIDLE); err != nil {
		return err
	}
	return t.resumeRX()
}

func (t *Transceiver) resumeRX() error {
	if _, err := t.Strobe(registers.StrobeSFRX); err != nil {
		return err
	}
	_, err := t.Strobe(registers.StrobeSRX)
	return err
}

// RSSIToDBm converts a raw RSSI register value to dBm
func RSSIToDBm(rssi uint8) float64 {
	// RSSI is a signed value in 0.5 dB steps with a 74 dB offset
	return float64(int8(rssi))/2 - 74
}

// RadioStatus holds diagnostic information about the last packet
type RadioStatus struct {
	RSSI      uint8
	RSSIdBm   float64
	LQI       uint8
	CRCOk     bool
	MARCSTATE registers.RadioState
	PKTSTATUS uint8
}

// GetRadioStatus reads current radio status registers
func (t *Transceiver) GetRadioStatus() (*RadioStatus, error) {
	rssi, err := t.ReadStatusRegister(registers.RegRSSI)
	if err != nil {
		return nil, fmt.Errorf("failed to read RSSI: %w", err)
	}

	lqi, err := t.ReadStatusRegister(registers.RegLQI)
	if err != nil {
		return nil, fmt.Errorf("failed to read LQI: %w", err)
	}

	marcstate, err := t.MARCState()
	if err != nil {
		return nil, fmt.Errorf("failed to read MARCSTATE: %w", err)
	}

	pktstatus, err := t.ReadStatusRegister(registers.RegPKTSTATUS)
	if err != nil {
		return nil, fmt.Errorf("failed to read PKTSTATUS: %w", err)
	}

	return &RadioStatus{
		RSSI:      rssi,
		RSSIdBm:   RSSIToDBm(rssi),
		LQI:       lqi & 0x7F,
		CRCOk:     (lqi & 0x80) != 0,
		MARCSTATE: marcstate,
		PKTSTATUS: pktstatus,
	}, nil
}

// SetTXLED drives the TX indicator when one is wired
func (t *Transceiver) SetTXLED(on bool) {
	setLED(t.TXLED, on)
}

// SetRXLED drives the RX indicator when one is wired
func (t *Transceiver) SetRXLED(on bool) {
	setLED(t.RXLED, on)
}

func setLED(pin gpio.PinOut, on bool) {
	if pin != nil {
		_ = pin.Out(gpio.Level(on))
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
