package radio

import (
	"fmt"
	"time"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/registers"
)

// WriteConfig writes every configuration register with its own single
// access transaction, in address order
func (t *Transceiver) WriteConfig(table profiles.ConfigTable) error {
	for addr, value := range table {
		if err := t.WriteRegister(byte(addr), value); err != nil {
			return fmt.Errorf("failed to write register 0x%02X: %w", addr, err)
		}
	}
	t.bus.FlushReceiveQueue()
	return nil
}

// resetPulse performs the manual power-on reset sequence on CSn
func (t *Transceiver) resetPulse() error {
	if err := t.bus.Deselect(); err != nil {
		return err
	}
	sleep(t.Settle.ResetPulse)
	if err := t.bus.Select(); err != nil {
		return err
	}
	sleep(t.Settle.ResetPulse)
	if err := t.bus.Deselect(); err != nil {
		return err
	}
	sleep(t.Settle.ResetPulse)
	return nil
}

// Configure resets the chip, loads profile p, calibrates and leaves the
// chip in RX. The incoming-packet edge irq is masked for the duration and
// any edge latched meanwhile is dropped.
func (t *Transceiver) Configure(p profiles.Profile, irq hal.Interrupt) error {
	if irq != nil {
		irq.Disable()
		defer func() {
			irq.ClearPending()
			irq.Enable()
		}()
	}
	t.SetTXLED(true)
	t.SetRXLED(true)
	defer func() {
		t.SetTXLED(false)
		t.SetRXLED(false)
	}()

	if err := t.resetPulse(); err != nil {
		return &BusError{Op: "reset pulse", Err: err}
	}
	if _, err := t.Strobe(registers.StrobeSRES); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	sleep(t.Settle.PostReset)

	if err := t.WriteConfig(p.ConfigTable()); err != nil {
		return err
	}
	pa := p.PATable()
	if err := t.WritePATable(pa[:]); err != nil {
		return fmt.Errorf("failed to write PA table: %w", err)
	}
	sleep(t.Settle.Step)

	steps := []struct {
		cmd   byte
		after *time.Duration
	}{
		{registers.StrobeSIDLE, &t.Settle.Step},
		{registers.StrobeSCAL, &t.Settle.PostCalibrate},
		{registers.StrobeSIDLE, &t.Settle.Step},
		{registers.StrobeSFRX, &t.Settle.Step},
		{registers.StrobeSRX, nil},
	}
	for _, s := range steps {
		if _, err := t.Strobe(s.cmd); err != nil {
			return fmt.Errorf("failed to strobe 0x%02X: %w", s.cmd, err)
		}
		if s.after != nil {
			sleep(*s.after)
		}
	}
	return nil
}
