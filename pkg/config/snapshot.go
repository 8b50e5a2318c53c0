package config

import (
	"fmt"
	"time"

	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/registers"
)

// Snapshot holds the register contents of a transceiver
type Snapshot struct {
	Source    string                `json:"source"`
	PartNum   uint8                 `json:"part_num"`
	Version   uint8                 `json:"version"`
	Timestamp time.Time             `json:"timestamp"`
	Registers registers.RegisterMap `json:"registers"`
}

// DumpFromDevice reads all registers. The chip is idled for the read and
// put back in RX afterwards if it was receiving.
func DumpFromDevice(a registers.Accessor, source string) (*Snapshot, error) {
	originalState, err := registers.GetRadioState(a)
	if err != nil {
		return nil, fmt.Errorf("failed to get radio state: %w", err)
	}

	if originalState != registers.StateIDLE {
		if err := registers.SetIDLE(a); err != nil {
			return nil, fmt.Errorf("failed to set IDLE state: %w", err)
		}
	}

	registerMap, err := registers.ReadAllRegisters(a)
	if err != nil {
		return nil, fmt.Errorf("failed to read registers: %w", err)
	}

	if originalState == registers.StateRX {
		if err := registers.SetRX(a); err != nil {
			return nil, fmt.Errorf("failed to restore RX: %w", err)
		}
	}

	return &Snapshot{
		Source:    source,
		PartNum:   registerMap.PARTNUM,
		Version:   registerMap.VERSION,
		Timestamp: time.Now(),
		Registers: *registerMap,
	}, nil
}

// ApplyToDevice writes the snapshot's configuration registers and PA
// table, then re-enters RX
func ApplyToDevice(a registers.Accessor, snapshot *Snapshot) error {
	if err := registers.SetIDLE(a); err != nil {
		return fmt.Errorf("failed to set IDLE state: %w", err)
	}
	if err := registers.WriteAllRegisters(a, &snapshot.Registers); err != nil {
		return fmt.Errorf("failed to write registers: %w", err)
	}
	if err := registers.Strobe(a, registers.StrobeSFRX); err != nil {
		return fmt.Errorf("failed to flush RX FIFO: %w", err)
	}
	if err := registers.SetRX(a); err != nil {
		return fmt.Errorf("failed to enter RX: %w", err)
	}
	return nil
}

// GetFrequencyMHz returns the configured channel frequency in MHz
func (s *Snapshot) GetFrequencyMHz() float64 {
	return registers.GetChannelFrequency(&s.Registers, profiles.CrystalMHz) / 1e6
}

// GetSyncWord returns the 16-bit sync word
func (s *Snapshot) GetSyncWord() uint16 {
	return registers.GetSyncWord(&s.Registers)
}

// GetModulationString returns a human-readable modulation format
func (s *Snapshot) GetModulationString() string {
	return registers.ModulationString(registers.GetModulation(&s.Registers))
}

// GetRadioStateString returns a human-readable radio state
func (s *Snapshot) GetRadioStateString() string {
	return registers.RadioState(s.Registers.MARCSTATE & 0x1F).String()
}

// ChannelName returns the host label for the configured channel code
func (s *Snapshot) ChannelName() string {
	return profiles.ChannelName(s.Registers.CHANNR)
}
