package registers

import (
	"fmt"
)

// Accessor is the register-level view of a transceiver
type Accessor interface {
	ReadBurst(addr uint8, n int) ([]byte, error)
	WriteBurst(addr uint8, data []byte) error
	WriteRegister(addr uint8, value uint8) error
	ReadStatusRegister(addr uint8) (uint8, error)
	SendStrobe(command uint8) error
}

// Peek reads a single configuration register
func Peek(a Accessor, addr uint8) (uint8, error) {
	b, err := a.ReadBurst(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Poke writes a single configuration register
func Poke(a Accessor, addr uint8, value uint8) error {
	return a.WriteRegister(addr, value)
}

// Strobe sends a radio strobe command
func Strobe(a Accessor, command uint8) error {
	return a.SendStrobe(command)
}

// GetRadioState reads the current radio state
func GetRadioState(a Accessor) (RadioState, error) {
	state, err := a.ReadStatusRegister(RegMARCSTATE)
	if err != nil {
		return 0, fmt.Errorf("failed to read radio state: %w", err)
	}
	return RadioState(state & 0x1F), nil // MARCSTATE is only 5 bits
}

// SetIDLE puts the radio in idle state
func SetIDLE(a Accessor) error {
	return Strobe(a, StrobeSIDLE)
}

// SetRX puts the radio in receive mode
func SetRX(a Accessor) error {
	return Strobe(a, StrobeSRX)
}

// ReadAllRegisters reads the configuration block, the PA table and the
// status registers into a RegisterMap
func ReadAllRegisters(a Accessor) (*RegisterMap, error) {
	reg := &RegisterMap{}

	block, err := a.ReadBurst(RegIOCFG2, ConfigBlockLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration block: %w", err)
	}
	reg.SetConfigBlock(block)

	pa, err := a.ReadBurst(RegPATABLE, len(reg.PA_TABLE))
	if err != nil {
		return nil, fmt.Errorf("failed to read PA_TABLE: %w", err)
	}
	copy(reg.PA_TABLE[:], pa)

	status := []struct {
		addr uint8
		dst  *uint8
	}{
		{RegPARTNUM, &reg.PARTNUM},
		{RegVERSION, &reg.VERSION},
		{RegFREQEST, &reg.FREQEST},
		{RegLQI, &reg.LQI},
		{RegRSSI, &reg.RSSI},
		{RegMARCSTATE, &reg.MARCSTATE},
		{RegPKTSTATUS, &reg.PKTSTATUS},
		{RegVCO_VC_DAC, &reg.VCO_VC_DAC},
		{RegTXBYTES, &reg.TXBYTES},
		{RegRXBYTES, &reg.RXBYTES},
	}
	for _, s := range status {
		v, err := a.ReadStatusRegister(s.addr)
		if err != nil {
			return nil, fmt.Errorf("failed to read status register 0x%02X: %w", s.addr, err)
		}
		*s.dst = v
	}

	return reg, nil
}

// WriteAllRegisters writes the configuration block one register at a time
// and the PA table in one burst
func WriteAllRegisters(a Accessor, reg *RegisterMap) error {
	for addr, v := range reg.ConfigBlock() {
		if err := a.WriteRegister(uint8(addr), v); err != nil {
			return fmt.Errorf("failed to write register 0x%02X: %w", addr, err)
		}
	}
	if err := a.WriteBurst(RegPATABLE, reg.PA_TABLE[:]); err != nil {
		return fmt.Errorf("failed to write PA_TABLE: %w", err)
	}
	return nil
}

// GetFrequency calculates the carrier frequency in Hz from the register values
// crystalMHz is 26 for the usual CC1101 modules
func GetFrequency(reg *RegisterMap, crystalMHz float64) float64 {
	freq := uint32(reg.FREQ2)<<16 | uint32(reg.FREQ1)<<8 | uint32(reg.FREQ0)
	return float64(freq) * (crystalMHz * 1e6 / 65536.0)
}

// GetChannelSpacing returns the channel spacing in Hz from MDMCFG1/MDMCFG0
func GetChannelSpacing(reg *RegisterMap, crystalMHz float64) float64 {
	e := uint(reg.MDMCFG1 & 0x03)
	m := float64(reg.MDMCFG0)
	return crystalMHz * 1e6 / float64(uint(1)<<18) * (256 + m) * float64(uint(1)<<e)
}

// GetChannelFrequency returns the carrier frequency of the selected channel
func GetChannelFrequency(reg *RegisterMap, crystalMHz float64) float64 {
	return GetFrequency(reg, crystalMHz) + float64(reg.CHANNR)*GetChannelSpacing(reg, crystalMHz)
}

// GetSyncWord returns the 16-bit sync word from the register map
func GetSyncWord(reg *RegisterMap) uint16 {
	return uint16(reg.SYNC1)<<8 | uint16(reg.SYNC0)
}

// GetModulation returns the modulation format from MDMCFG2
func GetModulation(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & 0x70
}

// GetSyncMode returns the sync mode from MDMCFG2
func GetSyncMode(reg *RegisterMap) uint8 {
	return reg.MDMCFG2 & 0x07
}

// ModulationString returns a human-readable modulation format
func ModulationString(mod uint8) string {
	switch mod {
	case Mod2FSK:
		return "2-FSK"
	case ModGFSK:
		return "GFSK"
	case ModASKOOK:
		return "ASK/OOK"
	case Mod4FSK:
		return "4-FSK"
	case ModMSK:
		return "MSK"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", mod)
	}
}
