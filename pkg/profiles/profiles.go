// Package profiles builds the register and PA tables for the link's two
// radio profiles. Channel codes 0-7 select 2FSK and 8 and above select
// OOK; the code itself is written to CHANNR.
package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/herlein/airchat/pkg/registers"
)

// CrystalMHz is the reference crystal on the transceiver board
const CrystalMHz = 26.0

// ConfigTableLen covers IOCFG2 (0x00) through RCCTRL0 (0x28)
const ConfigTableLen = registers.RegRCCTRL0 + 1

// PATableLen is the number of bytes written in the PA table burst. The
// chip's PA table has eight entries, so the ninth wraps onto entry 0.
const PATableLen = 9

// OOKThreshold is the highest channel code that still selects 2FSK
const OOKThreshold = 7

// Modulation is the MDMCFG2[6:4] field
type Modulation uint8

const (
	Mod2FSK Modulation = registers.Mod2FSK
	ModOOK  Modulation = registers.ModASKOOK
)

func (m Modulation) String() string {
	return registers.ModulationString(uint8(m))
}

// ConfigTable holds register values in address order
type ConfigTable [ConfigTableLen]byte

// PATable is the PA ramp written after the configuration registers
type PATable [PATableLen]byte

// Profile is a radio setup selected by a host channel code
type Profile struct {
	Name       string     `json:"name"`
	Modulation Modulation `json:"modulation"`
	Channel    uint8      `json:"channel"`
}

// ProfileConfig is the JSON format for storing profile configurations
type ProfileConfig struct {
	Profile   Profile               `json:"profile"`
	Registers registers.RegisterMap `json:"registers"`
	Timestamp time.Time             `json:"timestamp"`
}

type modemParams struct {
	mdmcfg4  byte
	mdmcfg2  byte
	agcctrl2 byte
	agcctrl1 byte
	agcctrl0 byte
	frend0   byte
	pa       PATable
}

var (
	fskParams = modemParams{
		mdmcfg4: 0xF8, mdmcfg2: 0x03,
		agcctrl2: 0x03, agcctrl1: 0x68, agcctrl0: 0x91,
		frend0: 0x10,
		pa:     PATable{0x7E, 0x8E, 0xDE, 0x1E, 0x27, 0x38, 0x8E, 0x84, 0xCC},
	}
	ookParams = modemParams{
		mdmcfg4: 0xF7, mdmcfg2: 0x33,
		agcctrl2: 0x03, agcctrl1: 0x00, agcctrl0: 0x91,
		frend0: 0x11,
		pa:     PATable{0x7E, 0x03, 0x8E, 0x1E, 0x27, 0x38, 0x8E, 0x84, 0xCC},
	}
)

// ForChannelCode returns the profile for a host channel code. Codes are
// not range checked; any code above OOKThreshold selects OOK.
func ForChannelCode(code uint8) Profile {
	mod := Mod2FSK
	if code > OOKThreshold {
		mod = ModOOK
	}
	return Profile{Name: ChannelName(code), Modulation: mod, Channel: code}
}

// ChannelName is the label the desktop client shows for a channel code:
// CH00-CH07 for 2FSK codes and CH10-CH17 for OOK codes 8-15.
func ChannelName(code uint8) string {
	if code > 15 {
		return fmt.Sprintf("CODE%d", code)
	}
	if code > OOKThreshold {
		return fmt.Sprintf("CH1%d", code-OOKThreshold-1)
	}
	return fmt.Sprintf("CH0%d", code)
}

// ChannelCodes lists the sixteen codes the desktop client offers
func ChannelCodes() []uint8 {
	codes := make([]uint8, 16)
	for i := range codes {
		codes[i] = uint8(i)
	}
	return codes
}

func (p Profile) params() *modemParams {
	if p.Modulation == ModOOK {
		return &ookParams
	}
	return &fskParams
}

// ConfigTable returns the 41 register values for this profile
func (p Profile) ConfigTable() ConfigTable {
	m := p.params()
	return ConfigTable{
		0x06,      // IOCFG2: sync word detected
		0x2E,      // IOCFG1: high impedance
		0x09,      // IOCFG0: clear channel assessment
		0x47,      // FIFOTHR
		0xD3,      // SYNC1
		0x91,      // SYNC0
		0xFF,      // PKTLEN
		0x40,      // PKTCTRL1
		0x01,      // PKTCTRL0: variable length
		0x00,      // ADDR
		p.Channel, // CHANNR
		0x0F,      // FSCTRL1
		0x70,      // FSCTRL0
		0x23,      // FREQ2
		0x1D,      // FREQ1
		0x88,      // FREQ0
		m.mdmcfg4, // MDMCFG4
		0x83,      // MDMCFG3
		m.mdmcfg2, // MDMCFG2
		0x42,      // MDMCFG1
		0xF8,      // MDMCFG0
		0x40,      // DEVIATN
		0x07,      // MCSM2
		0x20,      // MCSM1
		0x08,      // MCSM0
		0x36,      // FOCCFG
		0x6C,      // BSCFG
		m.agcctrl2,
		m.agcctrl1,
		m.agcctrl0,
		0x87, // WOREVT1
		0x6B, // WOREVT0
		0xFB, // WORCTRL
		0x56, // FREND1
		m.frend0,
		0xE9, // FSCAL3
		0x2A, // FSCAL2
		0x00, // FSCAL1
		0x1F, // FSCAL0
		0x41, // RCCTRL1
		0x00, // RCCTRL0
	}
}

// PATable returns the PA ramp for this profile
func (p Profile) PATable() PATable {
	return p.params().pa
}

// ToRegisters converts a Profile to a RegisterMap. The PA table holds
// what the chip keeps after the nine-byte burst wraps.
func (p Profile) ToRegisters() *registers.RegisterMap {
	reg := &registers.RegisterMap{}
	table := p.ConfigTable()
	reg.SetConfigBlock(table[:])
	for i, v := range p.PATable() {
		reg.PA_TABLE[i%len(reg.PA_TABLE)] = v
	}
	return reg
}

// FrequencyHz returns the carrier frequency of the profile's channel
func (p Profile) FrequencyHz() float64 {
	return registers.GetChannelFrequency(p.ToRegisters(), CrystalMHz)
}

// SaveToFile saves a profile configuration to a JSON file
func (p Profile) SaveToFile(path string) error {
	config := ProfileConfig{
		Profile:   p,
		Registers: *p.ToRegisters(),
		Timestamp: time.Now(),
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := EnsureDir(path); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadProfileFromFile loads a profile configuration from a JSON file
func LoadProfileFromFile(path string) (*ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var config ProfileConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	return &config, nil
}

// GetProfilePath returns the default path for a saved profile
func GetProfilePath(name string) string {
	return filepath.Join("etc", "airchat", "profiles", fmt.Sprintf("%s.json", strings.ToLower(name)))
}

// EnsureDir ensures the directory for a file path exists
func EnsureDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return os.MkdirAll(dir, 0755)
}
