package profiles

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/airchat/pkg/registers"
)

func TestModulationBoundary(t *testing.T) {
	for code := 0; code <= 255; code++ {
		p := ForChannelCode(uint8(code))
		want := Mod2FSK
		if code >= 8 {
			want = ModOOK
		}
		require.Equal(t, want, p.Modulation, "code %d", code)
		require.EqualValues(t, code, p.ConfigTable()[registers.RegCHANNR], "code %d", code)
	}
}

func TestProfileTables(t *testing.T) {
	fsk := ForChannelCode(7).ConfigTable()
	ook := ForChannelCode(8).ConfigTable()

	tests := []struct {
		addr     int
		fsk, ook byte
	}{
		{registers.RegMDMCFG4, 0xF8, 0xF7},
		{registers.RegMDMCFG2, 0x03, 0x33},
		{registers.RegAGCCTRL2, 0x03, 0x03},
		{registers.RegAGCCTRL1, 0x68, 0x00},
		{registers.RegAGCCTRL0, 0x91, 0x91},
		{registers.RegFREND0, 0x10, 0x11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.fsk, fsk[tt.addr], "2FSK register 0x%02X", tt.addr)
		assert.Equal(t, tt.ook, ook[tt.addr], "OOK register 0x%02X", tt.addr)
	}

	for addr := range fsk {
		switch addr {
		case registers.RegCHANNR, registers.RegMDMCFG4, registers.RegMDMCFG2,
			registers.RegAGCCTRL1, registers.RegFREND0:
			continue
		}
		assert.Equal(t, fsk[addr], ook[addr], "shared register 0x%02X", addr)
	}

	assert.Equal(t, PATable{0x7E, 0x8E, 0xDE, 0x1E, 0x27, 0x38, 0x8E, 0x84, 0xCC}, ForChannelCode(0).PATable())
	assert.Equal(t, PATable{0x7E, 0x03, 0x8E, 0x1E, 0x27, 0x38, 0x8E, 0x84, 0xCC}, ForChannelCode(15).PATable())
}

func TestFixedRegisters(t *testing.T) {
	table := ForChannelCode(0).ConfigTable()
	assert.EqualValues(t, registers.GDOSyncWord, table[registers.RegIOCFG2])
	assert.EqualValues(t, registers.GDOCCA, table[registers.RegIOCFG0])
	assert.EqualValues(t, 0xFF, table[registers.RegPKTLEN])
	assert.EqualValues(t, registers.PktLenVariable, table[registers.RegPKTCTRL0])
	assert.EqualValues(t, 0x20, table[registers.RegMCSM1])
}

func TestConfigTableIdempotent(t *testing.T) {
	for _, code := range ChannelCodes() {
		assert.Equal(t, ForChannelCode(code).ConfigTable(), ForChannelCode(code).ConfigTable())
	}
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "CH00", ChannelName(0))
	assert.Equal(t, "CH07", ChannelName(7))
	assert.Equal(t, "CH10", ChannelName(8))
	assert.Equal(t, "CH17", ChannelName(15))
	assert.Equal(t, "CODE16", ChannelName(16))
}

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 913.0e6, ForChannelCode(0).FrequencyHz(), 1e3)
	assert.InDelta(t, 913.0e6+5*199.951e3, ForChannelCode(5).FrequencyHz(), 2e3)
}

func TestToRegisters(t *testing.T) {
	reg := ForChannelCode(9).ToRegisters()
	assert.EqualValues(t, 9, reg.CHANNR)
	assert.EqualValues(t, 0x33, reg.MDMCFG2)
	assert.EqualValues(t, registers.ModASKOOK, registers.GetModulation(reg))
	// The ninth PA byte lands on entry 0.
	assert.EqualValues(t, 0xCC, reg.PA_TABLE[0])
	assert.EqualValues(t, 0x03, reg.PA_TABLE[1])
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "ch12.json")
	p := ForChannelCode(10)
	require.NoError(t, p.SaveToFile(path))

	loaded, err := LoadProfileFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded.Profile)
	assert.Equal(t, *p.ToRegisters(), loaded.Registers)
}

func TestGetProfilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("etc", "airchat", "profiles", "ch12.json"), GetProfilePath("CH12"))
}
