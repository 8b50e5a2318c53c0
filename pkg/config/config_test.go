package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/airchat/pkg/hal/sim"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/registers"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Nil(t, c.InitialProfile())
	assert.Equal(t, radio.DefaultSettle(), c.Settle())
	assert.Equal(t, 38400, c.Serial.Baud)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "airchatd.json")
	c := Default()
	c.InitialChannel = 12
	c.Link.RXStallTimeout = Duration{500 * time.Millisecond}
	require.NoError(t, Save(c, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rx_stall_timeout": "500ms"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)

	p := loaded.InitialProfile()
	require.NotNil(t, p)
	assert.Equal(t, profiles.ModOOK, p.Modulation)
	assert.Equal(t, 500*time.Millisecond, loaded.LinkOptions().RXStallTimeout)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial": {"port": "/dev/ttyUSB0"}}`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", c.Serial.Port)
	assert.Equal(t, 38400, c.Serial.Baud)
	assert.Equal(t, -1, c.InitialChannel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"baud", func(c *Config) { c.Serial.Baud = 0 }, ErrInvalidBaud},
		{"channel", func(c *Config) { c.InitialChannel = 256 }, ErrInvalidChannel},
		{"timeout", func(c *Config) { c.Link.PollTimeout = Duration{} }, ErrInvalidTimeout},
		{"spi", func(c *Config) { c.Board.SPIHz = 0 }, ErrInvalidSPI},
		{"pin", func(c *Config) { c.Board.GDO2Pin = "" }, ErrMissingPin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1.5s"`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration)

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func newSimRadio(t *testing.T) (*radio.Transceiver, *sim.Chip) {
	chip := sim.NewChip()
	tr := radio.New(chip)
	tr.Settle = radio.Settle{}
	return tr, chip
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr, chip := newSimRadio(t)
	require.NoError(t, tr.Configure(profiles.ForChannelCode(4), nil))

	snap, err := DumpFromDevice(tr, "sim")
	require.NoError(t, err)
	assert.Equal(t, registers.StateRX, chip.State())
	assert.EqualValues(t, registers.VersionCC1101, snap.Version)
	assert.Equal(t, "CH04", snap.ChannelName())
	assert.Equal(t, "2-FSK", snap.GetModulationString())
	assert.EqualValues(t, 0xD391, snap.GetSyncWord())
	assert.InDelta(t, 913.8, snap.GetFrequencyMHz(), 0.01)

	path := filepath.Join(t.TempDir(), GetSnapshotPath("board"))
	require.NoError(t, SaveSnapshot(snap, path))
	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Registers, loaded.Registers)

	other, otherChip := newSimRadio(t)
	require.NoError(t, ApplyToDevice(other, loaded))
	for addr := 0; addr < profiles.ConfigTableLen; addr++ {
		assert.Equal(t, chip.Register(uint8(addr)), otherChip.Register(uint8(addr)), "register 0x%02X", addr)
	}
	assert.Equal(t, chip.PATable(), otherChip.PATable())
	assert.Equal(t, registers.StateRX, otherChip.State())
}

func TestApply(t *testing.T) {
	c := Default()
	c.Link.PollTimeout = Duration{500 * time.Millisecond}
	c.Link.Settle.PostCalibrate = Duration{time.Millisecond}

	tr := radio.New(sim.NewChip())
	c.Apply(tr)
	assert.Equal(t, 500*time.Millisecond, tr.PollTimeout)
	assert.Equal(t, time.Millisecond, tr.Settle.PostCalibrate)
	assert.Equal(t, radio.DefaultSettle().Step, tr.Settle.Step)
}
