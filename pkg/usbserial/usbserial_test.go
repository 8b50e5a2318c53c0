package usbserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

var testBridges = []Bridge{
	{Chip: "FTDI FT232R", VID: 0x0403, PID: 0x6001, Serial: "A1", Bus: 1, Address: 4},
	{Chip: "WCH CH340", VID: 0x1A86, PID: 0x7523, Serial: "", Bus: 1, Address: 7},
	{Chip: "FTDI FT232R", VID: 0x0403, PID: 0x6001, Serial: "A1", Bus: 2, Address: 3},
}

func TestSelect(t *testing.T) {
	tests := []struct {
		sel     BridgeSelector
		wantBus int
		wantAdr int
		wantErr error
	}{
		{"", 1, 4, nil},
		{"#1", 1, 7, nil},
		{"2:3", 2, 3, nil},
		{"#3", 0, 0, ErrNotFound},
		{"9:9", 0, 0, ErrNotFound},
		{"A1", 0, 0, ErrAmbiguous},
		{"B2", 0, 0, ErrNotFound},
	}
	for _, tt := range tests {
		b, err := tt.sel.Select(testBridges)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "selector %q", tt.sel)
			continue
		}
		require.NoError(t, err, "selector %q", tt.sel)
		assert.Equal(t, tt.wantBus, b.Bus, "selector %q", tt.sel)
		assert.Equal(t, tt.wantAdr, b.Address, "selector %q", tt.sel)
	}

	_, err := BridgeSelector("#x").Select(testBridges)
	assert.Error(t, err)
	_, err = BridgeSelector("").Select(nil)
	assert.ErrorIs(t, err, ErrNoBridges)
}

func TestIsPortPath(t *testing.T) {
	assert.True(t, BridgeSelector("/dev/ttyUSB0").IsPortPath())
	assert.True(t, BridgeSelector("COM3").IsPortPath())
	assert.False(t, BridgeSelector("#0").IsPortPath())
}

func TestLookup(t *testing.T) {
	name, ok := Lookup(0x10C4, 0xEA60)
	assert.True(t, ok)
	assert.Equal(t, "Silicon Labs CP210x", name)
	_, ok = Lookup(0x1234, 0x5678)
	assert.False(t, ok)
}

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A1"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1a86", PID: "7523"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"},
	}
}

func TestBridgesFromPorts(t *testing.T) {
	bridges := BridgesFromPorts(testPorts())
	require.Len(t, bridges, 2)
	assert.Equal(t, "/dev/ttyUSB0", bridges[0].Port)
	assert.Equal(t, "A1", bridges[0].Serial)
	assert.Equal(t, "WCH CH340", bridges[1].Chip)
}

func TestAttachPorts(t *testing.T) {
	bridges := append([]Bridge(nil), testBridges[:2]...)
	bridges = append(bridges, Bridge{Chip: "Silicon Labs CP210x", VID: 0x10C4, PID: 0xEA60})
	AttachPorts(bridges, testPorts())

	assert.Equal(t, "/dev/ttyUSB0", bridges[0].Port)
	assert.Equal(t, "/dev/ttyUSB1", bridges[1].Port)
	assert.Empty(t, bridges[2].Port)
}
