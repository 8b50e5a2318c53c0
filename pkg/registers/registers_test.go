package registers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRadioStateString(t *testing.T) {
	assert.Equal(t, "IDLE", StateIDLE.String())
	assert.Equal(t, "RX", StateRX.String())
	assert.Equal(t, "TXFIFO_UNDERFLOW", StateTXFIFO_UNF.String())
	assert.Equal(t, "UNKNOWN", RadioState(0x1F).String())
}

func TestHeaders(t *testing.T) {
	assert.EqualValues(t, 0x7F, HeaderBurstTXFIFO)
	assert.EqualValues(t, 0xBF, HeaderSingleRXFIFO)
	assert.EqualValues(t, 0x7E, HeaderBurstPATABLE)
	assert.EqualValues(t, 0xFA, HeaderTXBYTES)
	assert.EqualValues(t, 0xFB, HeaderRXBYTES)
	assert.EqualValues(t, 0xF5, HeaderMARCSTATE)
}

func TestIsStrobe(t *testing.T) {
	for cmd := uint8(StrobeSRES); cmd <= StrobeSNOP; cmd++ {
		assert.True(t, IsStrobe(cmd), "0x%02X", cmd)
	}
	assert.False(t, IsStrobe(RegTEST0))
	assert.False(t, IsStrobe(HeaderTXBYTES))
	assert.False(t, IsStrobe(HeaderBurstPATABLE))
}

func TestConfigBlockOrder(t *testing.T) {
	block := make([]byte, ConfigBlockLen)
	for i := range block {
		block[i] = byte(i)
	}
	var reg RegisterMap
	reg.SetConfigBlock(block)

	assert.EqualValues(t, RegCHANNR, reg.CHANNR)
	assert.EqualValues(t, RegMDMCFG2, reg.MDMCFG2)
	assert.EqualValues(t, RegFREND0, reg.FREND0)
	assert.EqualValues(t, RegTEST0, reg.TEST0)
	require.Equal(t, block, reg.ConfigBlock())
}

func TestChannelFrequency(t *testing.T) {
	reg := &RegisterMap{FREQ2: 0x23, FREQ1: 0x1D, FREQ0: 0x88, MDMCFG1: 0x42, MDMCFG0: 0xF8}
	assert.InDelta(t, 913.0e6, GetFrequency(reg, 26), 1e3)
	assert.InDelta(t, 199.951e3, GetChannelSpacing(reg, 26), 1)

	reg.CHANNR = 3
	assert.InDelta(t, 913.6e6, GetChannelFrequency(reg, 26), 1e3)
}

// memAccessor backs the register file with a plain array
type memAccessor struct {
	regs    [ConfigBlockLen]byte
	strobes []uint8
}

func (m *memAccessor) ReadBurst(addr uint8, n int) ([]byte, error) {
	return append([]byte(nil), m.regs[addr:int(addr)+n]...), nil
}

func (m *memAccessor) WriteBurst(addr uint8, data []byte) error {
	copy(m.regs[addr:], data)
	return nil
}

func (m *memAccessor) WriteRegister(addr uint8, value uint8) error {
	m.regs[addr] = value
	return nil
}

func (m *memAccessor) ReadStatusRegister(addr uint8) (uint8, error) {
	return 0, nil
}

func (m *memAccessor) SendStrobe(command uint8) error {
	m.strobes = append(m.strobes, command)
	return nil
}

func TestPeekPoke(t *testing.T) {
	m := &memAccessor{}
	require.NoError(t, Poke(m, RegCHANNR, 0x0C))
	assert.EqualValues(t, 0x0C, m.regs[RegCHANNR])

	v, err := Peek(m, RegCHANNR)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0C, v)

	v, err = Peek(m, RegTEST0)
	require.NoError(t, err)
	assert.Zero(t, v)
}
