package main

import (
	"bytes"
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

func newSimRadio(t *testing.T) (*radio.Transceiver, *sim.Chip) {
	t.Helper()
	chip := sim.NewChip()
	tr := radio.New(chip)
	tr.Settle = radio.Settle{}
	tr.PollTimeout = time.Second
	return tr, chip
}

func TestParsePokes(t *testing.T) {
	edits, err := parsePokes("0x0A=3, 0x10=0xC8")
	require.NoError(t, err)
	assert.Equal(t, []regEdit{{addr: 0x0A, value: 3}, {addr: 0x10, value: 0xC8}}, edits)

	for _, arg := range []string{"0x0A", "0x30=1", "0x0A=0x100", "x=1", ""} {
		_, err := parsePokes(arg)
		assert.Error(t, err, arg)
	}
}

func TestParsePeeks(t *testing.T) {
	addrs, err := parsePeeks("0x0A,16,0x2E")
	require.NoError(t, err)
	assert.Equal(t, []uint8{0x0A, 0x10, 0x2E}, addrs)

	_, err = parsePeeks("0x0A,0x2F")
	assert.Error(t, err)
}

func TestPokeThenPeek(t *testing.T) {
	tr, _ := newSimRadio(t)
	var out bytes.Buffer

	require.NoError(t, poke(tr, []regEdit{{addr: registers.RegCHANNR, value: 0x09}}, &out))
	assert.Equal(t, "0x0A <- 0x09\n", out.String())

	out.Reset()
	require.NoError(t, peek(tr, []uint8{registers.RegCHANNR}, &out))
	assert.Equal(t, "0x0A = 0x09\n", out.String())
}

func TestProfileSaveAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ch12.json")
	saved, err := saveProfile(10, path)
	require.NoError(t, err)
	assert.Equal(t, path, saved)

	tr, chip := newSimRadio(t)
	pc, err := applyProfile(tr, path)
	require.NoError(t, err)
	assert.Equal(t, profiles.ForChannelCode(10), pc.Profile)
	assert.Equal(t, registers.StateRX, chip.State())

	channel, err := registers.Peek(tr, registers.RegCHANNR)
	require.NoError(t, err)
	assert.EqualValues(t, 10, channel)

	_, err = applyProfile(tr, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
