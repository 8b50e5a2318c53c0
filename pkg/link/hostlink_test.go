package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(h *HostLink, b ...byte) {
	for _, c := range b {
		h.OnByte(c)
	}
}

func TestHostLinkFramesCommands(t *testing.T) {
	notified := 0
	h := NewHostLink(newFakeUART(), func() { notified++ })

	feed(h, 0x02, 'H', 'i')
	_, ok := h.Next()
	assert.False(t, ok)

	feed(h, 0xFF, 0x01, 0x03, 0x14, 0xFF)
	cmd, ok := h.Next()
	require.True(t, ok)
	assert.EqualValues(t, TagData, cmd.Tag())
	assert.Equal(t, 4, cmd.Len())
	assert.Equal(t, []byte{0x02, 'H', 'i', 0xFF}, cmd.Bytes())

	cmd, ok = h.Next()
	require.True(t, ok)
	assert.EqualValues(t, TagConfig, cmd.Tag())
	assert.Equal(t, []byte{0x01, 0x03, 0x14, 0xFF}, cmd.Bytes())
	assert.Equal(t, 2, notified)
}

func TestHostLinkLongestCommand(t *testing.T) {
	h := NewHostLink(newFakeUART(), nil)
	cmd := make([]byte, MaxCommandLen)
	cmd[0] = TagData
	cmd[len(cmd)-1] = Sentinel
	feed(h, cmd...)

	got, ok := h.Next()
	require.True(t, ok)
	assert.Equal(t, cmd, got.Bytes())
	assert.Zero(t, h.Overflows())
}

func TestHostLinkOverflow(t *testing.T) {
	h := NewHostLink(newFakeUART(), nil)
	junk := make([]byte, MaxCommandLen+20)
	junk[0] = TagData
	feed(h, junk...)
	feed(h, Sentinel)

	_, ok := h.Next()
	assert.False(t, ok)
	assert.EqualValues(t, 1, h.Overflows())

	feed(h, 0x02, 'o', 'k', 0xFF)
	cmd, ok := h.Next()
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 'o', 'k', 0xFF}, cmd.Bytes())
}

func TestHostLinkDropsWhenFull(t *testing.T) {
	h := NewHostLink(newFakeUART(), nil)
	for i := 0; i < commandQueueLen+1; i++ {
		feed(h, 0x02, byte(i), 0xFF)
	}
	assert.EqualValues(t, 1, h.Dropped())
	for i := 0; i < commandQueueLen; i++ {
		cmd, ok := h.Next()
		require.True(t, ok)
		assert.Equal(t, byte(i), cmd.Bytes()[1])
	}
}

func TestHostLinkDrain(t *testing.T) {
	uart := newFakeUART()
	h := NewHostLink(uart, nil)

	require.NoError(t, h.Queue(BootMessage))
	assert.Equal(t, 2, h.Pending())

	sent, err := h.DrainOne()
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, []byte{TagBoot}, uart.written())

	// A new payload flushes what is still pending first.
	require.NoError(t, h.Queue([]byte{0x02, 'x', 0xFF}))
	assert.Equal(t, []byte{TagBoot, Sentinel}, uart.written())
	require.NoError(t, h.Flush())
	assert.Equal(t, []byte{TagBoot, Sentinel, 0x02, 'x', 0xFF}, uart.written())

	sent, err = h.DrainOne()
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestHostLinkWriteError(t *testing.T) {
	uart := newFakeUART()
	uart.err = errors.New("unplugged")
	h := NewHostLink(uart, nil)

	require.NoError(t, h.Queue([]byte{1, 2}))
	assert.Error(t, h.Flush())
	assert.Zero(t, h.Pending())
}
