package hal

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func startWatcher(t *testing.T, pin *gpiotest.Pin) (*EdgeWatcher, *atomic.Int32) {
	w := NewEdgeWatcher(pin)
	w.poll = 5 * time.Millisecond
	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, func() { fired.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return w.handler.Load() != nil }, time.Second, time.Millisecond)
	return w, &fired
}

func TestEdgeWatcherDelivers(t *testing.T) {
	pin := &gpiotest.Pin{N: "GDO2", EdgesChan: make(chan gpio.Level, 4)}
	_, fired := startWatcher(t, pin)

	pin.EdgesChan <- gpio.High
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
}

func TestEdgeWatcherLatchesWhileDisabled(t *testing.T) {
	pin := &gpiotest.Pin{N: "GDO2", EdgesChan: make(chan gpio.Level, 4)}
	w, fired := startWatcher(t, pin)

	w.Disable()
	pin.EdgesChan <- gpio.High
	require.Eventually(t, func() bool { return w.pending.Load() }, time.Second, time.Millisecond)
	assert.Zero(t, fired.Load())

	w.Enable()
	assert.EqualValues(t, 1, fired.Load())
}

func TestEdgeWatcherClearPending(t *testing.T) {
	pin := &gpiotest.Pin{N: "GDO2", EdgesChan: make(chan gpio.Level, 4)}
	w, fired := startWatcher(t, pin)

	w.Disable()
	pin.EdgesChan <- gpio.High
	require.Eventually(t, func() bool { return w.pending.Load() }, time.Second, time.Millisecond)

	w.ClearPending()
	w.Enable()
	assert.Zero(t, fired.Load())
}

type scriptedStream struct {
	mu     sync.Mutex
	chunks [][]byte
	out    bytes.Buffer
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

func (s *scriptedStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func TestStreamUART(t *testing.T) {
	stream := &scriptedStream{chunks: [][]byte{{0x02, 'H'}, {}, {'i', 0xFF}}}
	u := NewStreamUART(stream)

	var got []byte
	require.NoError(t, u.Run(context.Background(), func(b byte) { got = append(got, b) }))
	assert.Equal(t, []byte{0x02, 'H', 'i', 0xFF}, got)

	require.NoError(t, u.SendByte(0x03))
	require.NoError(t, u.SendByte(0xFF))
	assert.Equal(t, []byte{0x03, 0xFF}, stream.out.Bytes())
}

func TestMonotonicCounter(t *testing.T) {
	c := NewMonotonicCounter()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, c.Read(), uint32(2000))

	c.Reset()
	assert.Less(t, c.Read(), uint32(2000))
}
