package link

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newTestScheduler() (*Scheduler, *gpiotest.Pin, *fakeCounter, *recordingIRQ) {
	cca := &gpiotest.Pin{N: "GDO0", L: gpio.High}
	counter := &fakeCounter{}
	irq := &recordingIRQ{}
	return NewScheduler(cca, irq, counter), cca, counter, irq
}

func TestSchedulerClearChannel(t *testing.T) {
	s, _, _, irq := newTestScheduler()

	res, err := s.Poll(func() error { t.Fatal("nothing pending"); return nil })
	require.NoError(t, err)
	assert.Equal(t, Idle, res)

	s.Submit()
	sent := 0
	res, err = s.Poll(func() error { sent++; return nil })
	require.NoError(t, err)
	assert.Equal(t, Attempted, res)
	assert.Equal(t, 1, sent)
	assert.False(t, s.Pending())
	assert.Equal(t, []string{"disable", "clear", "enable"}, irq.calls)
}

func TestSchedulerClearsPendingOnError(t *testing.T) {
	s, _, _, _ := newTestScheduler()
	boom := errors.New("boom")

	s.Submit()
	res, err := s.Poll(func() error { return boom })
	assert.Equal(t, Attempted, res)
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Pending())
}

func TestSchedulerBackoff(t *testing.T) {
	s, cca, counter, _ := newTestScheduler()
	s.SetBackoff(20)
	s.Submit()
	tx := func() error { return nil }

	require.NoError(t, cca.Out(gpio.Low))
	res, _ := s.Poll(tx)
	assert.Equal(t, Deferred, res)
	assert.Equal(t, 1, counter.resets)
	assert.True(t, s.BackingOff())

	// Clearing the channel does not cut the backoff short.
	require.NoError(t, cca.Out(gpio.High))
	counter.set(20000)
	res, _ = s.Poll(tx)
	assert.Equal(t, Waiting, res)

	counter.set(20001)
	res, _ = s.Poll(tx)
	assert.Equal(t, Retry, res)
	assert.False(t, s.BackingOff())

	res, _ = s.Poll(tx)
	assert.Equal(t, Attempted, res)
}

func TestBackoffMonotonic(t *testing.T) {
	var last uint32
	for b := 0; b <= 255; b++ {
		s, cca, counter, _ := newTestScheduler()
		s.SetBackoff(byte(b))
		require.GreaterOrEqual(t, s.Period(), last)
		last = s.Period()
		require.EqualValues(t, b*BackoffUnit, s.Period())

		s.Submit()
		require.NoError(t, cca.Out(gpio.Low))
		res, _ := s.Poll(func() error { return nil })
		require.Equal(t, Deferred, res)

		counter.set(uint32(b * BackoffUnit))
		res, _ = s.Poll(func() error { return nil })
		require.Equal(t, Waiting, res, "backoff %d", b)

		counter.set(uint32(b*BackoffUnit + 1))
		res, _ = s.Poll(func() error { return nil })
		require.Equal(t, Retry, res, "backoff %d", b)
	}
}
