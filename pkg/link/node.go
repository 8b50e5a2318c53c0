// Package link is the radio link layer: host command framing, channel
// access, and the packet receive state machine, driven by a single
// cooperative loop that owns the transceiver.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"

	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
)

// Defaults for Options
const (
	DefaultIdleInterval           = 2 * time.Millisecond
	DefaultMaxConsecutiveFailures = 3
)

// Options tune a Node
type Options struct {
	// IdleInterval bounds how long the loop sleeps with nothing to do
	IdleInterval time.Duration

	// MaxConsecutiveFailures triggers a link reset when reached
	MaxConsecutiveFailures int

	// RXStallTimeout aborts a packet that stops delivering bytes
	RXStallTimeout time.Duration

	// InitialProfile, if set, is configured before the loop starts
	InitialProfile *profiles.Profile
}

func (o *Options) setDefaults() {
	if o.IdleInterval <= 0 {
		o.IdleInterval = DefaultIdleInterval
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.RXStallTimeout <= 0 {
		o.RXStallTimeout = DefaultStallTimeout
	}
}

// Node owns one transceiver and bridges it to the host UART
type Node struct {
	radio *radio.Transceiver
	edge  hal.EdgeSource
	uart  hal.UART
	host  *HostLink
	rx    *Receiver
	csma  *Scheduler
	opts  Options

	frame    radio.TxFrame
	profile  *profiles.Profile
	failures int
	wake     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// NewNode wires a node. edge delivers the sync-word interrupt, cca is
// the clear channel input and counter times backoffs.
func NewNode(tr *radio.Transceiver, edge hal.EdgeSource, cca gpio.PinIn, uart hal.UART, counter hal.Counter, opts Options) *Node {
	opts.setDefaults()
	n := &Node{
		radio: tr,
		edge:  edge,
		uart:  uart,
		opts:  opts,
		wake:  make(chan struct{}, 1),
	}
	n.host = NewHostLink(uart, n.signal)
	n.rx = NewReceiver(tr)
	n.rx.StallTimeout = opts.RXStallTimeout
	n.csma = NewScheduler(cca, edge, counter)
	return n
}

// Stats returns a snapshot of the counters
func (n *Node) Stats() Stats {
	n.mu.Lock()
	s := n.stats
	n.mu.Unlock()
	s.Dropped = n.host.Dropped()
	s.Overflows = n.host.Overflows()
	return s
}

// Profile returns the last profile configured, or nil
func (n *Node) Profile() *profiles.Profile {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.profile
}

func (n *Node) count(f func(*Stats)) {
	n.mu.Lock()
	f(&n.stats)
	n.mu.Unlock()
}

func (n *Node) signal() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *Node) onEdge() {
	if n.rx.Arm() {
		glog.V(2).Info("sync word")
	}
	n.signal()
}

// Run drives the node until ctx is done or an event source fails
func (n *Node) Run(ctx context.Context) error {
	if p := n.opts.InitialProfile; p != nil {
		n.configure(*p)
	}
	if err := n.host.Queue(BootMessage); err != nil {
		return fmt.Errorf("failed to queue boot message: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	errCh := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := n.edge.Run(ctx, n.onEdge); err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("edge: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		err := n.uart.Run(ctx, n.host.OnByte)
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("uart: %w", err)
			return
		}
		glog.Info("host stream closed")
	}()

	glog.Info("link running")
	ticker := time.NewTicker(n.opts.IdleInterval)
	defer ticker.Stop()
	for {
		if n.Step() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-errCh:
				return err
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-n.wake:
		case <-ticker.C:
		}
	}
}

// Step runs one loop iteration: dispatch a host command, give a pending
// frame its channel access turn, advance the receiver, and send one byte
// to the host. It reports whether anything happened.
func (n *Node) Step() bool {
	active := false

	if cmd, ok := n.host.Next(); ok {
		active = true
		n.dispatch(&cmd)
	}

	// A frame being drained would be flushed by the transmit path.
	if n.csma.Pending() && n.rx.State() == RxIdle {
		if n.pollTX() != Waiting {
			active = true
		}
	}

	if n.rx.State() != RxIdle {
		active = true
		n.stepRX()
	}

	sent, err := n.host.DrainOne()
	if sent {
		active = true
	}
	if err != nil {
		glog.Warningf("host write: %v", err)
		n.count(func(s *Stats) { s.UARTErrors++ })
	}
	return active
}

func (n *Node) dispatch(cmd *Command) {
	n.count(func(s *Stats) { s.Commands++ })
	b := cmd.Bytes()
	switch cmd.Tag() {
	case TagConfig:
		if len(b) < 4 {
			n.discard(cmd, ErrMalformedCommand)
			return
		}
		p := profiles.ForChannelCode(b[1])
		n.csma.SetBackoff(b[2])
		glog.Infof("configure %s (%s, channel %d), backoff %d µs", p.Name, p.Modulation, p.Channel, n.csma.Period())
		n.configure(p)
	case TagData:
		// The whole command, tag and sentinel included, is the payload.
		if err := n.frame.Load(b); err != nil {
			n.discard(cmd, err)
			return
		}
		if n.csma.Pending() {
			n.count(func(s *Stats) { s.Replaced++ })
		}
		n.csma.Submit()
		glog.V(1).Infof("queued %d byte frame", len(b))
	default:
		n.discard(cmd, ErrUnknownCommand)
	}
}

func (n *Node) discard(cmd *Command, why error) {
	glog.Warningf("discarding host command (tag 0x%02X, %d bytes): %v", cmd.Tag(), cmd.Len(), why)
	n.count(func(s *Stats) { s.Discarded++ })
}

func (n *Node) configure(p profiles.Profile) {
	n.rx.Reset()
	n.mu.Lock()
	n.profile = &p
	n.mu.Unlock()
	if err := n.radio.Configure(p, n.edge); err != nil {
		n.fail("configure", err)
		return
	}
	n.count(func(s *Stats) { s.Configures++ })
	n.succeed()
}

func (n *Node) pollTX() PollResult {
	res, err := n.csma.Poll(func() error {
		return n.radio.Transmit(&n.frame)
	})
	switch res {
	case Deferred:
		glog.V(1).Infof("channel busy, backing off %d µs", n.csma.Period())
		n.count(func(s *Stats) { s.Backoffs++ })
	case Attempted:
		if err != nil {
			if errors.Is(err, radio.ErrTXUnderflow) {
				n.count(func(s *Stats) { s.TxUnderflows++ })
			}
			n.fail("transmit", err)
			return res
		}
		glog.V(1).Infof("sent %d byte frame", n.frame.Len())
		n.count(func(s *Stats) { s.TxFrames++ })
		n.succeed()
	}
	return res
}

func (n *Node) stepRX() {
	done, err := n.rx.Step()
	if err != nil {
		if n.rx.State() == RxIdle {
			n.count(func(s *Stats) { s.RxAborts++ })
		}
		n.fail("receive", err)
		return
	}
	if !done {
		return
	}
	frame := n.rx.Frame()
	glog.V(1).Infof("received %d byte frame", len(frame))
	if err := n.host.Queue(frame); err != nil {
		glog.Warningf("host write: %v", err)
		n.count(func(s *Stats) { s.UARTErrors++ })
	}
	n.rx.Release()
	n.count(func(s *Stats) { s.RxFrames++ })
	n.succeed()
}

func (n *Node) succeed() {
	n.failures = 0
}

// fail records err and resets the link after too many failures in a row
func (n *Node) fail(op string, err error) {
	var be *radio.BusError
	switch {
	case errors.As(err, &be):
		n.count(func(s *Stats) { s.BusErrors++ })
	case errors.Is(err, radio.ErrTimeout):
		n.count(func(s *Stats) { s.Timeouts++ })
	}
	n.failures++
	glog.Warningf("%s failed (%d in a row): %v", op, n.failures, err)
	if n.failures >= n.opts.MaxConsecutiveFailures {
		n.failures = 0
		n.resetLink()
	}
}

// resetLink reconfigures the last profile, or just restarts RX when the
// host never configured one
func (n *Node) resetLink() {
	n.count(func(s *Stats) { s.LinkResets++ })
	n.rx.Reset()
	p := n.Profile()
	if p == nil {
		glog.Errorf("link reset: restarting RX")
		if err := n.radio.RecoverRX(); err != nil {
			glog.Errorf("link reset failed: %v", err)
		}
		return
	}
	glog.Errorf("link reset: reconfiguring %s", p.Name)
	if err := n.radio.Configure(*p, n.edge); err != nil {
		glog.Errorf("link reset failed: %v", err)
	}
}
