// Package sim is a software CC1101 that speaks the SPI register protocol
// through hal.Bus. It models the FIFOs, the packet engine's TX drain and
// RX arrival, the GDO0 clear-channel and GDO2 sync-word lines, and flags
// reads that would hit the RX FIFO last-byte erratum.
package sim

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/herlein/airchat/pkg/registers"
)

// ErrNotSelected is returned by Exchange outside a Select/Deselect pair
var ErrNotSelected = errors.New("sim: exchange without chip select")

// Default per-transaction rates. TX drains a few bytes per bus
// transaction; RX delivers one, so a reader taking a byte per
// transaction keeps pace with the air.
const (
	DefaultDrainRate   = 4
	DefaultArrivalRate = 1
)

// Op is one decoded bus access
type Op struct {
	Header byte
	Data   []byte
}

// Chip is a simulated transceiver
type Chip struct {
	mu  sync.Mutex
	air *Air

	selected bool
	pos      int
	header   byte

	regs  [registers.ConfigBlockLen]byte
	pa    [8]byte
	state registers.RadioState

	txFIFO      []byte
	txSent      []byte
	txUnderflow bool

	rxFIFO     []byte
	rxPending  []byte
	rxInFlight bool
	rxOverflow bool
	inbox      [][]byte

	drainRate   int
	arrivalRate int
	busy        bool
	noise       map[byte]byte

	gdo0 *gpiotest.Pin
	gdo2 *gpiotest.Pin

	outbox      [][]byte
	sent        [][]byte
	fifoWritten int
	violations  int
	selects     int
	record      bool
	ops         []Op
}

// NewChip returns a chip in IDLE that is not attached to any Air
func NewChip() *Chip {
	c := &Chip{
		state:       registers.StateIDLE,
		drainRate:   DefaultDrainRate,
		arrivalRate: DefaultArrivalRate,
		gdo0:        &gpiotest.Pin{N: "GDO0", L: gpio.High},
		gdo2:        &gpiotest.Pin{N: "GDO2", EdgesChan: make(chan gpio.Level, 8)},
	}
	return c
}

// GDO0 is the clear channel assessment output, high when clear
func (c *Chip) GDO0() *gpiotest.Pin { return c.gdo0 }

// GDO2 raises an edge when a sync word is detected
func (c *Chip) GDO2() *gpiotest.Pin { return c.gdo2 }

// SetDrainRate sets how many TX FIFO bytes leave per bus transaction
func (c *Chip) SetDrainRate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainRate = n
}

// SetArrivalRate sets how many received bytes land per bus transaction
func (c *Chip) SetArrivalRate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.arrivalRate = n
}

// SetChannelBusy forces the clear channel assessment low
func (c *Chip) SetChannelBusy(busy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = busy
	c.updateCCA()
}

// SetNoise sets the raw RSSI register value reported while tuned to
// channel
func (c *Chip) SetNoise(channel, rssi byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.noise == nil {
		c.noise = make(map[byte]byte)
	}
	c.noise[channel] = rssi
}

// Record turns bus access logging on or off and clears the log
func (c *Chip) Record(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = on
	c.ops = nil
}

// Ops returns the recorded bus accesses
func (c *Chip) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.ops...)
}

// Sent returns every payload the chip put on the air
func (c *Chip) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// FIFOBytesWritten counts bytes written into the TX FIFO, length bytes included
func (c *Chip) FIFOBytesWritten() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fifoWritten
}

// ResetCounters zeroes the TX FIFO byte count and the erratum counter
func (c *Chip) ResetCounters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fifoWritten = 0
	c.violations = 0
	c.sent = nil
}

// ErratumViolations counts RX FIFO reads that took the last byte of a
// packet still being received, or read an empty FIFO
func (c *Chip) ErratumViolations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violations
}

// Transactions counts chip selects
func (c *Chip) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selects
}

// State returns MARCSTATE
func (c *Chip) State() registers.RadioState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Register returns a configuration register
func (c *Chip) Register(addr uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr]
}

// PATable returns the PA ramp table
func (c *Chip) PATable() [8]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pa
}

// Inject starts reception of payload as if it had been heard on air
func (c *Chip) Inject(payload []byte) {
	c.mu.Lock()
	c.inbox = append(c.inbox, append([]byte(nil), payload...))
	c.maybeStartReceive()
	c.mu.Unlock()
}

// Select implements hal.Bus
func (c *Chip) Select() error {
	c.mu.Lock()
	c.selected = true
	c.pos = 0
	c.selects++
	c.tick()
	out := c.takeOutbox()
	c.mu.Unlock()
	c.broadcast(out)
	return nil
}

// Deselect implements hal.Bus
func (c *Chip) Deselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = false
	c.pos = 0
	return nil
}

// Exchange implements hal.Bus
func (c *Chip) Exchange(w, r []byte) error {
	c.mu.Lock()
	if !c.selected {
		c.mu.Unlock()
		return ErrNotSelected
	}
	for i, b := range w {
		out := c.clock(b)
		if r != nil {
			r[i] = out
		}
	}
	c.mu.Unlock()
	return nil
}

// FlushReceiveQueue implements hal.Bus
func (c *Chip) FlushReceiveQueue() {}

func (c *Chip) clock(b byte) byte {
	if c.pos == 0 {
		status := c.statusByte(b&registers.FlagRead != 0)
		c.header = b
		c.pos = 1
		if c.record {
			c.ops = append(c.ops, Op{Header: b})
		}
		if registers.IsStrobe(b) {
			c.strobe(b & 0x3F)
			c.pos = 0
		}
		return status
	}

	idx := c.pos - 1
	c.pos++
	if c.record {
		op := &c.ops[len(c.ops)-1]
		op.Data = append(op.Data, b)
	}

	addr := c.header & 0x3F
	burst := c.header&registers.FlagBurst != 0
	read := c.header&registers.FlagRead != 0

	var out byte
	single := !burst
	switch {
	case addr == registers.RegFIFO:
		if read {
			out = c.popRX()
		} else {
			c.pushTX(b)
		}
	case addr == registers.RegPATABLE:
		i := idx % len(c.pa)
		if read {
			out = c.pa[i]
		} else {
			c.pa[i] = b
		}
	case addr >= registers.RegPARTNUM:
		out = c.statusRegister(addr)
		single = true
	default:
		a := int(addr)
		if burst {
			a += idx
		}
		if a < len(c.regs) {
			if read {
				out = c.regs[a]
			} else {
				c.regs[a] = b
			}
		}
	}
	if single {
		c.pos = 0
	}
	return out
}

func (c *Chip) chipState() registers.ChipState {
	switch c.state {
	case registers.StateRX:
		return registers.ChipRX
	case registers.StateTX:
		return registers.ChipTX
	case registers.StateRXFIFO_OVF:
		return registers.ChipRXOverflow
	case registers.StateTXFIFO_UNF:
		return registers.ChipTXUnderflow
	default:
		return registers.ChipIdle
	}
}

func (c *Chip) statusByte(read bool) byte {
	avail := registers.FIFOSize - len(c.txFIFO)
	if read {
		avail = len(c.rxFIFO)
	}
	if avail > 15 {
		avail = 15
	}
	return byte(c.chipState())<<4 | byte(avail)
}

func (c *Chip) statusRegister(addr byte) byte {
	switch addr {
	case registers.RegPARTNUM:
		return registers.PartNumCC1101
	case registers.RegVERSION:
		return registers.VersionCC1101
	case registers.RegMARCSTATE:
		return byte(c.state)
	case registers.RegRSSI:
		if v, ok := c.noise[c.regs[registers.RegCHANNR]]; ok {
			return v
		}
		return 0x80
	case registers.RegPKTSTATUS:
		if c.clear() {
			return 0x10
		}
		return 0
	case registers.RegTXBYTES:
		v := byte(len(c.txFIFO))
		if c.txUnderflow {
			v |= registers.FIFOErrorFlag
		}
		return v
	case registers.RegRXBYTES:
		v := byte(len(c.rxFIFO))
		if c.rxOverflow {
			v |= registers.FIFOErrorFlag
		}
		return v
	}
	return 0
}

func (c *Chip) strobe(cmd byte) {
	switch cmd {
	case registers.StrobeSRES:
		c.regs = [registers.ConfigBlockLen]byte{}
		c.pa = [8]byte{}
		c.txFIFO, c.txSent, c.txUnderflow = nil, nil, false
		c.rxFIFO, c.rxPending, c.rxInFlight, c.rxOverflow = nil, nil, false, false
		c.state = registers.StateIDLE
	case registers.StrobeSRX:
		if c.state == registers.StateIDLE {
			c.state = registers.StateRX
			c.maybeStartReceive()
		}
	case registers.StrobeSTX:
		if c.state == registers.StateIDLE || c.state == registers.StateRX {
			c.rxPending, c.rxInFlight = nil, false
			c.txSent = c.txSent[:0]
			c.state = registers.StateTX
		}
	case registers.StrobeSIDLE:
		if c.state == registers.StateRX || c.state == registers.StateTX {
			c.rxPending, c.rxInFlight = nil, false
			c.txSent = c.txSent[:0]
			c.state = registers.StateIDLE
		}
	case registers.StrobeSFRX:
		if c.state == registers.StateIDLE || c.state == registers.StateRXFIFO_OVF {
			c.rxFIFO, c.rxOverflow = nil, false
			c.state = registers.StateIDLE
		}
	case registers.StrobeSFTX:
		if c.state == registers.StateIDLE || c.state == registers.StateTXFIFO_UNF {
			c.txFIFO, c.txUnderflow = nil, false
			c.txSent = c.txSent[:0]
			c.state = registers.StateIDLE
		}
	}
	c.updateCCA()
}

// tick advances the packet engine by one bus transaction
func (c *Chip) tick() {
	switch c.state {
	case registers.StateTX:
		n := min(c.drainRate, len(c.txFIFO))
		c.txSent = append(c.txSent, c.txFIFO[:n]...)
		c.txFIFO = c.txFIFO[n:]
		if len(c.txSent) > 0 && len(c.txSent) >= int(c.txSent[0])+1 {
			payload := append([]byte(nil), c.txSent[1:int(c.txSent[0])+1]...)
			c.sent = append(c.sent, payload)
			if c.air != nil {
				c.outbox = append(c.outbox, payload)
			}
			c.txSent = c.txSent[:0]
			c.state = registers.StateIDLE
		} else if len(c.txFIFO) == 0 && n < c.drainRate {
			c.txUnderflow = true
			c.state = registers.StateTXFIFO_UNF
		}
	case registers.StateRX:
		if !c.rxInFlight {
			return
		}
		n := min(c.arrivalRate, len(c.rxPending))
		if len(c.rxFIFO)+n > registers.FIFOSize {
			c.rxOverflow = true
			c.rxPending, c.rxInFlight = nil, false
			c.state = registers.StateRXFIFO_OVF
			c.updateCCA()
			return
		}
		c.rxFIFO = append(c.rxFIFO, c.rxPending[:n]...)
		c.rxPending = c.rxPending[n:]
		if len(c.rxPending) == 0 {
			c.rxInFlight = false
			c.state = registers.StateIDLE
			c.updateCCA()
		}
	}
}

func (c *Chip) pushTX(b byte) {
	c.fifoWritten++
	if len(c.txFIFO) >= registers.FIFOSize {
		c.txUnderflow = true
		c.state = registers.StateTXFIFO_UNF
		return
	}
	c.txFIFO = append(c.txFIFO, b)
}

func (c *Chip) popRX() byte {
	if len(c.rxFIFO) == 0 || (len(c.rxFIFO) == 1 && c.rxInFlight) {
		c.violations++
	}
	if len(c.rxFIFO) == 0 {
		return 0
	}
	b := c.rxFIFO[0]
	c.rxFIFO = c.rxFIFO[1:]
	return b
}

func (c *Chip) maybeStartReceive() {
	if c.state != registers.StateRX || c.rxInFlight || len(c.inbox) == 0 {
		return
	}
	payload := c.inbox[0]
	c.inbox = c.inbox[1:]
	c.rxPending = append([]byte{byte(len(payload))}, payload...)
	c.rxInFlight = true
	c.updateCCA()
	select {
	case c.gdo2.EdgesChan <- gpio.High:
	default:
	}
}

func (c *Chip) clear() bool {
	return !c.busy && !c.rxInFlight
}

func (c *Chip) updateCCA() {
	c.gdo0.Out(gpio.Level(c.clear()))
}

func (c *Chip) takeOutbox() [][]byte {
	out := c.outbox
	c.outbox = nil
	return out
}

func (c *Chip) broadcast(payloads [][]byte) {
	if c.air == nil {
		return
	}
	for _, p := range payloads {
		c.air.transmit(c, p)
	}
}

func (c *Chip) tuning() (channel, modulation byte) {
	return c.regs[registers.RegCHANNR], c.regs[registers.RegMDMCFG2] & 0x70
}

func (c *Chip) hear(channel, modulation byte, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, mod := c.tuning()
	if ch != channel || mod != modulation {
		return
	}
	c.inbox = append(c.inbox, payload)
	c.maybeStartReceive()
}
