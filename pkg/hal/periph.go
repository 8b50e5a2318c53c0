package hal

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// BoardConfig names the SPI port and GPIO lines the transceiver is wired to
type BoardConfig struct {
	SPIPort  string `json:"spi_port"` // empty selects the first port
	SPIHz    int64  `json:"spi_hz"`
	CSPin    string `json:"cs_pin"`
	GDO0Pin  string `json:"gdo0_pin"` // clear channel assessment
	GDO2Pin  string `json:"gdo2_pin"` // sync word / packet edge
	TXLEDPin string `json:"tx_led_pin,omitempty"`
	RXLEDPin string `json:"rx_led_pin,omitempty"`
}

// DefaultBoardConfig matches a Raspberry Pi header with the module on SPI0
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{
		SPIHz:    4000000,
		CSPin:    "GPIO25",
		GDO0Pin:  "GPIO24",
		GDO2Pin:  "GPIO23",
		TXLEDPin: "GPIO17",
		RXLEDPin: "GPIO27",
	}
}

// Board is an opened transceiver wiring
type Board struct {
	Port   spi.PortCloser
	Bus    *PeriphBus
	CCA    gpio.PinIn
	Packet gpio.PinIn
	TXLED  gpio.PinOut
	RXLED  gpio.PinOut
}

// PeriphBus drives the chip select line itself so that a transaction can
// span several exchanges
type PeriphBus struct {
	conn spi.Conn
	cs   gpio.PinOut
}

// NewPeriphBus wraps a connection opened with spi.NoCS and its select pin
func NewPeriphBus(conn spi.Conn, cs gpio.PinOut) *PeriphBus {
	return &PeriphBus{conn: conn, cs: cs}
}

// Select pulls CSn low
func (b *PeriphBus) Select() error {
	return b.cs.Out(gpio.Low)
}

// Deselect releases CSn
func (b *PeriphBus) Deselect() error {
	return b.cs.Out(gpio.High)
}

// Exchange runs one full-duplex transfer
func (b *PeriphBus) Exchange(w, r []byte) error {
	return b.conn.Tx(w, r)
}

// FlushReceiveQueue is a no-op: spidev returns read data synchronously
func (b *PeriphBus) FlushReceiveQueue() {}

func (b *PeriphBus) String() string {
	return fmt.Sprintf("%s cs=%s", b.conn, b.cs)
}

// OpenPeriph initializes periph host drivers and opens the board
func OpenPeriph(cfg BoardConfig) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", cfg.SPIPort, err)
	}

	conn, err := port.Connect(physic.Frequency(cfg.SPIHz)*physic.Hertz, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	cs, err := pinByName(cfg.CSPin)
	if err != nil {
		port.Close()
		return nil, err
	}
	if err := cs.Out(gpio.High); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to drive %s: %w", cfg.CSPin, err)
	}

	board := &Board{Port: port, Bus: NewPeriphBus(conn, cs)}

	cca, err := pinByName(cfg.GDO0Pin)
	if err != nil {
		port.Close()
		return nil, err
	}
	if err := cca.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure %s: %w", cfg.GDO0Pin, err)
	}
	board.CCA = cca

	packet, err := pinByName(cfg.GDO2Pin)
	if err != nil {
		port.Close()
		return nil, err
	}
	if err := packet.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to enable edge detection on %s: %w", cfg.GDO2Pin, err)
	}
	board.Packet = packet

	if board.TXLED, err = optionalLED(cfg.TXLEDPin); err != nil {
		port.Close()
		return nil, err
	}
	if board.RXLED, err = optionalLED(cfg.RXLEDPin); err != nil {
		port.Close()
		return nil, err
	}

	return board, nil
}

// Close releases the SPI port and turns the LEDs off
func (b *Board) Close() error {
	var errs []error
	for _, led := range []gpio.PinOut{b.TXLED, b.RXLED} {
		if led != nil {
			errs = append(errs, led.Out(gpio.Low))
		}
	}
	if b.Packet != nil {
		errs = append(errs, b.Packet.In(gpio.PullDown, gpio.NoEdge))
	}
	errs = append(errs, b.Port.Close())
	return errors.Join(errs...)
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such GPIO: %q", name)
	}
	return p, nil
}

func optionalLED(name string) (gpio.PinOut, error) {
	if name == "" {
		return nil, nil
	}
	p, err := pinByName(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to drive %s: %w", name, err)
	}
	return p, nil
}
