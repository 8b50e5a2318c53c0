// Package usbserial finds the USB-UART bridge a transceiver board is
// attached through and maps it to a serial port name.
package usbserial

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

var (
	ErrNoBridges = errors.New("usbserial: no USB-UART bridges found")
	ErrNotFound  = errors.New("usbserial: no bridge matches selector")
	ErrAmbiguous = errors.New("usbserial: selector matches more than one bridge")
	ErrNoPort    = errors.New("usbserial: bridge has no serial port")
)

// Chip identifies a bridge family by USB vendor and product ID
type Chip struct {
	VID  gousb.ID
	PID  gousb.ID
	Name string
}

// KnownChips lists the bridges boards are built with
var KnownChips = []Chip{
	{0x0403, 0x6001, "FTDI FT232R"},
	{0x0403, 0x6015, "FTDI FT-X"},
	{0x10C4, 0xEA60, "Silicon Labs CP210x"},
	{0x1A86, 0x7523, "WCH CH340"},
	{0x0483, 0x5740, "STM32 virtual COM port"},
}

// Lookup returns the family name of a known bridge
func Lookup(vid, pid gousb.ID) (string, bool) {
	for _, c := range KnownChips {
		if c.VID == vid && c.PID == pid {
			return c.Name, true
		}
	}
	return "", false
}

// Bridge is one attached USB-UART bridge
type Bridge struct {
	Chip         string
	VID          gousb.ID
	PID          gousb.ID
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
	Port         string
}

func (b Bridge) String() string {
	loc := "?"
	if b.Bus > 0 {
		loc = fmt.Sprintf("%d:%d", b.Bus, b.Address)
	}
	port := b.Port
	if port == "" {
		port = "-"
	}
	return fmt.Sprintf("%s %s:%s serial=%q at %s port %s", b.Chip, b.VID, b.PID, b.Serial, loc, port)
}

// FindAllBridges enumerates known bridges on the USB bus. Devices are
// only opened long enough to read their string descriptors.
func FindAllBridges(context *gousb.Context) ([]Bridge, error) {
	usbDevices, err := context.OpenDevices(func(descriptor *gousb.DeviceDesc) bool {
		_, ok := Lookup(descriptor.Vendor, descriptor.Product)
		return ok
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	bridges := []Bridge{}
	for _, usbDev := range usbDevices {
		desc := usbDev.Desc
		name, _ := Lookup(desc.Vendor, desc.Product)
		manufacturer, _ := usbDev.Manufacturer()
		product, _ := usbDev.Product()
		serial, _ := usbDev.SerialNumber()
		bridges = append(bridges, Bridge{
			Chip:         name,
			VID:          desc.Vendor,
			PID:          desc.Product,
			Serial:       serial,
			Manufacturer: manufacturer,
			Product:      product,
			Bus:          desc.Bus,
			Address:      desc.Address,
		})
		usbDev.Close()
	}
	return bridges, nil
}

// BridgesFromPorts builds the bridge list from the serial port
// enumerator alone, for hosts where libusb cannot open devices
func BridgesFromPorts(ports []*enumerator.PortDetails) []Bridge {
	bridges := []Bridge{}
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		vid, err1 := parseID(p.VID)
		pid, err2 := parseID(p.PID)
		if err1 != nil || err2 != nil {
			continue
		}
		name, ok := Lookup(vid, pid)
		if !ok {
			continue
		}
		bridges = append(bridges, Bridge{
			Chip:    name,
			VID:     vid,
			PID:     pid,
			Serial:  p.SerialNumber,
			Product: p.Product,
			Port:    p.Name,
		})
	}
	return bridges
}

// AttachPorts fills in Port for each bridge found in ports
func AttachPorts(bridges []Bridge, ports []*enumerator.PortDetails) {
	for i := range bridges {
		b := &bridges[i]
		for _, p := range ports {
			if !p.IsUSB || !strings.EqualFold(p.VID, b.VID.String()) || !strings.EqualFold(p.PID, b.PID.String()) {
				continue
			}
			if b.Serial != "" && p.SerialNumber != b.Serial {
				continue
			}
			b.Port = p.Name
			break
		}
	}
}

func parseID(s string) (gousb.ID, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB ID %q: %w", s, err)
	}
	return gousb.ID(v), nil
}
