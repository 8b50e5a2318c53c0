package usbserial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

// BridgeSelector specifies how to identify a bridge
// Supported formats:
//   - ""           : Use first available bridge
//   - "serial"     : Match by serial number (e.g., "A50285BI")
//   - "bus:addr"   : Match by USB bus and address (e.g., "1:10")
//   - "#N"         : Use Nth bridge, 0-indexed (e.g., "#0", "#1")
//   - "/dev/..."   : A serial port path, used as is
type BridgeSelector string

// IsPortPath reports whether the selector names a serial port directly
func (s BridgeSelector) IsPortPath() bool {
	sel := string(s)
	return strings.HasPrefix(sel, "/dev/") || strings.HasPrefix(strings.ToUpper(sel), "COM")
}

// Select picks the bridge matching the selector
func (s BridgeSelector) Select(bridges []Bridge) (Bridge, error) {
	sel := string(s)
	if len(bridges) == 0 {
		return Bridge{}, ErrNoBridges
	}

	// Empty selector - use first bridge
	if sel == "" {
		return bridges[0], nil
	}

	// Index selector: #0, #1, etc.
	if strings.HasPrefix(sel, "#") {
		index, err := strconv.Atoi(sel[1:])
		if err != nil {
			return Bridge{}, fmt.Errorf("invalid bridge index: %s", sel)
		}
		if index < 0 || index >= len(bridges) {
			return Bridge{}, fmt.Errorf("%w: index %d out of range (found %d bridges)", ErrNotFound, index, len(bridges))
		}
		return bridges[index], nil
	}

	// Bus:Address selector: 1:10, 2:5, etc.
	if strings.Contains(sel, ":") {
		parts := strings.SplitN(sel, ":", 2)
		bus, err := strconv.Atoi(parts[0])
		if err != nil {
			return Bridge{}, fmt.Errorf("invalid bus number: %s", parts[0])
		}
		addr, err := strconv.Atoi(parts[1])
		if err != nil {
			return Bridge{}, fmt.Errorf("invalid address number: %s", parts[1])
		}
		for _, b := range bridges {
			if b.Bus == bus && b.Address == addr {
				return b, nil
			}
		}
		return Bridge{}, fmt.Errorf("%w: bus %d address %d", ErrNotFound, bus, addr)
	}

	// Serial number selector
	var matches []Bridge
	for _, b := range bridges {
		if b.Serial == sel {
			matches = append(matches, b)
		}
	}
	switch len(matches) {
	case 0:
		return Bridge{}, fmt.Errorf("%w: serial %s", ErrNotFound, sel)
	case 1:
		return matches[0], nil
	default:
		return Bridge{}, fmt.Errorf("%w: %d bridges with serial %s; use bus:addr format (e.g., 1:10) or index format (e.g., #0)", ErrAmbiguous, len(matches), sel)
	}
}

// ListBridges enumerates bridges over USB and attaches their serial
// ports. When libusb is unavailable the port enumerator is used alone.
func ListBridges() ([]Bridge, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	ctx := gousb.NewContext()
	defer ctx.Close()
	bridges, err := FindAllBridges(ctx)
	if err != nil || len(bridges) == 0 {
		return BridgesFromPorts(ports), nil
	}
	AttachPorts(bridges, ports)
	return bridges, nil
}

// ResolvePort maps a selector to a serial port name
func ResolvePort(selector BridgeSelector) (string, error) {
	if selector.IsPortPath() {
		return string(selector), nil
	}
	bridges, err := ListBridges()
	if err != nil {
		return "", err
	}
	b, err := selector.Select(bridges)
	if err != nil {
		return "", err
	}
	if b.Port == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPort, b)
	}
	return b.Port, nil
}

// SelectorFlagUsage returns usage text for a -d flag
func SelectorFlagUsage() string {
	return `Board selector. Formats:
    ""        - Use first USB-UART bridge
    "serial"  - Match by serial number (e.g., "A50285BI")
    "bus:addr"- Match by USB location (e.g., "1:10")
    "#N"      - Use Nth bridge, 0-indexed (e.g., "#0", "#1")
    "/dev/.." - Serial port path`
}
