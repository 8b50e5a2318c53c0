package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/registers"
)

// regEdit is one -poke assignment
type regEdit struct {
	addr  uint8
	value uint8
}

func parseAddr(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad register %q: %w", s, err)
	}
	if v > registers.RegTEST0 {
		return 0, fmt.Errorf("0x%02X is not a configuration register", v)
	}
	return uint8(v), nil
}

// parsePeeks parses a comma separated register list such as "0x0D,0x0E"
func parsePeeks(arg string) ([]uint8, error) {
	var addrs []uint8
	for _, field := range strings.Split(arg, ",") {
		addr, err := parseAddr(field)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// parsePokes parses assignments such as "0x0A=3,0x10=0xC8"
func parsePokes(arg string) ([]regEdit, error) {
	var edits []regEdit
	for _, field := range strings.Split(arg, ",") {
		lhs, rhs, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("bad assignment %q, want addr=value", field)
		}
		addr, err := parseAddr(lhs)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(strings.TrimSpace(rhs), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad value for 0x%02X: %w", addr, err)
		}
		edits = append(edits, regEdit{addr: addr, value: uint8(v)})
	}
	return edits, nil
}

func peek(a registers.Accessor, addrs []uint8, w io.Writer) error {
	for _, addr := range addrs {
		v, err := registers.Peek(a, addr)
		if err != nil {
			return fmt.Errorf("peek 0x%02X: %w", addr, err)
		}
		fmt.Fprintf(w, "0x%02X = 0x%02X\n", addr, v)
	}
	return nil
}

// poke writes each edit and reads it back
func poke(a registers.Accessor, edits []regEdit, w io.Writer) error {
	for _, e := range edits {
		if err := registers.Poke(a, e.addr, e.value); err != nil {
			return fmt.Errorf("poke 0x%02X: %w", e.addr, err)
		}
		got, err := registers.Peek(a, e.addr)
		if err != nil {
			return fmt.Errorf("read back 0x%02X: %w", e.addr, err)
		}
		if got != e.value {
			return fmt.Errorf("0x%02X: wrote 0x%02X, read 0x%02X", e.addr, e.value, got)
		}
		fmt.Fprintf(w, "0x%02X <- 0x%02X\n", e.addr, e.value)
	}
	return nil
}

// saveProfile writes the built profile for code to path, or to the
// default profile path when path is empty
func saveProfile(code uint8, path string) (string, error) {
	p := profiles.ForChannelCode(code)
	if path == "" {
		path = profiles.GetProfilePath(p.Name)
	}
	if err := p.SaveToFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// applyProfile configures tr from a saved profile file
func applyProfile(tr *radio.Transceiver, path string) (*profiles.ProfileConfig, error) {
	pc, err := profiles.LoadProfileFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := tr.Configure(pc.Profile, nil); err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", pc.Profile.Name, err)
	}
	return pc, nil
}
