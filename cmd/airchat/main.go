// airchat: Interactive chat client for an airchat device
//
// Connects to the device's serial port, configures a channel and username,
// and prints messages heard over the air. Sent and received lines are kept
// in a local history database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/herlein/airchat/pkg/history"
	"github.com/herlein/airchat/pkg/host"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/usbserial"
)

func main() {
	deviceSel := flag.String("d", "", usbserial.SelectorFlagUsage())
	user := flag.String("u", "", "Username, 3-16 characters (default: derived from machine id)")
	channel := flag.Int("c", -1, "Channel code to configure on start")
	historyPath := flag.String("history", history.DefaultPath, "History database path")
	flag.Parse()

	port, err := usbserial.ResolvePort(usbserial.BridgeSelector(*deviceSel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, closer, err := host.Dial(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	store, err := history.Open(*historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	name := *user
	if name == "" {
		name = host.DefaultUsername()
	}
	if err := host.ValidateUsername(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := newChatShell(client, store, name)
	s.shell.Printf("Connected to %s as %s\n", port, name)
	if *channel >= 0 {
		if err := s.configure(uint8(*channel)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	go s.receive()

	if args := flag.Args(); len(args) > 0 {
		if err := s.shell.Process(args...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	s.shell.Run()
}

func (s *chatShell) receive() {
	for {
		ev, err := s.client.ReadEvent()
		if errors.Is(err, io.EOF) {
			s.shell.Println("device disconnected")
			return
		}
		if err != nil && !errors.Is(err, host.ErrFrameTooLong) {
			s.shell.Printf("read error: %v\n", err)
			return
		}
		switch ev.Kind {
		case host.EventMessage:
			s.shell.Printf("< %s: %s\n", ev.User, ev.Text)
			s.record(history.Received, ev.User, ev.Text)
		case host.EventReset:
			s.shell.Println("device reset - please reconfigure channel")
			s.mu.Lock()
			s.configured = false
			s.mu.Unlock()
		default:
			s.shell.Printf("garbled frame: % x\n", ev.Raw)
		}
	}
}

func parseChannel(arg string) (uint8, error) {
	for _, code := range profiles.ChannelCodes() {
		if strings.EqualFold(arg, profiles.ChannelName(code)) {
			return code, nil
		}
	}
	code, err := strconv.Atoi(arg)
	if err != nil || code < 0 || code > 254 {
		return 0, fmt.Errorf("invalid channel %q", arg)
	}
	return uint8(code), nil
}
