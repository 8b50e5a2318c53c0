// airchat-survey: Measure background noise on each channel code
//
// Tunes the transceiver to every channel code in turn, samples RSSI over
// several sweeps and reports the quietest channel. With -configure the
// chip is left configured on that channel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/herlein/airchat/pkg/config"
	"github.com/herlein/airchat/pkg/hal/sim"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/scanner"
)

var (
	configPath = flag.String("config", config.DefaultPath, "Daemon configuration file (board wiring)")
	codesFlag  = flag.String("codes", "", "Comma separated channel codes (default: 0-15)")
	sweeps     = flag.Int("sweeps", scanner.DefaultSweeps, "Number of sweeps")
	dwell      = flag.Duration("dwell", scanner.DefaultDwell, "RX settle time per channel")
	configure  = flag.Bool("configure", false, "Configure the quietest channel when done")
	simulate   = flag.Bool("sim", false, "Use a simulated transceiver")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Channel noise survey for airchat boards\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                       # Survey all 16 channels\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -codes 0,1,2 -sweeps 20 # Longer look at three channels\n", os.Args[0])
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := scanner.DefaultConfig()
	cfg.Sweeps = *sweeps
	cfg.Dwell = *dwell
	if *codesFlag != "" {
		codes, err := parseCodes(*codesFlag)
		if err != nil {
			return err
		}
		cfg.Codes = codes
	}

	tr, closeFn, err := open()
	if err != nil {
		return err
	}
	defer closeFn()

	s, err := scanner.New(tr, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Surveying %d channel(s), %d sweep(s)...\n\n", len(cfg.Codes), cfg.Sweeps)
	start := time.Now()
	readings, err := s.Survey(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Survey interrupted")
		return nil
	}
	if err != nil {
		return err
	}

	for _, r := range readings {
		fmt.Printf("  %s\n", r)
	}
	best, _ := scanner.Quietest(readings)
	fmt.Printf("\nQuietest: %s (%.1f dBm) in %s\n", best.Name, best.RSSI, time.Since(start).Round(time.Millisecond))

	if *configure {
		if err := tr.Configure(profiles.ForChannelCode(best.Code), nil); err != nil {
			return fmt.Errorf("configure %s: %w", best.Name, err)
		}
		fmt.Printf("Configured %s\n", best.Name)
	}
	return nil
}

func open() (*radio.Transceiver, func(), error) {
	if *simulate {
		chip := sim.NewChip()
		for _, code := range profiles.ChannelCodes() {
			chip.SetNoise(code, byte(0x20-code*3))
		}
		return radio.New(chip), func() {}, nil
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, nil, err
	}
	tr, board, err := cfg.OpenBoard()
	if err != nil {
		return nil, nil, err
	}
	return tr, func() { board.Close() }, nil
}

func parseCodes(s string) ([]uint8, error) {
	var codes []uint8
	for _, field := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || v < 0 || v > 254 {
			return nil, fmt.Errorf("invalid channel code %q", field)
		}
		codes = append(codes, uint8(v))
	}
	return codes, nil
}
