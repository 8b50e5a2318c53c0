// airchatd: Run the radio link between a host serial port and a CC1101
//
// The daemon configures the transceiver, relays chat frames from the host
// to the air with clear-channel backoff, and hands every packet it hears
// back to the host. With -sim the transceiver is simulated in software and
// hears its own transmissions.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"

	"github.com/herlein/airchat/pkg/config"
	"github.com/herlein/airchat/pkg/hal"
	"github.com/herlein/airchat/pkg/hal/sim"
	"github.com/herlein/airchat/pkg/link"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/usbserial"
)

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func main() {
	configPath := flag.String("config", config.DefaultPath, "Configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	simulate := flag.Bool("sim", false, "Use a simulated transceiver")
	port := flag.String("port", "", "Host serial port, bridge selector, or - for stdin/stdout (overrides config)")
	baud := flag.Int("baud", 0, "Host serial baud rate (overrides config)")
	channel := flag.Int("channel", -2, "Initial channel code, -1 to wait for the host (overrides config)")
	flag.Parse()
	defer glog.Flush()

	if *writeConfig {
		if err := config.Save(config.Default(), *configPath); err != nil {
			glog.Exitf("write config: %v", err)
		}
		glog.Infof("default configuration written to %s", *configPath)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	if *port != "" {
		cfg.Serial.Port = *port
	}
	if *baud > 0 {
		cfg.Serial.Baud = *baud
	}
	if *channel >= -1 {
		cfg.InitialChannel = *channel
	}
	if err := cfg.Validate(); err != nil {
		glog.Exitf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		glog.Flush()
		os.Exit(1)
	}()

	if err := run(ctx, cfg, *simulate); err != nil && !errors.Is(err, context.Canceled) {
		glog.Exitf("link stopped: %v", err)
	}
	glog.Info("link stopped")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		glog.Warningf("%s not found, using defaults", path)
		return config.Default(), nil
	}
	return cfg, err
}

func openUART(cfg config.SerialConfig) (hal.UART, io.Closer, error) {
	if cfg.Port == "-" {
		return hal.NewStreamUART(stdio{}), io.NopCloser(nil), nil
	}
	name, err := usbserial.ResolvePort(usbserial.BridgeSelector(cfg.Port))
	if err != nil {
		return nil, nil, err
	}
	glog.Infof("host link on %s at %d baud", name, cfg.Baud)
	return hal.OpenSerialUART(name, cfg.Baud)
}

func run(ctx context.Context, cfg *config.Config, simulate bool) error {
	uart, closer, err := openUART(cfg.Serial)
	if err != nil {
		return err
	}
	defer closer.Close()

	var (
		tr   *radio.Transceiver
		edge hal.EdgeSource
		cca  gpio.PinIn
	)
	if simulate {
		air := sim.NewAir()
		air.SetLoopback(true)
		chip := air.NewChip()
		tr = radio.New(chip)
		edge = hal.NewEdgeWatcher(chip.GDO2())
		cca = chip.GDO0()
		glog.Info("using simulated transceiver")
	} else {
		var board *hal.Board
		tr, board, err = cfg.OpenBoard()
		if err != nil {
			return err
		}
		defer board.Close()
		edge = hal.NewEdgeWatcher(board.Packet)
		cca = board.CCA
		glog.Infof("transceiver on %s", board.Bus)
	}
	cfg.Apply(tr)

	if err := checkChip(tr); err != nil {
		return err
	}

	node := link.NewNode(tr, edge, cca, uart, hal.NewMonotonicCounter(), cfg.LinkOptions())
	go reportStats(ctx, node)
	return node.Run(ctx)
}

func checkChip(tr *radio.Transceiver) error {
	part, err := tr.PartNum()
	if err != nil {
		return err
	}
	version, err := tr.Version()
	if err != nil {
		return err
	}
	glog.Infof("chip part 0x%02X version 0x%02X", part, version)
	return nil
}

func reportStats(ctx context.Context, node *link.Node) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			glog.Infof("stats: %s", node.Stats())
			return
		case <-ticker.C:
			glog.V(1).Infof("stats: %s", node.Stats())
		}
	}
}
