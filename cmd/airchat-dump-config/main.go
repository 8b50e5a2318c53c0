// airchat-dump-config: Dump or restore CC1101 register contents as JSON
//
// This tool opens the transceiver wired to the board, reads every
// configuration and status register, and saves them to a JSON snapshot.
// With -load a snapshot is written back to the chip instead. -profile
// saves a built channel profile without touching the chip, and
// -load-profile, -poke and -peek edit or inspect single registers.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/herlein/airchat/pkg/config"
	"github.com/herlein/airchat/pkg/hal/sim"
	"github.com/herlein/airchat/pkg/profiles"
	"github.com/herlein/airchat/pkg/radio"
	"github.com/herlein/airchat/pkg/registers"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Daemon configuration file (board wiring)")
	outputFile := flag.String("o", "", "Output file path (default: etc/airchat/snapshots/<name>.json)")
	name := flag.String("name", "board", "Snapshot name used for the default output path")
	loadFile := flag.String("load", "", "Write this snapshot to the chip instead of dumping")
	verify := flag.Bool("verify", false, "Verify configuration after -load")
	simulate := flag.Bool("sim", false, "Use a simulated transceiver")
	channel := flag.Int("channel", -1, "Configure this channel code before dumping")
	verbose := flag.Bool("v", false, "Verbose output")
	jsonOutput := flag.Bool("json", false, "Output snapshot to stdout as JSON instead of file")
	profileCode := flag.Int("profile", -1, "Save the profile for this channel code to -o and exit")
	profileFile := flag.String("load-profile", "", "Configure the chip from a saved profile")
	pokes := flag.String("poke", "", "Write registers, e.g. 0x0A=3,0x10=0xC8")
	peeks := flag.String("peek", "", "Read registers, e.g. 0x0A,0x10")
	flag.Parse()

	if *profileCode >= 0 {
		if *profileCode > 0xFF {
			fmt.Fprintf(os.Stderr, "Error: channel code %d out of range\n", *profileCode)
			os.Exit(1)
		}
		path, err := saveProfile(uint8(*profileCode), *outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to save profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profile saved to: %s\n", path)
		return
	}

	tr, source, closeFn, err := open(*configPath, *simulate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	if *verbose {
		fmt.Printf("Connected to: %s\n", source)
	}

	part, err := tr.PartNum()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read part number: %v\n", err)
		os.Exit(1)
	}
	version, err := tr.Version()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read version: %v\n", err)
		os.Exit(1)
	}
	if part != registers.PartNumCC1101 || version != registers.VersionCC1101 {
		fmt.Fprintf(os.Stderr, "Warning: unexpected chip part 0x%02X version 0x%02X\n", part, version)
	}

	if *loadFile != "" {
		load(tr, *loadFile, *verify, *verbose)
		return
	}

	if *profileFile != "" || *pokes != "" || *peeks != "" {
		if err := edit(tr, *profileFile, *pokes, *peeks); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *channel >= 0 {
		p := profiles.ForChannelCode(uint8(*channel))
		if err := tr.Configure(p, nil); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to configure %s: %v\n", p.Name, err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Printf("Configured %s\n", p.Name)
		}
	}

	snapshot, err := config.DumpFromDevice(tr, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to dump configuration: %v\n", err)
		os.Exit(1)
	}

	// Output to stdout as JSON
	if *jsonOutput {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to marshal snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	path := *outputFile
	if path == "" {
		path = config.GetSnapshotPath(*name)
	}
	if err := config.SaveSnapshot(snapshot, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to save snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Snapshot saved to: %s\n", path)

	if *verbose {
		printSummary(snapshot)
		printStatus(tr)
	}
}

func open(configPath string, simulate bool) (*radio.Transceiver, string, func(), error) {
	if simulate {
		return radio.New(sim.NewChip()), "sim", func() {}, nil
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, "", nil, err
	}
	tr, board, err := cfg.OpenBoard()
	if err != nil {
		return nil, "", nil, err
	}
	return tr, board.Bus.String(), func() { board.Close() }, nil
}

// edit applies a saved profile, then register writes, then prints reads
func edit(tr *radio.Transceiver, profileFile, pokes, peeks string) error {
	if profileFile != "" {
		pc, err := applyProfile(tr, profileFile)
		if err != nil {
			return err
		}
		fmt.Printf("Configured %s from %s\n", pc.Profile.Name, profileFile)
	}
	if pokes != "" {
		edits, err := parsePokes(pokes)
		if err != nil {
			return err
		}
		if err := poke(tr, edits, os.Stdout); err != nil {
			return err
		}
	}
	if peeks != "" {
		addrs, err := parsePeeks(peeks)
		if err != nil {
			return err
		}
		return peek(tr, addrs, os.Stdout)
	}
	return nil
}

func load(tr *radio.Transceiver, path string, verify, verbose bool) {
	snapshot, err := config.LoadSnapshot(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load snapshot: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		fmt.Printf("Loading snapshot from: %s\n", path)
		printSummary(snapshot)
	}

	if err := config.ApplyToDevice(tr, snapshot); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to apply snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration applied")

	if !verify {
		return
	}
	current, err := config.DumpFromDevice(tr, "verify")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read back configuration: %v\n", err)
		os.Exit(1)
	}
	want, got := snapshot.Registers.ConfigBlock(), current.Registers.ConfigBlock()
	mismatches := 0
	for i := range want {
		if want[i] != got[i] {
			fmt.Printf("  0x%02X: wrote 0x%02X, read 0x%02X\n", i, want[i], got[i])
			mismatches++
		}
	}
	if mismatches > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d register(s) differ\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("Verified")
}

func printSummary(s *config.Snapshot) {
	fmt.Println("\nSnapshot Summary:")
	fmt.Printf("  Source:       %s\n", s.Source)
	fmt.Printf("  Chip:         part 0x%02X version 0x%02X\n", s.PartNum, s.Version)
	fmt.Printf("  Timestamp:    %s\n", s.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Channel:      %s\n", s.ChannelName())
	fmt.Printf("  Frequency:    %.6f MHz\n", s.GetFrequencyMHz())
	fmt.Printf("  Sync Word:    0x%04X\n", s.GetSyncWord())
	fmt.Printf("  Modulation:   %s\n", s.GetModulationString())
	fmt.Printf("  Radio State:  %s\n", s.GetRadioStateString())
	fmt.Printf("  Packet Len:   %d\n", s.Registers.PKTLEN)
}

func printStatus(tr *radio.Transceiver) {
	status, err := tr.GetRadioStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to read radio status: %v\n", err)
		return
	}
	fmt.Println("\nRadio Status:")
	fmt.Printf("  MARCSTATE:    %s\n", status.MARCSTATE)
	fmt.Printf("  RSSI:         %.1f dBm (0x%02X)\n", status.RSSIdBm, status.RSSI)
	fmt.Printf("  LQI:          %d (CRC OK: %v)\n", status.LQI, status.CRCOk)
	fmt.Printf("  PKTSTATUS:    0x%02X\n", status.PKTSTATUS)
}
