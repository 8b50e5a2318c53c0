// lsairchat: List USB-UART bridges an airchat device may be attached to
//
// Enumerates known bridge chips on the USB bus and the serial port each
// one provides. With -a every serial port on the system is listed.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"

	"github.com/herlein/airchat/pkg/usbserial"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output (show additional device details)")
	all := flag.Bool("a", false, "Also list serial ports without a known bridge")
	flag.Parse()

	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list serial ports: %v\n", err)
		os.Exit(1)
	}

	// Create USB context
	context := gousb.NewContext()
	defer context.Close()

	bridges, err := usbserial.FindAllBridges(context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: USB enumeration failed (%v), using serial ports only\n", err)
		bridges = usbserial.BridgesFromPorts(ports)
	} else {
		usbserial.AttachPorts(bridges, ports)
	}

	if len(bridges) == 0 {
		fmt.Println("No USB-UART bridges found")
	} else {
		fmt.Printf("Found %d bridge(s):\n\n", len(bridges))
	}

	for i, b := range bridges {
		if *verbose {
			fmt.Printf("Bridge #%d:\n", i)
			fmt.Printf("  Chip:         %s (%s:%s)\n", b.Chip, b.VID, b.PID)
			fmt.Printf("  Serial:       %s\n", b.Serial)
			if b.Bus > 0 {
				fmt.Printf("  Bus:Address:  %d:%d\n", b.Bus, b.Address)
			}
			fmt.Printf("  Manufacturer: %s\n", b.Manufacturer)
			fmt.Printf("  Product:      %s\n", b.Product)
			fmt.Printf("  Port:         %s\n", b.Port)
			fmt.Println()
		} else {
			fmt.Printf("  #%d  %-24s %-14s %s\n", i, b.Chip, b.Serial, b.Port)
		}
	}

	if *all {
		fmt.Println("\nSerial ports:")
		for _, p := range ports {
			if p.IsUSB {
				fmt.Printf("  %-16s USB %s:%s %s\n", p.Name, p.VID, p.PID, p.SerialNumber)
			} else {
				fmt.Printf("  %-16s\n", p.Name)
			}
		}
	}
}
