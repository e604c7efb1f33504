// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// i2cscan lists the FTDI bridges and I²C buses found on the host, then probes
// a bus for devices.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/GermanBionicSystems/charlcd/i2cscan"
)

func listFTDI() {
	all := ftdi.All()
	if len(all) == 0 {
		logrus.Warnln("No FTDI devices found")
		return
	}
	fmt.Println("Available FTDI devices:")
	for _, d := range all {
		var info ftdi.Info
		d.Info(&info)
		fmt.Printf("  %s - %s %04x:%04x\n", d, info.Type, info.VenID, info.DevID)
	}
}

func mainImpl() error {
	busName := flag.String("b", "", "I²C bus to scan, the first FTDI bridge or the host default if empty")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	listFTDI()
	fmt.Println("\nAvailable I²C buses:")
	for _, ref := range i2creg.All() {
		fmt.Printf("  %s %v\n", ref.Name, ref.Aliases)
	}

	bus, err := i2creg.Open(*busName)
	if err != nil {
		return fmt.Errorf("failed to open I²C bus %q: %w", *busName, err)
	}
	defer bus.Close()
	logrus.WithField("bus", bus.String()).Debug("priming and scanning")

	fmt.Printf("\nScanning %s...\n", bus)
	return i2cscan.Format(os.Stdout, i2cscan.Scan(bus))
}

func main() {
	if err := mainImpl(); err != nil {
		logrus.Errorf("i2cscan: %s.", err)
		os.Exit(1)
	}
}
