// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cscan probes an I²C bus for devices that acknowledge their
// address, and prints the result like i2cdetect.
package i2cscan

import (
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3/i2c"
)

// Range of addresses probed. Addresses below First and above Last are
// reserved by the I²C specification.
const (
	First uint16 = 0x08
	Last  uint16 = 0x77
)

// Prime performs a throw away read at address 0x00. Some USB bridges, the
// FT2232H in particular, fail the first transaction after being configured.
// The error is expected and ignored.
func Prime(bus i2c.Bus) {
	var r [1]byte
	_ = bus.Tx(0x00, nil, r[:])
}

// Probe returns true if a device acknowledges a one byte read at addr.
func Probe(bus i2c.Bus, addr uint16) bool {
	var r [1]byte
	return bus.Tx(addr, nil, r[:]) == nil
}

// Scan primes the bus, then probes every address from First to Last. It
// returns the addresses that answered, in increasing order.
func Scan(bus i2c.Bus) []uint16 {
	Prime(bus)
	var found []uint16
	for addr := First; addr <= Last; addr++ {
		if Probe(bus, addr) {
			found = append(found, addr)
		}
	}
	return found
}

// Format writes the i2cdetect style grid of addresses 0x00-0x77 to w, found
// addresses shown in hex and the rest as "--", followed by a summary.
func Format(w io.Writer, found []uint16) error {
	present := make(map[uint16]bool, len(found))
	for _, a := range found {
		present[a] = true
	}
	var b strings.Builder
	b.WriteString("     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f\n")
	for addr := uint16(0); addr <= Last; addr++ {
		if addr%16 == 0 {
			fmt.Fprintf(&b, "%02x: ", addr)
		}
		if present[addr] && addr >= First {
			fmt.Fprintf(&b, "%02x ", addr)
		} else {
			b.WriteString("-- ")
		}
		if (addr+1)%16 == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	if len(found) == 0 {
		b.WriteString("No I2C devices found.\n")
	} else {
		fmt.Fprintf(&b, "Found %d I2C device(s):\n", len(found))
		for _, a := range found {
			fmt.Fprintf(&b, "  0x%02X (%d)\n", a, a)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
