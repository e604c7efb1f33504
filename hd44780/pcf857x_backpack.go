// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/i2c"

	"github.com/GermanBionicSystems/charlcd/pcf857x"
)

// DefaultAddress is the factory address of PCF8574T based backpacks. Boards
// built around the PCF8574AT answer at 0x3f instead.
const DefaultAddress uint16 = 0x27

// This function returns a display configured to use the pcf8574 i2c backpacks.
//
// # Product Information
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
//
// To use this, get an I2C bus, and call this function with the bus, i2c
// address and options. The display is initialized before returning. opts may
// be nil to use DefaultOpts.
func NewPCF857xBackpack(bus i2c.Bus, address uint16, opts *Opts) (*Dev, error) {
	pcf, err := pcf857x.New(bus, address, pcf857x.PCF8574)
	if err != nil {
		return nil, wrap(err)
	}
	return New(pcf, opts)
}
