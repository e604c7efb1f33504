// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"
	"time"
)

// Bits of the PCF8574 port as wired on the common LCD1602/LCD2004 backpacks.
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
const (
	PinRS        byte = 1 << 0 // P0 -> RS, register select
	PinRW        byte = 1 << 1 // P1 -> R/W, held low
	PinE         byte = 1 << 2 // P2 -> E, enable strobe
	PinBacklight byte = 1 << 3 // P3 -> backlight transistor
	DataMask     byte = 0xf0   // P4-P7 -> D4-D7
)

// Minimum time each level of the enable strobe is held.
const delayStrobe = time.Millisecond

// sleep is replaced in tests to record the delays instead of waiting.
var sleep = time.Sleep

// Port is the output register of a GPIO expander. pcf857x.Dev implements it.
type Port interface {
	// Write sets all the outputs at once with a single bus transaction.
	Write(value uint16) error
	// Value returns the last value written.
	Value() uint16
	String() string
}

// State is the byte driven on the backpack's expander port.
type State byte

// RS returns true when the data register is selected.
func (s State) RS() bool { return byte(s)&PinRS != 0 }

// RW returns true when the R/W line is high. It is never set by this package.
func (s State) RW() bool { return byte(s)&PinRW != 0 }

// E returns true while the enable strobe is high.
func (s State) E() bool { return byte(s)&PinE != 0 }

// Backlight returns true when the backlight transistor is on.
func (s State) Backlight() bool { return byte(s)&PinBacklight != 0 }

// Nibble returns the value on D4-D7, in the range 0-15.
func (s State) Nibble() byte { return byte(s) >> 4 }

func (s State) String() string {
	return fmt.Sprintf("State{RS:%t RW:%t E:%t BL:%t D:%#x}", s.RS(), s.RW(), s.E(), s.Backlight(), s.Nibble())
}

// Backpack drives the controller lines through the expander port. It owns the
// backlight flag, which is merged into every byte written since the port
// cannot be read back.
type Backpack struct {
	port      Port
	backlight bool
}

// NewBackpack returns a Backpack writing to port. Nothing is written until the
// first operation.
func NewBackpack(port Port, backlight bool) *Backpack {
	return &Backpack{port: port, backlight: backlight}
}

// WriteRaw writes bits to the port, with the backlight bit set if the
// backlight is on. It is the only method that touches the bus.
func (bp *Backpack) WriteRaw(bits byte) error {
	if bp.backlight {
		bits |= PinBacklight
	} else {
		bits &^= PinBacklight
	}
	return bp.port.Write(uint16(bits))
}

// SetBacklight turns the backlight on or off. All other lines are driven low,
// so it must only be called between transfers.
func (bp *Backpack) SetBacklight(on bool) error {
	bp.backlight = on
	return bp.WriteRaw(0)
}

// BacklightOn returns the backlight flag.
func (bp *Backpack) BacklightOn() bool {
	return bp.backlight
}

// Strobe latches the high nibble of data into the controller: the data and RS
// lines are written with E high, then again with E low. Each level is held
// for at least a millisecond. The low nibble of data is ignored.
func (bp *Backpack) Strobe(data byte, rs bool) error {
	out := data & DataMask
	if rs {
		out |= PinRS
	}
	if err := bp.WriteRaw(out | PinE); err != nil {
		return err
	}
	sleep(delayStrobe)
	if err := bp.WriteRaw(out); err != nil {
		return err
	}
	sleep(delayStrobe)
	return nil
}

// State returns the last byte written to the port.
func (bp *Backpack) State() State {
	return State(bp.port.Value())
}

func (bp *Backpack) String() string {
	return bp.port.String()
}
