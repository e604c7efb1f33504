// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the TI/NXP PCF857X I2C I/O Expander. These
// devices provide 8 pins (PCF8574) or 16 pins (PCF8575) of
// "quasi-bidirectional" input/output. This device is commonly used in LCD
// backpacks, particularly those sold as LCD2004, LCD1602.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// # Notes
//
// This chip doesn't implement normal i2c register architectures. You write 8 or
// 16 bits out, and that sets the corresponding pins, or you read 8/16 bits and
// get the state of the pins. The output latch can't be read back, so Dev keeps
// a mirror of the last value written and every write sends the full port.
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	DefaultAddress uint16 = 0x20
)

var (
	ErrUnknownVariant = errors.New("pcf857x: unknown variant")
)

// Dev is representation of a PCF857x device.
type Dev struct {
	width    int
	chipType Variant

	mu    sync.Mutex
	d     *i2c.Dev
	value uint16
	w     []byte
}

// New creates a new PCF857x io expander and returns it. chip should be one of
// the Variant constants above.
//
// No bus transaction is performed; the mirror starts at 0.
func New(bus i2c.Bus, address uint16, chip Variant) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, chipType: chip}
	switch chip {
	case PCF8574:
		dev.width = 8
	case PCF8575:
		dev.width = 16
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, chip)
	}
	dev.w = make([]byte, dev.width/8)
	return dev, nil
}

// Width returns the number of pins of the port.
func (dev *Dev) Width() int {
	return dev.width
}

// Write sets the output port to value. Exactly one bus transaction is issued,
// even if value equals the current mirror. The mirror is only updated when
// the write succeeds.
func (dev *Dev) Write(value uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for ix := range dev.w {
		dev.w[ix] = byte(value >> (ix * 8))
	}
	if err := dev.d.Tx(dev.w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	dev.value = value
	return nil
}

// Value returns the last value successfully written to the port.
func (dev *Dev) Value() uint16 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Read returns the level of the pins. Only pins whose output is High can be
// pulled Low by external circuitry, so callers should Write ones to the pins
// they want to sample first.
func (dev *Dev) Read() (uint16, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	r := make([]byte, dev.width/8)
	if err := dev.d.Tx(nil, r); err != nil {
		return 0, fmt.Errorf("pcf857x: %w", err)
	}
	result := uint16(r[0])
	if len(r) > 1 {
		result |= uint16(r[1]) << 8
	}
	return result, nil
}

// Halt implements conn.Resource. The port is left as is.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s_%x", dev.chipType, dev.d.Addr)
}
