// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"slices"
	"time"
)

// Instructions and their flags.
const (
	cmdClear          byte = 0x01
	cmdHome           byte = 0x02
	cmdEntryMode      byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdShift          byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAM       byte = 0x40
	cmdSetDDRAM       byte = 0x80

	entryIncrement byte = 0x02
	entryShift     byte = 0x01

	displayOn byte = 0x04
	cursorOn  byte = 0x02
	blinkOn   byte = 0x01

	shiftDisplay byte = 0x08
	shiftRight   byte = 0x04

	fnTwoLines byte = 0x08
)

const (
	delayPowerOn   = 50 * time.Millisecond
	delayCommand   = 2 * time.Millisecond
	delayCharacter = time.Millisecond
	// Clear and Home take up to 1.64ms on top of the command settle time.
	delayClear = 2 * time.Millisecond
)

// DDRAM address of the first column of each row.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// StepKind is the type of operation of an initialization Step.
type StepKind int

const (
	// StepWait only waits.
	StepWait StepKind = iota
	// StepNibble strobes the high nibble of Value with RS low.
	StepNibble
	// StepCommand sends Value as a command.
	StepCommand
)

// Step is one operation of the controller initialization sequence. Settle is
// the time waited after the operation, on top of the delays the operation
// itself includes.
type Step struct {
	Kind   StepKind
	Value  byte
	Settle time.Duration
}

// The first nibbles force 8 bit mode whatever state the controller powered up
// in, then switch to 4 bit mode. Order and delays must not change.
var initSequence = []Step{
	{Kind: StepWait, Settle: delayPowerOn},
	{Kind: StepNibble, Value: 0x30, Settle: 5 * time.Millisecond},
	{Kind: StepNibble, Value: 0x30, Settle: time.Millisecond},
	{Kind: StepNibble, Value: 0x30, Settle: time.Millisecond},
	{Kind: StepNibble, Value: 0x20, Settle: time.Millisecond},
	{Kind: StepCommand, Value: cmdFunctionSet | fnTwoLines},
	{Kind: StepCommand, Value: cmdDisplayControl},
	{Kind: StepCommand, Value: cmdClear, Settle: delayClear},
	{Kind: StepCommand, Value: cmdEntryMode | entryIncrement},
	{Kind: StepCommand, Value: cmdDisplayControl | displayOn},
}

// InitSequence returns a copy of the steps run by Controller.Init.
func InitSequence() []Step {
	return slices.Clone(initSequence)
}

// Controller sequences HD44780 instructions and data over a Backpack in 4 bit
// mode. There is no busy flag polling; fixed delays are used instead.
type Controller struct {
	bp   *Backpack
	rows int
}

// NewController returns a Controller for a display with the given number of
// rows. Init must be called before any other operation.
func NewController(bp *Backpack, rows int) *Controller {
	return &Controller{bp: bp, rows: rows}
}

// Backpack returns the backpack the controller writes to.
func (c *Controller) Backpack() *Backpack {
	return c.bp
}

// Init runs the initialization sequence. It leaves the display on and cleared
// with the cursor hidden. It can be called again to recover after a failed
// transfer left the controller out of sync.
func (c *Controller) Init() error {
	for _, s := range initSequence {
		var err error
		switch s.Kind {
		case StepNibble:
			err = c.bp.Strobe(s.Value, false)
		case StepCommand:
			err = c.SendCommand(s.Value)
		}
		if err != nil {
			return err
		}
		if s.Settle > 0 {
			sleep(s.Settle)
		}
	}
	return nil
}

// Transfer sends b as two nibbles, high nibble first. rs selects the data
// register.
func (c *Controller) Transfer(b byte, rs bool) error {
	if err := c.bp.Strobe(b&0xf0, rs); err != nil {
		return err
	}
	return c.bp.Strobe(b<<4, rs)
}

// SendCommand writes an instruction and waits for it to complete.
func (c *Controller) SendCommand(cmd byte) error {
	if err := c.Transfer(cmd, false); err != nil {
		return err
	}
	sleep(delayCommand)
	return nil
}

// SendData writes b to CGRAM or DDRAM at the address counter.
func (c *Controller) SendData(b byte) error {
	if err := c.Transfer(b, true); err != nil {
		return err
	}
	sleep(delayCharacter)
	return nil
}

// Clear blanks the display and moves the cursor to the first position.
func (c *Controller) Clear() error {
	if err := c.SendCommand(cmdClear); err != nil {
		return err
	}
	sleep(delayClear)
	return nil
}

// Home moves the cursor to the first position and undoes display shifts.
func (c *Controller) Home() error {
	if err := c.SendCommand(cmdHome); err != nil {
		return err
	}
	sleep(delayClear)
	return nil
}

// cursorAddress returns the DDRAM address of (col, row). ok is false when the
// row doesn't exist on the display or col is negative.
func (c *Controller) cursorAddress(col, row int) (addr byte, ok bool) {
	if row < 0 || row >= c.rows || row >= len(rowOffsets) || col < 0 {
		return 0, false
	}
	return (rowOffsets[row] + byte(col)) & 0x7f, true
}

// SetCursor moves the cursor to the 0 based col and row. Rows outside of the
// display are ignored.
func (c *Controller) SetCursor(col, row int) error {
	addr, ok := c.cursorAddress(col, row)
	if !ok {
		return nil
	}
	return c.SendCommand(cmdSetDDRAM | addr)
}

// DisplayControl sets the display, cursor and blink switches.
func (c *Controller) DisplayControl(on, cursor, blink bool) error {
	val := cmdDisplayControl
	if on {
		val |= displayOn
	}
	if cursor {
		val |= cursorOn
	}
	if blink {
		val |= blinkOn
	}
	return c.SendCommand(val)
}

// EntryMode sets the address counter direction and whether the display shifts
// when a character is written.
func (c *Controller) EntryMode(increment, shift bool) error {
	val := cmdEntryMode
	if increment {
		val |= entryIncrement
	}
	if shift {
		val |= entryShift
	}
	return c.SendCommand(val)
}

// Shift moves the cursor, or the whole display, by one position.
func (c *Controller) Shift(display, right bool) error {
	val := cmdShift
	if display {
		val |= shiftDisplay
	}
	if right {
		val |= shiftRight
	}
	return c.SendCommand(val)
}

// SetCGRAMAddress points the address counter to CGRAM. Data written
// afterwards goes to the glyph patterns until SetCursor is called.
func (c *Controller) SetCGRAMAddress(addr byte) error {
	return c.SendCommand(cmdSetCGRAM | addr&0x3f)
}

// CreateChar stores a 5x8 glyph in CGRAM slot 0-7, displayed by the codes
// slot and slot+8. Only the low 5 bits of each row are used. The address
// counter is left in CGRAM, so SetCursor must be called before writing text.
func (c *Controller) CreateChar(slot byte, pattern [8]byte) error {
	if err := c.SetCGRAMAddress((slot & 0x07) << 3); err != nil {
		return err
	}
	for _, row := range pattern {
		if err := c.SendData(row & 0x1f); err != nil {
			return err
		}
	}
	return nil
}
