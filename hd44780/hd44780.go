// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 through a
// PCF8574 I²C GPIO expander, as found on the LCD1602 and LCD2004 backpacks.
//
// The controller is used in 4 bit mode: D4-D7, RS and E are wired to the
// expander, R/W is held low and the busy flag is never read, so every
// operation waits a fixed delay. Text is converted to the Japanese (A00)
// character ROM by the charmap package.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/charlcd/charmap"
)

const packageName = "hd44780"

var (
	// ErrCursorOutOfRange is returned by SetCursor in strict mode for a
	// position outside of the display.
	ErrCursorOutOfRange = errors.New("hd44780: cursor position out of range")
	// ErrUnsupportedCharacter is returned in strict mode for text the
	// character ROM can't display.
	ErrUnsupportedCharacter = charmap.ErrUnsupportedCharacter
	// ErrNotImplemented is returned by Move for the directions the controller
	// can't move the cursor in.
	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
)

// Mode selects how WriteText converts text to character codes.
type Mode int

const (
	// ModePlain maps each rune with charmap.Code.
	ModePlain Mode = iota
	// ModeDecomposed splits voiced kana into base glyph and mark before
	// mapping.
	ModeDecomposed
	// ModeASCII sends the low byte of each rune unchanged. The caller must
	// ensure the text is ASCII.
	ModeASCII
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeDecomposed:
		return "decomposed"
	case ModeASCII:
		return "ascii"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Opts represents the options available for the display.
type Opts struct {
	// Rows and Cols are the size of the display. Zero uses the default.
	Rows int
	Cols int
	// NoBacklight leaves the backlight off at initialization. It is on by
	// default.
	NoBacklight bool
	// Strict returns ErrUnsupportedCharacter and ErrCursorOutOfRange instead
	// of writing '?' and ignoring the cursor move.
	Strict bool
	// Fold normalizes text with charmap.Fold before mapping it.
	Fold bool
	// RuneMap is optional, and if provided, is consulted before the ROM
	// tables. It can map runes to custom CGRAM characters.
	RuneMap map[rune]byte
	// Logger receives debug traces. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultOpts is used when nil is passed to New.
var DefaultOpts = Opts{Rows: 2, Cols: 16}

// Dev is an HD44780 display session.
//
// Implements periph.io/conn/x/display/TextDisplay and display.DisplayBacklight
//
// A Dev must not be used concurrently.
type Dev struct {
	ctrl    *Controller
	rows    int
	cols    int
	strict  bool
	fold    bool
	runeMap map[rune]byte
	log     logrus.FieldLogger

	on         bool
	cursor     bool
	blink      bool
	autoScroll bool
}

func wrap(err error) error {
	if err == nil || strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// New returns a display driven through port, initialized and ready for use.
// opts may be nil.
func New(port Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	dev := &Dev{
		rows:    opts.Rows,
		cols:    opts.Cols,
		strict:  opts.Strict,
		fold:    opts.Fold,
		runeMap: opts.RuneMap,
		log:     opts.Logger,
	}
	if dev.rows <= 0 {
		dev.rows = DefaultOpts.Rows
	}
	if dev.cols <= 0 {
		dev.cols = DefaultOpts.Cols
	}
	if dev.rows > len(rowOffsets) {
		return nil, fmt.Errorf("%s: %d rows not supported", packageName, dev.rows)
	}
	if dev.log == nil {
		dev.log = logrus.StandardLogger()
	}
	dev.log = dev.log.WithField("lcd", port.String())
	dev.ctrl = NewController(NewBackpack(port, !opts.NoBacklight), dev.rows)
	if err := dev.Init(); err != nil {
		return nil, err
	}
	return dev, nil
}

// Controller gives access to the low level instructions.
func (dev *Dev) Controller() *Controller {
	return dev.ctrl
}

// Init runs the controller initialization sequence. Call it again if a bus
// error occurred in the middle of a transfer.
func (dev *Dev) Init() error {
	dev.log.Debug("initializing display")
	if err := dev.ctrl.Init(); err != nil {
		return wrap(err)
	}
	dev.on = true
	dev.cursor = false
	dev.blink = false
	dev.autoScroll = false
	return nil
}

// Enable/Disable auto scroll. When enabled, the display shifts instead of the
// cursor as characters are written.
func (dev *Dev) AutoScroll(enabled bool) error {
	if err := dev.ctrl.EntryMode(true, enabled); err != nil {
		return wrap(err)
	}
	dev.autoScroll = enabled
	return nil
}

// Clears the screen and moves the cursor to the first position.
func (dev *Dev) Clear() error {
	return wrap(dev.ctrl.Clear())
}

// Return the number of columns the display supports
func (dev *Dev) Cols() int {
	return dev.cols
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (dev *Dev) Cursor(modes ...display.CursorMode) error {
	cursor, blink := dev.cursor, dev.blink
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			cursor = false
			blink = false
		case display.CursorUnderline:
			cursor = true
		case display.CursorBlock, display.CursorBlink:
			blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor: %d: %w", packageName, mode, display.ErrInvalidCommand)
		}
	}
	if err := dev.ctrl.DisplayControl(dev.on, cursor, blink); err != nil {
		return wrap(err)
	}
	dev.cursor, dev.blink = cursor, blink
	return nil
}

// Move the cursor home (MinRow(),MinCol())
func (dev *Dev) Home() error {
	return wrap(dev.ctrl.Home())
}

// Return the min column position.
func (dev *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (dev *Dev) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (dev *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		return wrap(dev.ctrl.Shift(false, false))
	case display.Forward:
		return wrap(dev.ctrl.Shift(false, true))
	case display.Down, display.Up:
		return ErrNotImplemented
	}
	return fmt.Errorf("%s: unexpected direction: %d: %w", packageName, dir, display.ErrInvalidCommand)
}

// Move the cursor to arbitrary position, 1 based. Unlike SetCursor, an out of
// range position is always an error.
func (dev *Dev) MoveTo(row, col int) error {
	if row < dev.MinRow() || row > dev.rows || col < dev.MinCol() || col > dev.cols {
		return fmt.Errorf("%s.MoveTo(%d,%d) value out of range: %w", packageName, row, col, ErrCursorOutOfRange)
	}
	return wrap(dev.ctrl.SetCursor(col-1, row-1))
}

// SetCursor moves the cursor to the 0 based col and row. Positions outside of
// the display are ignored, or return ErrCursorOutOfRange in strict mode.
func (dev *Dev) SetCursor(col, row int) error {
	if dev.strict {
		if _, ok := dev.ctrl.cursorAddress(col, row); !ok || col >= dev.cols {
			return fmt.Errorf("%w: (%d,%d)", ErrCursorOutOfRange, col, row)
		}
	}
	dev.log.WithFields(logrus.Fields{"col": col, "row": row}).Debug("set cursor")
	return wrap(dev.ctrl.SetCursor(col, row))
}

// Return the number of rows the display supports.
func (dev *Dev) Rows() int {
	return dev.rows
}

// Return info about the display.
func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780::%s - Rows: %d, Cols: %d", dev.ctrl.Backpack(), dev.rows, dev.cols)
}

// Turn the display on / off. The cursor settings are kept.
func (dev *Dev) Display(on bool) error {
	if err := dev.ctrl.DisplayControl(on, dev.cursor, dev.blink); err != nil {
		return wrap(err)
	}
	dev.on = on
	return nil
}

// Write sends character codes to the display as is.
func (dev *Dev) Write(p []byte) (n int, err error) {
	for _, b := range p {
		if err = dev.ctrl.SendData(b); err != nil {
			return n, wrap(err)
		}
		n++
	}
	return n, nil
}

// Write a string output to the display, in plain mode.
func (dev *Dev) WriteString(text string) (int, error) {
	return dev.WriteText(text, ModePlain)
}

// WriteText writes text at the cursor, converted as selected by mode. A
// newline moves the cursor to the start of the second row.
//
// It returns the number of bytes of text written. When Opts.Fold is set a
// failed write reports 0.
func (dev *Dev) WriteText(text string, mode Mode) (int, error) {
	dev.log.WithField("mode", mode).Debugf("write %q", text)
	src := text
	if dev.fold && mode != ModeASCII {
		src = charmap.Fold(text)
	}
	n, err := dev.writeText(src, mode)
	if err != nil {
		if src != text {
			n = 0
		}
		return n, err
	}
	return len(text), nil
}

func (dev *Dev) writeText(text string, mode Mode) (int, error) {
	var single [1]rune
	for i, r := range text {
		if r == '\n' {
			if err := dev.SetCursor(0, 1); err != nil {
				return i, err
			}
			continue
		}
		glyphs := single[:]
		glyphs[0] = r
		if mode == ModeDecomposed {
			glyphs = charmap.DecomposeRune(r)
		}
		for _, g := range glyphs {
			code, err := dev.code(g, mode)
			if err != nil {
				return i, err
			}
			if err = dev.ctrl.SendData(code); err != nil {
				return i, wrap(err)
			}
		}
	}
	return len(text), nil
}

func (dev *Dev) code(r rune, mode Mode) (byte, error) {
	if mode == ModeASCII {
		return byte(r), nil
	}
	if c, ok := dev.runeMap[r]; ok {
		return c, nil
	}
	if dev.strict {
		c, err := charmap.CodeStrict(r)
		if err != nil {
			return c, wrap(err)
		}
		return c, nil
	}
	return charmap.Code(r), nil
}

// CreateChar stores a custom 5x8 glyph in slot 0-7 and moves the cursor home.
// Map a rune to it with Opts.RuneMap, or write the slot number with Write.
func (dev *Dev) CreateChar(slot byte, pattern [8]byte) error {
	if err := dev.ctrl.CreateChar(slot, pattern); err != nil {
		return wrap(err)
	}
	return wrap(dev.ctrl.SetCursor(0, 0))
}

// SetBacklight turns the backlight on or off.
func (dev *Dev) SetBacklight(on bool) error {
	dev.log.WithField("on", on).Debug("backlight")
	return wrap(dev.ctrl.Backpack().SetBacklight(on))
}

// Turn the display's backlight on or off. The backpack only supports on and
// off, any intensity above 0 is on.
func (dev *Dev) Backlight(intensity display.Intensity) error {
	return dev.SetBacklight(intensity > 0)
}

// Halt clears the display, turns the display off, and turns the backlight off.
func (dev *Dev) Halt() error {
	err := dev.Clear()
	if e := dev.Display(false); err == nil {
		err = e
	}
	if e := dev.SetBacklight(false); err == nil {
		err = e
	}
	return err
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
