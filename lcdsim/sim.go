// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 display behind a PCF8574 I²C backpack.
//
// Sim implements i2c.Bus. It decodes the bytes written to the expander the
// way the controller does: a nibble is latched on each falling edge of E, the
// controller starts in 8 bit mode and switches to 4 bit mode on a Function
// Set with DL=0. Instructions are executed against emulated DDRAM and CGRAM
// and the resulting screen can be rendered to a terminal or an image.
//
// Timing is not checked.
package lcdsim

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/charlcd/charmap"
)

// Backpack wiring.
const (
	bitRS        byte = 0x01
	bitE         byte = 0x04
	bitBacklight byte = 0x08
)

var (
	// ErrNoDevice is returned for transactions to an address nobody answers.
	ErrNoDevice = errors.New("lcdsim: no device at address")
	// ErrInjected is returned by the write selected with FailAt.
	ErrInjected = errors.New("lcdsim: injected bus error")
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Transfer is an instruction or data byte received by the controller.
type Transfer struct {
	RS    bool
	Value byte
	// Half is set for transfers latched in 8 bit mode, where only the high
	// nibble is wired.
	Half bool
}

// Sim is an emulated backpack and display.
type Sim struct {
	// FailAt makes the FailAt'th byte written (1 based) fail with ErrInjected.
	// It is not applied to the byte. 0 disables failures.
	FailAt int
	// Devices lists other addresses that acknowledge reads and writes.
	Devices []uint16

	mu        sync.Mutex
	addr      uint16
	rows      int
	cols      int
	port      byte
	writes    int
	transfers []Transfer

	fourBit   bool
	pending   bool
	high      byte
	twoLines  bool
	on        bool
	cursor    bool
	blink     bool
	increment bool
	shift     bool
	offset    int
	cgMode    bool
	ac        byte
	ddram     [128]byte
	cgram     [64]byte
}

// New returns a powered up display of rows x cols answering at addr.
func New(addr uint16, rows, cols int) *Sim {
	s := &Sim{addr: addr, rows: rows, cols: cols, increment: true}
	for i := range s.ddram {
		s.ddram[i] = ' '
	}
	return s
}

func (s *Sim) String() string {
	return fmt.Sprintf("lcdsim(%#x %dx%d)", s.addr, s.cols, s.rows)
}

// SetSpeed implements i2c.Bus.
func (s *Sim) SetSpeed(f physic.Frequency) error {
	return nil
}

// Close implements i2c.BusCloser.
func (s *Sim) Close() error {
	return nil
}

// Tx implements i2c.Bus. Reads return the expander port value.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr != s.addr {
		for _, a := range s.Devices {
			if a == addr {
				clear(r)
				return nil
			}
		}
		return fmt.Errorf("%w %#x", ErrNoDevice, addr)
	}
	for _, b := range w {
		s.writes++
		if s.writes == s.FailAt {
			return ErrInjected
		}
		s.latch(b)
	}
	for i := range r {
		r[i] = s.port
	}
	return nil
}

func (s *Sim) latch(b byte) {
	prev := s.port
	s.port = b
	if prev&bitE == 0 || b&bitE != 0 {
		return
	}
	nibble := prev >> 4
	rs := prev&bitRS != 0
	if !s.fourBit {
		s.transfers = append(s.transfers, Transfer{RS: rs, Value: nibble << 4, Half: true})
		s.execute(nibble<<4, rs)
		return
	}
	if !s.pending {
		s.high = nibble
		s.pending = true
		return
	}
	s.pending = false
	v := s.high<<4 | nibble
	s.transfers = append(s.transfers, Transfer{RS: rs, Value: v})
	s.execute(v, rs)
}

func (s *Sim) execute(v byte, rs bool) {
	if rs {
		if s.cgMode {
			s.cgram[s.ac&0x3f] = v
			s.ac = (s.ac + 1) & 0x3f
			return
		}
		s.ddram[s.ac] = v
		s.step(s.increment)
		if s.shift {
			s.scroll(s.increment)
		}
		return
	}
	switch {
	case v&0x80 != 0:
		s.ac = v & 0x7f
		s.cgMode = false
	case v&0x40 != 0:
		s.ac = v & 0x3f
		s.cgMode = true
	case v&0x20 != 0:
		s.fourBit = v&0x10 == 0
		s.twoLines = v&0x08 != 0
	case v&0x10 != 0:
		if v&0x08 != 0 {
			s.scroll(v&0x04 != 0)
		} else {
			s.step(v&0x04 != 0)
		}
	case v&0x08 != 0:
		s.on = v&0x04 != 0
		s.cursor = v&0x02 != 0
		s.blink = v&0x01 != 0
	case v&0x04 != 0:
		s.increment = v&0x02 != 0
		s.shift = v&0x01 != 0
	case v&0x02 != 0:
		s.ac = 0
		s.offset = 0
		s.cgMode = false
	case v&0x01 != 0:
		for i := range s.ddram {
			s.ddram[i] = ' '
		}
		s.ac = 0
		s.offset = 0
		s.cgMode = false
		s.increment = true
	}
}

// step moves the DDRAM address counter, wrapping between lines like the
// controller does.
func (s *Sim) step(forward bool) {
	if !s.twoLines {
		if forward {
			s.ac = (s.ac + 1) % 80
		} else {
			s.ac = (s.ac + 79) % 80
		}
		return
	}
	switch {
	case forward && s.ac == 0x27:
		s.ac = 0x40
	case forward && s.ac >= 0x67:
		s.ac = 0x00
	case forward:
		s.ac++
	case s.ac == 0x40:
		s.ac = 0x27
	case s.ac == 0x00:
		s.ac = 0x67
	default:
		s.ac--
	}
}

// scroll shifts the whole display. Moving the display right shows lower
// addresses.
func (s *Sim) scroll(right bool) {
	if right {
		s.offset--
	} else {
		s.offset++
	}
	s.offset = (s.offset%40 + 40) % 40
}

// Transfers returns the bytes received by the controller so far.
func (s *Sim) Transfers() []Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transfer, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// Data returns the data bytes received by the controller so far.
func (s *Sim) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []byte
	for _, t := range s.transfers {
		if t.RS {
			out = append(out, t.Value)
		}
	}
	return out
}

// Reset forgets the recorded transfers.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = nil
}

// Writes returns the number of bytes written to the expander.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Port returns the last byte written to the expander.
func (s *Sim) Port() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Backlight returns true if the backlight bit is set on the expander.
func (s *Sim) Backlight() bool {
	return s.Port()&bitBacklight != 0
}

// On returns true if the display is enabled.
func (s *Sim) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// FourBit returns true once the controller was switched to 4 bit mode.
func (s *Sim) FourBit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fourBit
}

// Address returns the address counter and whether it points to CGRAM.
func (s *Sim) Address() (addr byte, cgram bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ac, s.cgMode
}

// CGRAM returns the 8 rows of custom character slot.
func (s *Sim) CGRAM(slot int) [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [8]byte
	copy(out[:], s.cgram[(slot&7)*8:])
	return out
}

// Rows returns the number of rows of the display.
func (s *Sim) Rows() int {
	return s.rows
}

// Cols returns the number of columns of the display.
func (s *Sim) Cols() int {
	return s.cols
}

// Codes returns the character codes visible on row.
func (s *Sim) Codes(row int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes(row)
}

func (s *Sim) codes(row int) []byte {
	if row < 0 || row >= s.rows || row >= len(rowOffsets) {
		return nil
	}
	base := rowOffsets[row]
	out := make([]byte, s.cols)
	for col := range out {
		off := (int(base&0x3f) + col + s.offset) % 40
		out[col] = s.ddram[int(base&0x40)+off]
	}
	return out
}

// Line returns row as text, using charmap.Rune for each character code.
func (s *Sim) Line(row int) string {
	codes := s.Codes(row)
	runes := make([]rune, len(codes))
	for i, c := range codes {
		runes[i] = charmap.Rune(c)
	}
	return string(runes)
}

var _ i2c.BusCloser = &Sim{}
