// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/GermanBionicSystems/charlcd/charmap"
)

var (
	frameColor = color.NRGBA{0x20, 0x40, 0xa0, 255}
	litColor   = color.NRGBA{0x70, 0xc0, 0x30, 255}
	unlitColor = color.NRGBA{0x18, 0x30, 0x10, 255}
)

// ConsoleOpts represents the options available for the console renderer.
type ConsoleOpts struct {
	// W defaults to a colorable stdout.
	W       io.Writer
	Palette *ansi256.Palette

	_ struct{}
}

// Console draws a Sim on a terminal using ANSI color codes.
type Console struct {
	s       *Sim
	w       io.Writer
	palette ansi256.Palette
	buf     bytes.Buffer
	drawn   bool
}

// NewConsole returns a Console for s. opts may be nil.
func NewConsole(s *Sim, opts *ConsoleOpts) *Console {
	if opts == nil {
		opts = &ConsoleOpts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Console{s: s, w: w, palette: *p}
}

// Refresh redraws the display in place.
func (c *Console) Refresh() error {
	c.s.mu.Lock()
	rows := make([][]byte, c.s.rows)
	for i := range rows {
		rows[i] = c.s.codes(i)
	}
	on := c.s.on
	lit := c.s.port&bitBacklight != 0
	c.s.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}

	c.buf.Reset()
	if c.drawn {
		// Move back to the top of the previous frame.
		for range len(rows) + 2 {
			_, _ = c.buf.WriteString("\033[1A")
		}
	}
	cell := unlitColor
	if lit {
		cell = litColor
	}
	c.border(len(rows[0]) + 2)
	for _, codes := range rows {
		_, _ = io.WriteString(&c.buf, c.palette.Block(frameColor))
		_, _ = io.WriteString(&c.buf, c.palette.Block(cell))
		for _, code := range codes {
			r := ' '
			if on {
				r = printable(code)
			}
			_, _ = c.buf.WriteRune(r)
		}
		_, _ = io.WriteString(&c.buf, c.palette.Block(cell))
		_, _ = io.WriteString(&c.buf, c.palette.Block(frameColor))
		_, _ = c.buf.WriteString("\033[0m\n")
	}
	c.border(len(rows[0]) + 2)
	c.drawn = true
	_, err := c.buf.WriteTo(c.w)
	return err
}

func (c *Console) border(n int) {
	for range n {
		_, _ = io.WriteString(&c.buf, c.palette.Block(frameColor))
	}
	_, _ = c.buf.WriteString("\033[0m\n")
}

// Halt implements conn.Resource. It resets the terminal colors.
func (c *Console) Halt() error {
	_, err := c.w.Write([]byte("\033[0m"))
	return err
}

func (c *Console) String() string {
	return "Console(" + c.s.String() + ")"
}

func printable(code byte) rune {
	switch {
	case code < 0x10:
		return '▒'
	case code < 0x20:
		return ' '
	}
	return charmap.Rune(code)
}
