// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// ImageOpts represents the options available for Image.
type ImageOpts struct {
	// CellWidth and CellHeight are the size in pixels of one character.
	// Defaults to 16x24.
	CellWidth  int
	CellHeight int
	// TTF is an optional TrueType font. basicfont.Face7x13 is used if nil,
	// which only covers ASCII.
	TTF []byte
	// FontSize in points, used with TTF. Defaults to 14.
	FontSize float64
}

const margin = 12

// Image draws the display contents.
func (s *Sim) Image(opts *ImageOpts) (image.Image, error) {
	if opts == nil {
		opts = &ImageOpts{}
	}
	cw, ch := opts.CellWidth, opts.CellHeight
	if cw <= 0 {
		cw = 16
	}
	if ch <= 0 {
		ch = 24
	}
	face, err := opts.face()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rows := make([][]byte, s.rows)
	for i := range rows {
		rows[i] = s.codes(i)
	}
	on := s.on
	lit := s.port&bitBacklight != 0
	s.mu.Unlock()

	w := 2*margin + s.cols*cw
	h := 2*margin + s.rows*ch
	dc := gg.NewContext(w, h)
	dc.SetColor(frameColor)
	dc.Clear()
	bg, fg := unlitColor, litColor
	if lit {
		bg, fg = litColor, unlitColor
	}
	dc.SetColor(bg)
	dc.DrawRoundedRectangle(margin/2, margin/2, float64(w-margin), float64(h-margin), margin/2)
	dc.Fill()
	dc.SetFontFace(face)
	for row, codes := range rows {
		for col, code := range codes {
			x := float64(margin + col*cw)
			y := float64(margin + row*ch)
			dc.SetRGBA(0, 0, 0, 0.08)
			dc.DrawRectangle(x+1, y+1, float64(cw-2), float64(ch-2))
			dc.Fill()
			if !on {
				continue
			}
			dc.SetColor(fg)
			dc.DrawStringAnchored(string(printable(code)), x+float64(cw)/2, y+float64(ch)/2, 0.5, 0.5)
		}
	}
	return dc.Image(), nil
}

// EncodePNG writes the display contents to w as a PNG image.
func (s *Sim) EncodePNG(w io.Writer, opts *ImageOpts) error {
	img, err := s.Image(opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

func (o *ImageOpts) face() (font.Face, error) {
	if o.TTF == nil {
		return basicfont.Face7x13, nil
	}
	f, err := truetype.Parse(o.TTF)
	if err != nil {
		return nil, fmt.Errorf("lcdsim: %w", err)
	}
	size := o.FontSize
	if size <= 0 {
		size = 14
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
