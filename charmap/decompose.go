// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package charmap

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	// Dakuten is the stand-alone voiced sound mark glyph.
	Dakuten = '゛'
	// Handakuten is the stand-alone semi-voiced sound mark glyph.
	Handakuten = '゜'
)

// Voiced kana and the base glyph they are drawn with. Neither the bases nor
// the marks are keys, which makes decomposition idempotent.
var voiced = map[rune][2]rune{
	'ガ': {'カ', Dakuten}, 'ギ': {'キ', Dakuten}, 'グ': {'ク', Dakuten}, 'ゲ': {'ケ', Dakuten}, 'ゴ': {'コ', Dakuten},
	'ザ': {'サ', Dakuten}, 'ジ': {'シ', Dakuten}, 'ズ': {'ス', Dakuten}, 'ゼ': {'セ', Dakuten}, 'ゾ': {'ソ', Dakuten},
	'ダ': {'タ', Dakuten}, 'ヂ': {'チ', Dakuten}, 'ヅ': {'ツ', Dakuten}, 'デ': {'テ', Dakuten}, 'ド': {'ト', Dakuten},
	'バ': {'ハ', Dakuten}, 'ビ': {'ヒ', Dakuten}, 'ブ': {'フ', Dakuten}, 'ベ': {'ヘ', Dakuten}, 'ボ': {'ホ', Dakuten},
	'ヴ': {'ウ', Dakuten},
	'パ': {'ハ', Handakuten}, 'ピ': {'ヒ', Handakuten}, 'プ': {'フ', Handakuten}, 'ペ': {'ヘ', Handakuten}, 'ポ': {'ホ', Handakuten},

	'が': {'か', Dakuten}, 'ぎ': {'き', Dakuten}, 'ぐ': {'く', Dakuten}, 'げ': {'け', Dakuten}, 'ご': {'こ', Dakuten},
	'ざ': {'さ', Dakuten}, 'じ': {'し', Dakuten}, 'ず': {'す', Dakuten}, 'ぜ': {'せ', Dakuten}, 'ぞ': {'そ', Dakuten},
	'だ': {'た', Dakuten}, 'ぢ': {'ち', Dakuten}, 'づ': {'つ', Dakuten}, 'で': {'て', Dakuten}, 'ど': {'と', Dakuten},
	'ば': {'は', Dakuten}, 'び': {'ひ', Dakuten}, 'ぶ': {'ふ', Dakuten}, 'べ': {'へ', Dakuten}, 'ぼ': {'ほ', Dakuten},
	'ぱ': {'は', Handakuten}, 'ぴ': {'ひ', Handakuten}, 'ぷ': {'ふ', Handakuten}, 'ぺ': {'へ', Handakuten}, 'ぽ': {'ほ', Handakuten},
}

// DecomposeRune returns the runes used to draw r: the base glyph and the mark
// for voiced kana, r itself otherwise.
func DecomposeRune(r rune) []rune {
	if v, ok := voiced[r]; ok {
		return v[:]
	}
	return []rune{r}
}

// Decompose replaces every voiced kana in s by its base glyph followed by
// Dakuten or Handakuten. Other runes are copied unchanged.
func Decompose(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if v, ok := voiced[r]; ok {
			b.WriteRune(v[0])
			b.WriteRune(v[1])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold normalizes s before mapping: full-width ASCII is narrowed, half-width
// katakana is widened and combining voicing marks (U+3099, U+309A) are
// composed with their base, so that the lookup tables recognize the result.
// Marks that can't be composed become Dakuten or Handakuten.
func Fold(s string) string {
	t := transform.Chain(width.Fold, norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.Map(spacingMark, out)
}

func spacingMark(r rune) rune {
	switch r {
	case 0x3099:
		return Dakuten
	case 0x309a:
		return Handakuten
	}
	return r
}
