// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charmap converts Unicode text into the character codes of the
// HD44780 A00 (Japanese) character ROM.
//
// The lower half of the ROM is ASCII compatible. The upper half holds the JIS
// X 0201 katakana set at 0xA1-0xDF, including the stand-alone dakuten (0xDE)
// and handakuten (0xDF) glyphs. Hiragana is rendered with the katakana glyph of
// the same sound, and kana carrying a voicing mark must be written as the base
// glyph followed by the mark, see Decompose.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf (Table 4, ROM code A00)
package charmap

import (
	"errors"
	"fmt"
)

// Unsupported is the code written for runes the ROM cannot display.
const Unsupported byte = '?'

// ErrUnsupportedCharacter is returned by CodeStrict for runes that have no
// glyph in the character ROM.
var ErrUnsupportedCharacter = errors.New("charmap: unsupported character")

// ROM codes of katakana and Japanese punctuation.
var katakana = map[rune]byte{
	'ア': 0xb1, 'イ': 0xb2, 'ウ': 0xb3, 'エ': 0xb4, 'オ': 0xb5,
	'カ': 0xb6, 'キ': 0xb7, 'ク': 0xb8, 'ケ': 0xb9, 'コ': 0xba,
	'サ': 0xbb, 'シ': 0xbc, 'ス': 0xbd, 'セ': 0xbe, 'ソ': 0xbf,
	'タ': 0xc0, 'チ': 0xc1, 'ツ': 0xc2, 'テ': 0xc3, 'ト': 0xc4,
	'ナ': 0xc5, 'ニ': 0xc6, 'ヌ': 0xc7, 'ネ': 0xc8, 'ノ': 0xc9,
	'ハ': 0xca, 'ヒ': 0xcb, 'フ': 0xcc, 'ヘ': 0xcd, 'ホ': 0xce,
	'マ': 0xcf, 'ミ': 0xd0, 'ム': 0xd1, 'メ': 0xd2, 'モ': 0xd3,
	'ヤ': 0xd4, 'ユ': 0xd5, 'ヨ': 0xd6,
	'ラ': 0xd7, 'リ': 0xd8, 'ル': 0xd9, 'レ': 0xda, 'ロ': 0xdb,
	'ワ': 0xdc, 'ヲ': 0xa6, 'ン': 0xdd,

	'ァ': 0xa7, 'ィ': 0xa8, 'ゥ': 0xa9, 'ェ': 0xaa, 'ォ': 0xab,
	// Small ャュョ are at 0xac-0xae in the ROM, not at the full-size slots.
	'ャ': 0xac, 'ュ': 0xad, 'ョ': 0xae, 'ッ': 0xaf,

	'。': 0xa1, '「': 0xa2, '」': 0xa3, '、': 0xa4, '・': 0xa5,
	'ー': 0xb0, '゛': 0xde, '゜': 0xdf,

	// A00 replaces backslash and tilde, and puts arrows at the end of the
	// ASCII half.
	'¥': 0x5c, '→': 0x7e, '←': 0x7f,
}

// Hiragana with a katakana glyph of the same sound.
var hiraganaToKatakana = map[rune]rune{
	'あ': 'ア', 'い': 'イ', 'う': 'ウ', 'え': 'エ', 'お': 'オ',
	'か': 'カ', 'き': 'キ', 'く': 'ク', 'け': 'ケ', 'こ': 'コ',
	'さ': 'サ', 'し': 'シ', 'す': 'ス', 'せ': 'セ', 'そ': 'ソ',
	'た': 'タ', 'ち': 'チ', 'つ': 'ツ', 'て': 'テ', 'と': 'ト',
	'な': 'ナ', 'に': 'ニ', 'ぬ': 'ヌ', 'ね': 'ネ', 'の': 'ノ',
	'は': 'ハ', 'ひ': 'ヒ', 'ふ': 'フ', 'へ': 'ヘ', 'ほ': 'ホ',
	'ま': 'マ', 'み': 'ミ', 'む': 'ム', 'め': 'メ', 'も': 'モ',
	'や': 'ヤ', 'ゆ': 'ユ', 'よ': 'ヨ',
	'ら': 'ラ', 'り': 'リ', 'る': 'ル', 'れ': 'レ', 'ろ': 'ロ',
	'わ': 'ワ', 'を': 'ヲ', 'ん': 'ン',
	'ぁ': 'ァ', 'ぃ': 'ィ', 'ぅ': 'ゥ', 'ぇ': 'ェ', 'ぉ': 'ォ',
	'っ': 'ッ', 'ゃ': 'ャ', 'ゅ': 'ュ', 'ょ': 'ョ',
}

// Code returns the ROM code used to display r. Hiragana is first replaced by
// its katakana equivalent. Runes that are neither in the katakana table nor
// ASCII map to Unsupported.
func Code(r rune) byte {
	c, ok := lookup(r)
	if !ok {
		return Unsupported
	}
	return c
}

// CodeStrict is like Code but returns ErrUnsupportedCharacter instead of
// falling back to '?'.
func CodeStrict(r rune) (byte, error) {
	c, ok := lookup(r)
	if !ok {
		return Unsupported, fmt.Errorf("%w: %q (U+%04X)", ErrUnsupportedCharacter, r, r)
	}
	return c, nil
}

// Katakana returns the katakana rune displayed for the hiragana h. ok is false
// if h is not a supported hiragana.
func Katakana(h rune) (k rune, ok bool) {
	k, ok = hiraganaToKatakana[h]
	return
}

func lookup(r rune) (byte, bool) {
	if k, ok := hiraganaToKatakana[r]; ok {
		r = k
	}
	if c, ok := katakana[r]; ok {
		return c, true
	}
	if r >= 0 && r < 0x80 {
		return byte(r), true
	}
	return 0, false
}

// Rune returns the rune that best represents what the ROM shows for code.
// The katakana half is returned as half-width katakana (U+FF61-U+FF9F), which
// shares the JIS X 0201 layout of the ROM. Codes without a Unicode equivalent
// return U+FFFD.
func Rune(code byte) rune {
	switch {
	case code == 0x5c:
		return '¥'
	case code == 0x7e:
		return '→'
	case code == 0x7f:
		return '←'
	case code >= 0x20 && code < 0x7e:
		return rune(code)
	case code >= 0xa1 && code <= 0xdf:
		return rune(code) + 0xff61 - 0xa1
	}
	return '�'
}
