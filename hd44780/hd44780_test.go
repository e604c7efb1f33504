// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	periphDisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
	"github.com/GermanBionicSystems/charlcd/pcf857x"
)

const testAddr uint16 = 0x27

// Bus writes after New(), backlight on.
var recordingData = map[string][]i2ctest.IO{
	"TestTransfer": {
		{Addr: testAddr, W: []byte{0xad}},
		{Addr: testAddr, W: []byte{0xa9}},
		{Addr: testAddr, W: []byte{0xbd}},
		{Addr: testAddr, W: []byte{0xb9}},
	},
	"TestSetCursor": {
		{Addr: testAddr, W: []byte{0xcc}},
		{Addr: testAddr, W: []byte{0xc8}},
		{Addr: testAddr, W: []byte{0x0c}},
		{Addr: testAddr, W: []byte{0x08}},
	},
	"TestSetBacklight": {
		{Addr: testAddr, W: []byte{0x00}},
		{Addr: testAddr, W: []byte{0x08}},
	},
}

// noSleep records the delays instead of waiting.
func noSleep(t *testing.T) *[]time.Duration {
	var delays []time.Duration
	old := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	t.Cleanup(func() { sleep = old })
	return &delays
}

// getRecorded returns an initialized display whose bus writes are recorded.
func getRecorded(t *testing.T, opts *Opts) (*Dev, *i2ctest.Record) {
	noSleep(t)
	bus := &i2ctest.Record{}
	dev, err := NewPCF857xBackpack(bus, testAddr, opts)
	if err != nil {
		t.Fatal(err)
	}
	return dev, bus
}

// getPlayback returns a display that was initialized on a recording bus and
// then switched to play back recordingData[t.Name()].
func getPlayback(t *testing.T) (*Dev, *i2ctest.Playback) {
	noSleep(t)
	rec := &i2ctest.Record{}
	pcf, err := pcf857x.New(rec, testAddr, pcf857x.PCF8574)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := New(pcf, nil)
	if err != nil {
		t.Fatal(err)
	}
	bus := &i2ctest.Playback{Ops: recordingData[t.Name()], DontPanic: true}
	pcf, err = pcf857x.New(bus, testAddr, pcf857x.PCF8574)
	if err != nil {
		t.Fatal(err)
	}
	dev.ctrl.bp.port = pcf
	return dev, bus
}

func getSim(t *testing.T, opts *Opts) (*Dev, *lcdsim.Sim) {
	noSleep(t)
	rows, cols := DefaultOpts.Rows, DefaultOpts.Cols
	if opts != nil && opts.Rows > 0 {
		rows, cols = opts.Rows, opts.Cols
	}
	sim := lcdsim.New(testAddr, rows, cols)
	dev, err := NewPCF857xBackpack(sim, testAddr, opts)
	if err != nil {
		t.Fatal(err)
	}
	sim.Reset()
	return dev, sim
}

func writes(ops []i2ctest.IO) []byte {
	out := make([]byte, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.W...)
	}
	return out
}

func TestInitSequence(t *testing.T) {
	seq := InitSequence()
	want := []Step{
		{StepWait, 0, 50 * time.Millisecond},
		{StepNibble, 0x30, 5 * time.Millisecond},
		{StepNibble, 0x30, time.Millisecond},
		{StepNibble, 0x30, time.Millisecond},
		{StepNibble, 0x20, time.Millisecond},
		{StepCommand, 0x28, 0},
		{StepCommand, 0x08, 0},
		{StepCommand, 0x01, 2 * time.Millisecond},
		{StepCommand, 0x06, 0},
		{StepCommand, 0x0c, 0},
	}
	if len(seq) != len(want) {
		t.Fatalf("InitSequence() has %d steps, expected %d", len(seq), len(want))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("step %d: %+v, expected %+v", i, seq[i], want[i])
		}
	}
	seq[0].Settle = 0
	if InitSequence()[0].Settle != 50*time.Millisecond {
		t.Error("InitSequence() must return a copy")
	}
}

func TestInit(t *testing.T) {
	delays := noSleep(t)
	bus := &i2ctest.Record{}
	dev, err := NewPCF857xBackpack(bus, testAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x3c, 0x38, 0x3c, 0x38, 0x3c, 0x38, 0x2c, 0x28,
		0x2c, 0x28, 0x8c, 0x88, // function set
		0x0c, 0x08, 0x8c, 0x88, // display off
		0x0c, 0x08, 0x1c, 0x18, // clear
		0x0c, 0x08, 0x6c, 0x68, // entry mode
		0x0c, 0x08, 0xcc, 0xc8, // display on
	}
	if got := writes(bus.Ops); string(got) != string(want) {
		t.Errorf("init wrote\n%#v\nexpected\n%#v", got, want)
	}
	for _, op := range bus.Ops {
		if op.Addr != testAddr || len(op.W) != 1 || op.R != nil {
			t.Errorf("unexpected transaction %+v", op)
		}
	}

	ms := time.Millisecond
	strobe := []time.Duration{ms, ms}
	cmd := []time.Duration{ms, ms, ms, ms, 2 * ms}
	wantDelays := []time.Duration{50 * ms}
	for _, settle := range []time.Duration{5 * ms, ms, ms, ms} {
		wantDelays = append(wantDelays, strobe...)
		wantDelays = append(wantDelays, settle)
	}
	wantDelays = append(wantDelays, cmd...)
	wantDelays = append(wantDelays, cmd...)
	wantDelays = append(wantDelays, cmd...)
	wantDelays = append(wantDelays, 2*ms)
	wantDelays = append(wantDelays, cmd...)
	wantDelays = append(wantDelays, cmd...)
	if len(*delays) != len(wantDelays) {
		t.Fatalf("got delays %v, expected %v", *delays, wantDelays)
	}
	for i := range wantDelays {
		if (*delays)[i] < wantDelays[i] {
			t.Errorf("delay %d is %s, expected at least %s", i, (*delays)[i], wantDelays[i])
		}
	}
	if s := dev.ctrl.Backpack().State(); !s.Backlight() || s.E() || s.RW() {
		t.Errorf("state after init %s", s)
	}
}

func TestTransfer(t *testing.T) {
	dev, bus := getPlayback(t)
	if err := dev.Controller().Transfer(0xab, true); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
	s := dev.Controller().Backpack().State()
	if !s.RS() || s.E() || s.Nibble() != 0x0b {
		t.Errorf("final state %s", s)
	}
}

func TestSetCursor(t *testing.T) {
	dev, bus := getPlayback(t)
	if err := dev.SetCursor(0, 1); err != nil {
		t.Fatal(err)
	}
	// Rows that don't exist are ignored without touching the bus.
	for _, pos := range [][2]int{{0, 2}, {0, 4}, {0, -1}, {-1, 0}} {
		if err := dev.SetCursor(pos[0], pos[1]); err != nil {
			t.Errorf("SetCursor(%d,%d) returned %v", pos[0], pos[1], err)
		}
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestCursorAddress(t *testing.T) {
	c := NewController(nil, 4)
	tests := []struct {
		col, row int
		addr     byte
	}{
		{0, 0, 0x00},
		{0, 1, 0x40},
		{0, 2, 0x14},
		{0, 3, 0x54},
		{5, 1, 0x45},
		{12, 2, 0x20},
		{19, 3, 0x67},
	}
	for _, tc := range tests {
		addr, ok := c.cursorAddress(tc.col, tc.row)
		if !ok || addr != tc.addr {
			t.Errorf("cursorAddress(%d,%d)=%#x,%t expected %#x", tc.col, tc.row, addr, ok, tc.addr)
		}
	}
}

func TestStrictCursor(t *testing.T) {
	dev, bus := getRecorded(t, &Opts{Rows: 2, Cols: 16, Strict: true})
	n := len(bus.Ops)
	for _, pos := range [][2]int{{0, 2}, {16, 0}, {-1, 1}} {
		if err := dev.SetCursor(pos[0], pos[1]); !errors.Is(err, ErrCursorOutOfRange) {
			t.Errorf("SetCursor(%d,%d) expected ErrCursorOutOfRange, received %v", pos[0], pos[1], err)
		}
	}
	if len(bus.Ops) != n {
		t.Error("out of range cursor reached the bus")
	}
	if err := dev.SetCursor(15, 1); err != nil {
		t.Error(err)
	}
}

func TestSetBacklight(t *testing.T) {
	dev, bus := getPlayback(t)
	if err := dev.SetBacklight(false); err != nil {
		t.Error(err)
	}
	if err := dev.Backlight(0xff); err != nil {
		t.Error(err)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestDefaultBacklight(t *testing.T) {
	for _, opts := range []*Opts{nil, {}, {Rows: 4, Cols: 20}, {Strict: true}} {
		dev, bus := getRecorded(t, opts)
		if !dev.Controller().Backpack().BacklightOn() {
			t.Errorf("%+v: backlight off after init", opts)
		}
		if last := bus.Ops[len(bus.Ops)-1].W[0]; last&PinBacklight == 0 {
			t.Errorf("%+v: last write %#x without the backlight bit", opts, last)
		}
	}

	dev, bus := getRecorded(t, &Opts{Rows: 4, Cols: 20, NoBacklight: true})
	if dev.Controller().Backpack().BacklightOn() {
		t.Error("NoBacklight: backlight on after init")
	}
	for i, b := range writes(bus.Ops) {
		if b&PinBacklight != 0 {
			t.Fatalf("NoBacklight: write %d (%#x) has the backlight bit set", i, b)
		}
	}
}

func TestBacklightStaysOff(t *testing.T) {
	dev, bus := getRecorded(t, nil)
	if err := dev.SetBacklight(false); err != nil {
		t.Fatal(err)
	}
	n := len(bus.Ops)
	if _, err := dev.WriteText("backlight off\nカタカナ", ModeDecomposed); err != nil {
		t.Fatal(err)
	}
	if err := dev.Controller().Transfer(0xff, true); err != nil {
		t.Fatal(err)
	}
	for i, b := range writes(bus.Ops[n:]) {
		if b&PinBacklight != 0 {
			t.Fatalf("write %d (%#x) has the backlight bit set", i, b)
		}
	}
	if dev.Controller().Backpack().BacklightOn() {
		t.Error("BacklightOn() expected false")
	}
}

func TestWriteTextPlain(t *testing.T) {
	dev, sim := getSim(t, nil)
	n, err := dev.WriteText("Hi", ModePlain)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("n=%d, expected 2", n)
	}
	want := []lcdsim.Transfer{{RS: true, Value: 0x48}, {RS: true, Value: 0x69}}
	got := sim.Transfers()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("transfers %+v, expected %+v", got, want)
	}
	if sim.Writes() != 28+8 {
		t.Errorf("expected 4 expander writes per byte, total %d", sim.Writes())
	}
}

func TestWriteTextModes(t *testing.T) {
	tests := []struct {
		text string
		mode Mode
		data []byte
	}{
		{"が", ModeDecomposed, []byte{0xb6, 0xde}},
		{"が", ModePlain, []byte{0x3f}},
		{"ぱん", ModeDecomposed, []byte{0xca, 0xdf, 0xdd}},
		{"カタカナ", ModePlain, []byte{0xb6, 0xc0, 0xb6, 0xc5}},
		{"こんにちは!", ModePlain, []byte{0xba, 0xdd, 0xc6, 0xc1, 0xca, 0x21}},
		{"漢字", ModePlain, []byte{0x3f, 0x3f}},
		{"abc", ModeASCII, []byte("abc")},
		{"é", ModeASCII, []byte{0xe9}},
	}
	for _, tc := range tests {
		dev, sim := getSim(t, nil)
		if _, err := dev.WriteText(tc.text, tc.mode); err != nil {
			t.Errorf("WriteText(%q, %s): %v", tc.text, tc.mode, err)
			continue
		}
		if got := sim.Data(); string(got) != string(tc.data) {
			t.Errorf("WriteText(%q, %s) sent %#v, expected %#v", tc.text, tc.mode, got, tc.data)
		}
	}
}

func TestNewline(t *testing.T) {
	dev, sim := getSim(t, nil)
	for _, mode := range []Mode{ModePlain, ModeDecomposed, ModeASCII} {
		sim.Reset()
		if _, err := dev.WriteText("A\nB", mode); err != nil {
			t.Fatal(err)
		}
		want := []lcdsim.Transfer{{RS: true, Value: 'A'}, {Value: 0xc0}, {RS: true, Value: 'B'}}
		got := sim.Transfers()
		if len(got) != len(want) {
			t.Fatalf("%s: transfers %+v", mode, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: transfer %d %+v, expected %+v", mode, i, got[i], want[i])
			}
		}
	}
	if err := dev.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := dev.WriteText("Hello, FT2232!\nI2C LCD Test", ModePlain); err != nil {
		t.Fatal(err)
	}
	if l := sim.Line(0); l != "Hello, FT2232!  " {
		t.Errorf("Line(0)=%q", l)
	}
	if l := sim.Line(1); l != "I2C LCD Test    " {
		t.Errorf("Line(1)=%q", l)
	}
}

func TestStrictText(t *testing.T) {
	dev, sim := getSim(t, &Opts{Rows: 2, Cols: 16, Strict: true})
	n, err := dev.WriteText("ok漢", ModePlain)
	if !errors.Is(err, ErrUnsupportedCharacter) {
		t.Fatalf("expected ErrUnsupportedCharacter, received %v", err)
	}
	if n != 2 {
		t.Errorf("n=%d, expected 2", n)
	}
	if got := sim.Data(); string(got) != "ok" {
		t.Errorf("sent %q", got)
	}
	// Strict mode doesn't apply to ASCII mode.
	if _, err = dev.WriteText("漢", ModeASCII); err != nil {
		t.Error(err)
	}
}

func TestRuneMapAndFold(t *testing.T) {
	dev, sim := getSim(t, &Opts{Rows: 2, Cols: 16, Fold: true, RuneMap: map[rune]byte{'♥': 0x00}})
	n, err := dev.WriteText("Ｈｉ♥ｶﾞ", ModeDecomposed)
	if err != nil {
		t.Fatal(err)
	}
	if n != len("Ｈｉ♥ｶﾞ") {
		t.Errorf("n=%d", n)
	}
	if got, want := sim.Data(), []byte{'H', 'i', 0x00, 0xb6, 0xde}; string(got) != string(want) {
		t.Errorf("sent %#v, expected %#v", got, want)
	}
}

func TestFoldStandaloneMark(t *testing.T) {
	dev, sim := getSim(t, &Opts{Fold: true})
	if _, err := dev.WriteText("Aﾞ", ModePlain); err != nil {
		t.Fatal(err)
	}
	if got, want := sim.Data(), []byte{0x41, 0xde}; string(got) != string(want) {
		t.Errorf("sent %#v, expected %#v", got, want)
	}
}

func TestCreateChar(t *testing.T) {
	dev, sim := getSim(t, nil)
	heart := [8]byte{0x00, 0x0a, 0x1f, 0x1f, 0x0e, 0x04, 0x00, 0x00}
	if err := dev.CreateChar(1, heart); err != nil {
		t.Fatal(err)
	}
	if got := sim.CGRAM(1); got != heart {
		t.Errorf("CGRAM(1)=%#v", got)
	}
	if addr, cg := sim.Address(); addr != 0 || cg {
		t.Errorf("address after CreateChar %#x,%t", addr, cg)
	}
	if _, err := dev.Write([]byte{0x01}); err != nil {
		t.Fatal(err)
	}
	if c := sim.Codes(0)[0]; c != 0x01 {
		t.Errorf("first cell %#x", c)
	}
}

func TestBusError(t *testing.T) {
	dev, sim := getSim(t, nil)
	sim.FailAt = sim.Writes() + 3
	n, err := dev.WriteText("Hi", ModePlain)
	if !errors.Is(err, lcdsim.ErrInjected) {
		t.Fatalf("expected ErrInjected, received %v", err)
	}
	if !strings.HasPrefix(err.Error(), "hd44780: ") {
		t.Errorf("error not wrapped: %v", err)
	}
	if n != 0 {
		t.Errorf("n=%d, expected 0", n)
	}
	// The controller is out of sync, re-running Init recovers it.
	sim.FailAt = 0
	if err = dev.Init(); err != nil {
		t.Fatal(err)
	}
	sim.Reset()
	if _, err = dev.WriteString("Hi"); err != nil {
		t.Fatal(err)
	}
	if got := sim.Data(); string(got) != "Hi" {
		t.Errorf("sent %q after recovery", got)
	}
}

func TestInitError(t *testing.T) {
	noSleep(t)
	bus := &i2ctest.Playback{DontPanic: true}
	if _, err := NewPCF857xBackpack(bus, testAddr, nil); err == nil {
		t.Error("expected error from New with a failing bus")
	}
	if _, err := New(&pcf857x.Dev{}, &Opts{Rows: 5, Cols: 20}); err == nil {
		t.Error("expected error for 5 rows")
	}
}

func TestBasic(t *testing.T) {
	dev, sim := getSim(t, &Opts{Rows: 4, Cols: 20})
	s := dev.String()
	t.Log(s)
	if !strings.Contains(s, "Rows: 4, Cols: 20") {
		t.Errorf("String()=%q", s)
	}
	if dev.Rows() != 4 || dev.Cols() != 20 {
		t.Errorf("size %dx%d", dev.Cols(), dev.Rows())
	}
	if err := dev.MoveTo(3, 2); err != nil {
		t.Error(err)
	}
	if _, err := dev.WriteString("row3"); err != nil {
		t.Error(err)
	}
	if l := sim.Line(2); !strings.HasPrefix(l, " row3") {
		t.Errorf("Line(2)=%q", l)
	}
	if err := dev.MoveTo(5, 1); !errors.Is(err, ErrCursorOutOfRange) {
		t.Errorf("MoveTo(5,1) expected ErrCursorOutOfRange, received %v", err)
	}
	if err := dev.Move(periphDisplay.Up); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Move(Up) expected ErrNotImplemented, received %v", err)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if sim.On() || sim.Backlight() {
		t.Error("Halt() should turn the display and backlight off")
	}
}

func TestInterface(t *testing.T) {
	dev, _ := getSim(t, nil)
	defer func() { _ = dev.Halt() }()
	errs := displaytest.TestTextDisplay(dev, false)
	for _, err := range errs {
		if !errors.Is(err, periphDisplay.ErrNotImplemented) {
			t.Error(err)
		}
	}
}

func TestDebugLog(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	dev, _ := getSim(t, &Opts{Rows: 2, Cols: 16, Logger: logger})
	if err := dev.SetCursor(3, 1); err != nil {
		t.Fatal(err)
	}
	e := hook.LastEntry()
	if e == nil || e.Message != "set cursor" {
		t.Fatalf("unexpected last entry %+v", e)
	}
	if e.Data["col"] != 3 || e.Data["row"] != 1 || e.Data["lcd"] != "PCF8574_27" {
		t.Errorf("unexpected fields %v", e.Data)
	}
}

func TestState(t *testing.T) {
	s := State(PinRS | PinE | PinBacklight | 0xa0)
	if !s.RS() || s.RW() || !s.E() || !s.Backlight() || s.Nibble() != 0x0a {
		t.Errorf("decoded %s", s)
	}
	if State(0).String() != "State{RS:false RW:false E:false BL:false D:0x0}" {
		t.Errorf("String()=%q", State(0).String())
	}
}
