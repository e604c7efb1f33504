// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdtest runs a smoke test on an HD44780 display behind a PCF8574 backpack:
// ASCII text, Japanese text, dakuten decomposition, cursor moves and the
// backlight.
//
// With -sim, an emulated display is drawn on the terminal instead.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	_ "periph.io/x/host/v3/ftdi"

	"github.com/GermanBionicSystems/charlcd/hd44780"
	"github.com/GermanBionicSystems/charlcd/i2cscan"
	"github.com/GermanBionicSystems/charlcd/lcdsim"
)

type step struct {
	name  string
	run   func(lcd *hd44780.Dev) error
	// short selects the -shortwait delay after the step instead of -wait.
	short bool
}

func write(text string, mode hd44780.Mode) func(*hd44780.Dev) error {
	return func(lcd *hd44780.Dev) error {
		if err := lcd.Clear(); err != nil {
			return err
		}
		_, err := lcd.WriteText(text, mode)
		return err
	}
}

var steps = []step{
	{"Displaying test message", write("Hello, FT2232!\nI2C LCD Test", hd44780.ModePlain), false},
	{"Testing Japanese characters", write("こんにちは!\nカタカナテスト", hd44780.ModePlain), false},
	{"Testing dakuten decomposition", write("がんばって!\nダクテンテスト", hd44780.ModeDecomposed), false},
	{"Testing cursor", func(lcd *hd44780.Dev) error {
		if err := lcd.Clear(); err != nil {
			return err
		}
		if err := lcd.SetCursor(0, 0); err != nil {
			return err
		}
		if _, err := lcd.WriteString("Test OK!"); err != nil {
			return err
		}
		if err := lcd.SetCursor(0, 1); err != nil {
			return err
		}
		_, err := lcd.WriteString("periph works")
		return err
	}, true},
	{"Turning backlight off", func(lcd *hd44780.Dev) error {
		if err := lcd.SetBacklight(false); err != nil {
			return err
		}
		return lcd.Clear()
	}, false},
}

func openBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I²C bus %q: %w", name, err)
	}
	logrus.WithField("bus", bus.String()).Info("Priming I2C bus")
	i2cscan.Prime(bus)
	return bus, nil
}

func mainImpl() error {
	busName := flag.String("b", "", "I²C bus to use")
	addr := flag.Uint("a", uint(hd44780.DefaultAddress), "I²C address of the backpack")
	rows := flag.Int("rows", 2, "number of rows")
	cols := flag.Int("cols", 16, "number of columns")
	sim := flag.Bool("sim", false, "draw an emulated display on the terminal instead of using hardware")
	pngOut := flag.String("png", "", "with -sim, save the screen after each step to this file prefix")
	strict := flag.Bool("strict", false, "fail on unsupported characters")
	wait := flag.Duration("wait", 5*time.Second, "time each text step is shown")
	shortWait := flag.Duration("shortwait", 3*time.Second, "time the last message is shown before the backlight is turned off")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *addr > 0x7f {
		return fmt.Errorf("invalid address %#x", *addr)
	}

	var bus i2c.BusCloser
	var emu *lcdsim.Sim
	var console *lcdsim.Console
	if *sim {
		emu = lcdsim.New(uint16(*addr), *rows, *cols)
		console = lcdsim.NewConsole(emu, nil)
		defer console.Halt()
		bus = emu
	} else {
		var err error
		if bus, err = openBus(*busName); err != nil {
			return err
		}
	}
	defer bus.Close()

	logrus.Infof("Initializing LCD at address 0x%02X", *addr)
	lcd, err := hd44780.NewPCF857xBackpack(bus, uint16(*addr), &hd44780.Opts{
		Rows:   *rows,
		Cols:   *cols,
		Strict: *strict,
		Fold:   true,
	})
	if err != nil {
		return err
	}
	logrus.Info("LCD initialization completed")

	for i, s := range steps {
		logrus.Info(s.name)
		if err := s.run(lcd); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if console != nil {
			if err := console.Refresh(); err != nil {
				return err
			}
		}
		if emu != nil && *pngOut != "" {
			if err := savePNG(emu, fmt.Sprintf("%s%d.png", *pngOut, i)); err != nil {
				return err
			}
		}
		switch {
		case i == len(steps)-1:
		case s.short:
			time.Sleep(*shortWait)
		default:
			time.Sleep(*wait)
		}
	}
	logrus.Info("LCD test finished")
	return nil
}

func savePNG(s *lcdsim.Sim, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = s.EncodePNG(f, nil); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func main() {
	if err := mainImpl(); err != nil {
		logrus.Errorf("lcdtest: %s.", err)
		os.Exit(1)
	}
}
