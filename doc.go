// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charlcd is a container for the character LCD driver packages.
//
// The hd44780 package drives an HD44780 compatible display through a PCF8574
// I²C backpack, charmap converts text to the controller's character ROM,
// i2cscan enumerates devices on a bus and lcdsim emulates a backpack and
// display for tests and demos.
package charlcd
