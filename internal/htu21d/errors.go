// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package htu21d

import "fmt"

// NotDetectedError is returned by NewI2C when the chip does not answer.
type NotDetectedError struct {
	Err error
}

func (e *NotDetectedError) Error() string {
	return fmt.Sprintf("htu21d: sensor not detected on i2c bus: %v", e.Err)
}

func (e *NotDetectedError) Unwrap() error {
	return e.Err
}

// DataCorruptionError is returned when a measurement fails its CRC check.
type DataCorruptionError struct {
	Got, Want byte
}

func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("htu21d: crc mismatch: got 0x%02x, expected 0x%02x", e.Got, e.Want)
}
