// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package channel

import (
	"fmt"
	"strings"
)

// Kind selects which field of a Reading a View exposes.
type Kind int

const (
	Temperature Kind = iota
	Humidity
)

// String returns the human-readable kind name used in display names.
func (k Kind) String() string {
	switch k {
	case Temperature:
		return "Temperature"
	case Humidity:
		return "Humidity"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Key returns the lower-case identifier used in config files and topics.
func (k Kind) Key() string {
	return strings.ToLower(k.String())
}

// ParseKind parses "temperature" or "humidity" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temperature":
		return Temperature, nil
	case "humidity":
		return Humidity, nil
	default:
		return 0, fmt.Errorf("unknown channel kind %q (allowed: temperature, humidity)", s)
	}
}

// Unit is the target unit a View exposes its value in.
type Unit int

const (
	UnitNone Unit = iota
	Celsius
	Fahrenheit
	Percent
)

// Label returns the unit symbol; ok is false for UnitNone.
func (u Unit) Label() (label string, ok bool) {
	switch u {
	case Celsius:
		return "°C", true
	case Fahrenheit:
		return "°F", true
	case Percent:
		return "%", true
	default:
		return "", false
	}
}

func (u Unit) String() string {
	if l, ok := u.Label(); ok {
		return l
	}
	return "none"
}

// ParseTemperatureUnit parses the unit preference of a temperature channel:
// "C", "F", "celsius", "fahrenheit", "°C" or "°F".
func ParseTemperatureUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "°")) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	default:
		return UnitNone, fmt.Errorf("unknown temperature unit %q (allowed: C, F)", s)
	}
}
