// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package channel

import (
	"math"
	"testing"
)

func TestRoundTenth(t *testing.T) {
	data := []struct {
		in, want float64
	}{
		{21.05, 21.1},
		{45.26, 45.3},
		{45.24, 45.2},
		{68, 68},
		{0.05, 0.1},
		{-0.05, -0.1},
		{-0.04, 0},
		{9.96, 10},
		{69.89000000000001, 69.9},
		{1e-9, 0},
	}
	for _, line := range data {
		if got := roundTenth(line.in); got != line.want {
			t.Errorf("roundTenth(%v) = %v, expected %v", line.in, got, line.want)
		}
	}
	if got := roundTenth(math.Inf(1)); !math.IsInf(got, 1) {
		t.Errorf("roundTenth(+Inf) = %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Temperature, Humidity} {
		got, err := ParseKind(" " + k.Key() + " ")
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.Key(), got, err)
		}
	}
	if _, err := ParseKind("pressure"); err == nil {
		t.Error("ParseKind(pressure) did not fail")
	}
}

func TestParseTemperatureUnit(t *testing.T) {
	data := map[string]Unit{
		"C": Celsius, "c": Celsius, "celsius": Celsius, "°C": Celsius,
		"F": Fahrenheit, "fahrenheit": Fahrenheit, "°F": Fahrenheit,
	}
	for in, want := range data {
		got, err := ParseTemperatureUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseTemperatureUnit(%q) = %v, %v, expected %v", in, got, err, want)
		}
	}
	if _, err := ParseTemperatureUnit("K"); err == nil {
		t.Error("ParseTemperatureUnit(K) did not fail")
	}
}
