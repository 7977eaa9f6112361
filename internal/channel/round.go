// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package channel

import (
	"math"
	"strconv"
	"strings"
)

// roundTenth rounds v to one decimal place, half away from zero, using the
// shortest decimal representation of v. 21.05 rounds to 21.1 even though the
// binary value is slightly below 21.05.
func roundTenth(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 || len(s)-dot <= 2 {
		return v
	}
	t, _ := strconv.ParseFloat(s[:dot+2], 64)
	if s[dot+2] >= '5' {
		t, _ = strconv.ParseFloat(strconv.FormatFloat(t+0.1, 'f', 1, 64), 64)
	}
	if t == 0 {
		return 0
	}
	return math.Copysign(t, v)
}

// celsiusToFahrenheit converts °C to °F.
func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
