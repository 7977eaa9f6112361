// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "time"

// Sample is the published state of one channel.
type Sample struct {
	Name    string    `json:"name"`           // e.g. "HTU21D Sensor Temperature"
	Channel string    `json:"channel"`        // "temperature" or "humidity"
	Unit    string    `json:"unit,omitempty"` // "°C", "°F" or "%"
	Value   *float64  `json:"value,omitempty"`
	Time    time.Time `json:"time"`
}

// HasValue reports whether the sample carries a value.
func (s Sample) HasValue() bool {
	return s.Value != nil
}
