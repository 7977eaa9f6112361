// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "time"

// Reading is one temperature/humidity measurement produced by a single bus
// transaction. A field is absent when its Have flag is false.
type Reading struct {
	Time time.Time

	TemperatureC    float64 // °C
	HaveTemperature bool

	HumidityRH   float64 // %RH
	HaveHumidity bool
}

// NewReading returns a Reading carrying both channels.
func NewReading(t time.Time, temperatureC, humidityRH float64) Reading {
	return Reading{
		Time:            t,
		TemperatureC:    temperatureC,
		HaveTemperature: true,
		HumidityRH:      humidityRH,
		HaveHumidity:    true,
	}
}

// Temperature returns the temperature in °C, if present.
func (r Reading) Temperature() (float64, bool) {
	return r.TemperatureC, r.HaveTemperature
}

// Humidity returns the relative humidity in %, if present.
func (r Reading) Humidity() (float64, bool) {
	return r.HumidityRH, r.HaveHumidity
}
