// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// EnvSource reads a periph environmental sensor (HTU21D, BME280, BMP280).
// Each Read is one Sense call, i.e. one bus transaction.
type EnvSource struct {
	dev      physic.SenseEnv
	humidity bool
	now      func() time.Time
}

// NewEnvSource wraps dev. humidity reports whether the device measures
// relative humidity; a BMP280 does not, and its readings carry temperature
// only.
func NewEnvSource(dev physic.SenseEnv, humidity bool) *EnvSource {
	return &EnvSource{dev: dev, humidity: humidity, now: time.Now}
}

// Read performs one measurement.
func (s *EnvSource) Read() (env.Reading, error) {
	var e physic.Env
	if err := s.dev.Sense(&e); err != nil {
		return env.Reading{}, fmt.Errorf("%s sense: %w", s.dev, err)
	}
	r := env.Reading{
		Time:            s.now(),
		TemperatureC:    e.Temperature.Celsius(),
		HaveTemperature: true,
	}
	if s.humidity {
		r.HumidityRH = float64(e.Humidity) / float64(physic.PercentRH)
		r.HaveHumidity = true
	}
	return r, nil
}

// String returns the name of the wrapped device.
func (s *EnvSource) String() string {
	return s.dev.String()
}

// Halt stops the wrapped device.
func (s *EnvSource) Halt() error {
	return s.dev.Halt()
}
