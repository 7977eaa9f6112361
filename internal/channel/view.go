// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package channel exposes one field of a shared throttled reading as a named,
// unit-tagged value.
//
// Several Views share one reader. Each View keeps its own last exposed value
// and changes it only from its own Update, so consumers polling different
// channels at different cadences never see each other's updates.
package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// Refresher is the part of a throttled reader a View depends on.
type Refresher interface {
	Refresh() error
	Current() (env.Reading, bool)
}

// View is a projection of the shared reading onto one channel.
type View struct {
	label  string
	kind   Kind
	unit   Unit
	reader Refresher

	mu      sync.RWMutex
	value   float64
	have    bool
	updated time.Time
}

// New returns a View of kind over reader. Temperature views need Celsius or
// Fahrenheit; humidity views need Percent, and UnitNone defaults to it.
func New(label string, kind Kind, unit Unit, reader Refresher) (*View, error) {
	if reader == nil {
		return nil, fmt.Errorf("channel %s: nil reader", kind)
	}
	switch kind {
	case Temperature:
		if unit != Celsius && unit != Fahrenheit {
			return nil, fmt.Errorf("channel %s: unit %s is not a temperature unit", kind, unit)
		}
	case Humidity:
		if unit == UnitNone {
			unit = Percent
		}
		if unit != Percent {
			return nil, fmt.Errorf("channel %s: unit %s is not a humidity unit", kind, unit)
		}
	default:
		return nil, fmt.Errorf("unknown channel kind %d", int(kind))
	}
	return &View{label: label, kind: kind, unit: unit, reader: reader}, nil
}

// Update refreshes the shared reader and recomputes this channel's value.
//
// A refresh failure is returned and the previous value is kept. When the
// reading lacks this channel's field the value is left as it was.
func (v *View) Update() error {
	if err := v.reader.Refresh(); err != nil {
		return fmt.Errorf("%s: %w", v.DisplayName(), err)
	}
	reading, ok := v.reader.Current()
	if !ok {
		return nil
	}
	value, ok := v.project(reading)
	if !ok {
		return nil
	}

	v.mu.Lock()
	v.value = value
	v.have = true
	v.updated = reading.Time
	v.mu.Unlock()
	return nil
}

func (v *View) project(r env.Reading) (float64, bool) {
	switch v.kind {
	case Temperature:
		c, ok := r.Temperature()
		if !ok {
			return 0, false
		}
		if v.unit == Fahrenheit {
			return roundTenth(celsiusToFahrenheit(c)), true
		}
		return roundTenth(c), true
	case Humidity:
		rh, ok := r.Humidity()
		if !ok {
			return 0, false
		}
		return roundTenth(rh), true
	}
	return 0, false
}

// Value returns the last computed value; ok is false until one exists.
func (v *View) Value() (value float64, ok bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.have
}

// Updated returns the time of the reading behind the current value.
func (v *View) Updated() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.updated
}

// DisplayName is the label followed by the kind name, e.g.
// "HTU21D Sensor Temperature".
func (v *View) DisplayName() string {
	return v.label + " " + v.kind.String()
}

// UnitLabel returns the unit symbol of the exposed value.
func (v *View) UnitLabel() (string, bool) {
	return v.unit.Label()
}

func (v *View) Kind() Kind { return v.kind }

func (v *View) Unit() Unit { return v.unit }

// Sample returns the channel state as a publishable payload stamped with t.
func (v *View) Sample(t time.Time) env.Sample {
	s := env.Sample{
		Name:    v.DisplayName(),
		Channel: v.kind.Key(),
		Time:    t,
	}
	s.Unit, _ = v.UnitLabel()
	if value, ok := v.Value(); ok {
		s.Value = &value
	}
	return s
}
