// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// MockSource generates smoothly changing temperature and humidity values for
// running the pipeline without hardware.
type MockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source starting now.
func NewMockSource() *MockSource {
	return &MockSource{start: time.Now(), now: time.Now}
}

func (m *MockSource) Read() (env.Reading, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	return env.NewReading(t,
		21+3*math.Sin(elapsed/60),
		45+10*math.Cos(elapsed/90),
	), nil
}

func (m *MockSource) String() string {
	return "mock"
}
