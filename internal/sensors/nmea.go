// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// ErrNoMeasurement is returned when a read window holds no usable XDR
// temperature or humidity measurement.
var ErrNoMeasurement = errors.New("nmea: no temperature or humidity measurement")

// NMEASource reads temperature and humidity from XDR transducer sentences on
// a serial line, such as those emitted by marine weather stations
// ("$WIXDR,C,22.5,C,TEMP,H,45.3,P,RH*hh").
//
// One Read consumes at most maxLines lines and stops as soon as both
// quantities have been seen. Other sentence types are skipped.
type NMEASource struct {
	mu       sync.Mutex
	r        *bufio.Reader
	maxLines int
	now      func() time.Time
}

// NewNMEASource reads sentences from r.
func NewNMEASource(r io.Reader, maxLines int) *NMEASource {
	if maxLines < 1 {
		maxLines = 1
	}
	return &NMEASource{r: bufio.NewReader(r), maxLines: maxLines, now: time.Now}
}

// Read scans the line for the next measurement. A reading with only one of
// the two quantities is returned when the window ends before the other one
// shows up.
func (s *NMEASource) Read() (env.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reading env.Reading
	for i := 0; i < s.maxLines; i++ {
		line, err := s.r.ReadString('\n')
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "$") {
			if sentence, perr := nmea.Parse(line); perr == nil {
				applySentence(&reading, sentence)
			}
		}
		if reading.HaveTemperature && reading.HaveHumidity {
			break
		}
		if err != nil {
			if reading.HaveTemperature || reading.HaveHumidity {
				break
			}
			return env.Reading{}, fmt.Errorf("nmea read: %w", err)
		}
	}
	if !reading.HaveTemperature && !reading.HaveHumidity {
		return env.Reading{}, ErrNoMeasurement
	}
	reading.Time = s.now()
	return reading, nil
}

func applySentence(r *env.Reading, sentence nmea.Sentence) {
	xdr, ok := sentence.(nmea.XDR)
	if !ok {
		return
	}
	for _, m := range xdr.Measurements {
		switch m.TransducerType {
		case "C": // temperature
			switch m.Unit {
			case "C":
				r.TemperatureC, r.HaveTemperature = m.Value, true
			case "F":
				r.TemperatureC, r.HaveTemperature = (m.Value-32)*5/9, true
			}
		case "H": // humidity
			if m.Unit == "P" {
				r.HumidityRH, r.HaveHumidity = m.Value, true
			}
		}
	}
}
