// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relabs-tech/env_monitor/internal/channel"
	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/throttle"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type published struct {
	topic  string
	sample env.Sample
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recordingPublisher) PublishSample(topic string, s env.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic, s})
	return nil
}

func (r *recordingPublisher) byTopic() map[string][]env.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := map[string][]env.Sample{}
	for _, p := range r.msgs {
		m[p.topic] = append(m[p.topic], p.sample)
	}
	return m
}

// countingSource returns fixed values and counts bus reads.
type countingSource struct {
	reads        atomic.Int32
	temperatureC float64
	humidity     float64
	err          error
}

func (s *countingSource) Read() (env.Reading, error) {
	s.reads.Add(1)
	if s.err != nil {
		return env.Reading{}, s.err
	}
	return env.NewReading(time.Now(), s.temperatureC, s.humidity), nil
}

func newTestProducer(t *testing.T, cfg *config.Config, src throttle.Source) (*Producer, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	p, err := NewProducer(cfg, src, pub, discard)
	if err != nil {
		t.Fatal(err)
	}
	return p, pub
}

func TestProducerPollSharesOneRead(t *testing.T) {
	src := &countingSource{temperatureC: 22.46, humidity: 45.26}
	p, pub := newTestProducer(t, config.Default(), src)

	for _, c := range p.channels {
		p.poll(c)
	}

	if n := src.reads.Load(); n != 1 {
		t.Errorf("sensor read %d times, expected 1", n)
	}
	got := pub.byTopic()
	temp := got["env/htu21d/temperature"]
	hum := got["env/htu21d/humidity"]
	if len(temp) != 1 || len(hum) != 1 {
		t.Fatalf("published %v", got)
	}
	if *temp[0].Value != 22.5 || temp[0].Unit != "°C" || temp[0].Name != "HTU21D Sensor Temperature" {
		t.Errorf("temperature sample %+v (value %v)", temp[0], *temp[0].Value)
	}
	if *hum[0].Value != 45.3 || hum[0].Unit != "%" || hum[0].Name != "HTU21D Sensor Humidity" {
		t.Errorf("humidity sample %+v (value %v)", hum[0], *hum[0].Value)
	}
}

func TestProducerFahrenheit(t *testing.T) {
	cfg := config.Default()
	cfg.TemperatureUnit = channel.Fahrenheit
	cfg.MonitoredConditions = []channel.Kind{channel.Temperature}
	p, pub := newTestProducer(t, cfg, &countingSource{temperatureC: 37})

	if len(p.Views()) != 1 {
		t.Fatalf("%d views, expected 1", len(p.Views()))
	}
	p.poll(p.channels[0])

	temp := pub.byTopic()["env/htu21d/temperature"]
	if len(temp) != 1 || *temp[0].Value != 98.6 || temp[0].Unit != "°F" {
		t.Fatalf("published %+v", temp)
	}
}

func TestProducerSkipsChannelsWithoutValue(t *testing.T) {
	src := &countingSource{err: errors.New("nack")}
	p, pub := newTestProducer(t, config.Default(), src)

	for _, c := range p.channels {
		p.poll(c)
	}
	if len(pub.byTopic()) != 0 {
		t.Errorf("published before any successful read: %v", pub.byTopic())
	}
}

func TestProducerRun(t *testing.T) {
	cfg := config.Default()
	cfg.MinReadInterval = 0
	cfg.TemperatureUpdateInterval = 10
	cfg.HumidityUpdateInterval = 15
	src := &countingSource{temperatureC: 20, humidity: 50}
	p, pub := newTestProducer(t, cfg, src)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	got := pub.byTopic()
	if len(got["env/htu21d/temperature"]) < 2 || len(got["env/htu21d/humidity"]) < 2 {
		t.Errorf("too few samples: %d temperature, %d humidity",
			len(got["env/htu21d/temperature"]), len(got["env/htu21d/humidity"]))
	}
	if src.reads.Load() < 2 {
		t.Errorf("sensor read %d times", src.reads.Load())
	}
}
