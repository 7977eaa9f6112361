// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/relabs-tech/env_monitor/internal/env"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// unreachable is a broker address nothing listens on.
const unreachable = "tcp://127.0.0.1:1"

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return true }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestSampleHandler(t *testing.T) {
	c := NewClient(unreachable, "test", discard)

	var gotTopic string
	var got []env.Sample
	h := c.sampleHandler(func(topic string, s env.Sample) {
		gotTopic = topic
		got = append(got, s)
	})

	h(nil, &fakeMessage{topic: "env/htu21d/humidity", payload: []byte("not json")})
	h(nil, &fakeMessage{
		topic:   "env/htu21d/humidity",
		payload: []byte(`{"name":"HTU21D Sensor Humidity","channel":"humidity","unit":"%","value":45.3,"time":"2026-03-01T12:00:00Z"}`),
	})

	v := 45.3
	want := []env.Sample{{
		Name:    "HTU21D Sensor Humidity",
		Channel: "humidity",
		Unit:    "%",
		Value:   &v,
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded samples (-want +got):\n%s", diff)
	}
	if gotTopic != "env/htu21d/humidity" {
		t.Errorf("topic = %q", gotTopic)
	}
}

func TestPublishNotConnected(t *testing.T) {
	c := NewClient(unreachable, "test", discard)
	if err := c.PublishSample("env/x/temperature", env.Sample{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSubscribeBeforeConnect(t *testing.T) {
	c := NewClient(unreachable, "test", discard)
	if err := c.SubscribeSamples("env/x/+", func(string, env.Sample) {}); err != nil {
		t.Fatal(err)
	}
	if len(c.subs) != 1 || c.subs[0].filter != "env/x/+" {
		t.Errorf("subscription not recorded: %+v", c.subs)
	}
}

func TestConnectHonorsContext(t *testing.T) {
	c := NewClient(unreachable, "test", discard)
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := c.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestConnectAfterDisconnect(t *testing.T) {
	c := NewClient(unreachable, "test", discard)
	c.Disconnect()
	c.Disconnect()
	if err := c.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
