// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/env_monitor/internal/channel"
	"github.com/relabs-tech/env_monitor/internal/env"
)

type fakeScreen struct {
	mu     sync.Mutex
	frames int
}

func (f *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, oledWidth, oledHeight) }

func (f *fakeScreen) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	return nil
}

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	for _, b := range img.Pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestOLEDValue(t *testing.T) {
	data := []struct {
		in   env.Sample
		want string
	}{
		{env.Sample{}, "Waiting..."},
		{sample("temperature", "°C", 22.5), "22.5 C"},
		{sample("temperature", "°F", 98.6), "98.6 F"},
		{sample("humidity", "%", 45.3), "45.3 %"},
	}
	for _, line := range data {
		if got := oledValue(line.in); got != line.want {
			t.Errorf("oledValue(%+v) = %q, expected %q", line.in, got, line.want)
		}
	}
}

func TestRenderChannels(t *testing.T) {
	kinds := []channel.Kind{channel.Temperature, channel.Humidity}

	waiting := renderChannels(kinds, nil)
	if litPixels(waiting) == 0 {
		t.Fatal("blank frame while waiting")
	}
	withData := renderChannels(kinds, map[string]env.Sample{
		"temperature": sample("temperature", "°C", 22.5),
		"humidity":    sample("humidity", "%", 45.3),
	})
	if bytes.Equal(waiting.Pix, withData.Pix) {
		t.Error("frame did not change when samples arrived")
	}
	if litPixels(renderSplash("HTU21D Sensor")) == 0 {
		t.Error("blank splash")
	}
}

func TestDisplayLoop(t *testing.T) {
	dev := &fakeScreen{}
	data := &displayData{samples: map[string]env.Sample{}}
	data.set("env/htu21d/humidity", sample("humidity", "%", 45.3))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := displayLoop(ctx, dev, []channel.Kind{channel.Humidity}, data, 10*time.Millisecond, discard); err != nil {
		t.Fatal(err)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.frames < 2 {
		t.Errorf("%d frames drawn, expected several", dev.frames)
	}
}
