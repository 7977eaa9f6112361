// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/env_monitor/internal/channel"
	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/mqtt"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

const (
	oledWidth  = 128
	oledHeight = 64
	// 7x13 font: 18 columns.
	oledColumns = oledWidth / 7
)

// screen is the part of an OLED the display loop draws on.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// displayData holds the latest sample of each channel.
type displayData struct {
	mu      sync.RWMutex
	samples map[string]env.Sample
}

func (d *displayData) set(_ string, s env.Sample) {
	d.mu.Lock()
	d.samples[s.Channel] = s
	d.mu.Unlock()
}

func (d *displayData) snapshot() map[string]env.Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]env.Sample, len(d.samples))
	for k, v := range d.samples {
		out[k] = v
	}
	return out
}

// RunDisplay shows the monitored channels on an SSD1306 OLED, refreshed every
// DISPLAY_UPDATE_INTERVAL from the samples published on MQTT.
func RunDisplay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	bus, err := sensors.OpenI2C(cfg.I2CBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	logger.Info("display initialized", "bus", bus.String())

	if err := drawImage(dev, renderSplash(cfg.SensorName)); err != nil {
		logger.Warn("error showing splash", "error", err)
	}

	data := &displayData{samples: map[string]env.Sample{}}
	client := mqtt.NewClient(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, logger)
	defer client.Disconnect()
	if err := client.SubscribeSamples(cfg.TopicPrefix+"/+", data.set); err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

	return displayLoop(ctx, dev, cfg.MonitoredConditions, data,
		millis(cfg.DisplayUpdateInterval), logger)
}

func displayLoop(ctx context.Context, dev screen, kinds []channel.Kind, data *displayData,
	interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			img := renderChannels(kinds, data.snapshot())
			if err := drawImage(dev, img); err != nil {
				logger.Warn("error updating display", "error", err)
			}
		}
	}
}

func drawImage(dev screen, img image.Image) error {
	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, y int, text string) {
	if len(text) > oledColumns {
		text = text[:oledColumns]
	}
	d.Dot = fixed.P(0, y)
	d.DrawString(text)
}

func renderSplash(sensorName string) *image1bit.VerticalLSB {
	img, d := newFrame()
	drawLine(d, 26, sensorName)
	drawLine(d, 39, "Waiting...")
	return img
}

// renderChannels draws up to two channels, each as a name line followed by a
// value line.
func renderChannels(kinds []channel.Kind, samples map[string]env.Sample) *image1bit.VerticalLSB {
	img, d := newFrame()
	for i, k := range kinds {
		if i == 2 {
			break
		}
		top := 13 + i*32
		drawLine(d, top, k.String())
		drawLine(d, top+14, "  "+oledValue(samples[k.Key()]))
	}
	return img
}

// oledValue formats a sample for the ASCII-only OLED font.
func oledValue(s env.Sample) string {
	if !s.HasValue() {
		return "Waiting..."
	}
	unit := strings.TrimPrefix(s.Unit, "°")
	return fmt.Sprintf("%.1f %s", *s.Value, unit)
}
