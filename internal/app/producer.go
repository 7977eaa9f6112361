// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/relabs-tech/env_monitor/internal/channel"
	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/metrics"
	"github.com/relabs-tech/env_monitor/internal/mqtt"
	"github.com/relabs-tech/env_monitor/internal/sensors"
	"github.com/relabs-tech/env_monitor/internal/throttle"
)

// Publisher sends a channel sample to topic.
type Publisher interface {
	PublishSample(topic string, s env.Sample) error
}

type polledChannel struct {
	view     *channel.View
	topic    string
	interval time.Duration
}

// Producer polls every monitored channel on its own interval and publishes
// the channel samples. All channels share one throttled reader, so the sensor
// is read at most once per MIN_READ_INTERVAL.
type Producer struct {
	reader   *throttle.Reader
	channels []polledChannel
	pub      Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewProducer builds the reader and the channel views for cfg on top of src.
func NewProducer(cfg *config.Config, src throttle.Source, pub Publisher, logger *slog.Logger) (*Producer, error) {
	p := &Producer{
		reader: throttle.New(src, millis(cfg.MinReadInterval)),
		pub:    pub,
		logger: logger,
		now:    time.Now,
	}
	for _, kind := range cfg.MonitoredConditions {
		unit := channel.Percent
		if kind == channel.Temperature {
			unit = cfg.TemperatureUnit
		}
		view, err := channel.New(cfg.SensorName, kind, unit, p.reader)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", kind.Key(), err)
		}
		p.channels = append(p.channels, polledChannel{
			view:     view,
			topic:    cfg.Topic(kind),
			interval: millis(cfg.UpdateInterval(kind)),
		})
	}
	return p, nil
}

// Reader returns the shared throttled reader.
func (p *Producer) Reader() *throttle.Reader {
	return p.reader
}

// Views returns the channel views in configuration order.
func (p *Producer) Views() []*channel.View {
	views := make([]*channel.View, len(p.channels))
	for i, c := range p.channels {
		views[i] = c.view
	}
	return views
}

// Run polls every channel until ctx is done. Each channel is polled once
// immediately and then on every tick of its interval.
func (p *Producer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, c := range p.channels {
		wg.Add(1)
		go func(c polledChannel) {
			defer wg.Done()
			p.pollLoop(ctx, c)
		}(c)
	}
	wg.Wait()
	return nil
}

func (p *Producer) pollLoop(ctx context.Context, c polledChannel) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	p.poll(c)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(c)
		}
	}
}

// poll updates one channel and publishes its sample. A failed update is
// logged; the last good value is still published.
func (p *Producer) poll(c polledChannel) {
	if err := c.view.Update(); err != nil {
		p.logger.Warn("channel update failed", "channel", c.view.Kind().Key(), "error", err)
	}

	s := c.view.Sample(p.now())
	if !s.HasValue() {
		p.logger.Debug("channel has no value yet", "channel", s.Channel)
		return
	}
	if err := p.pub.PublishSample(c.topic, s); err != nil {
		p.logger.Error("publish failed", "topic", c.topic, "error", err)
		return
	}
	p.logger.Info("sample published", "topic", c.topic, "value", *s.Value, "unit", s.Unit)
}

// RunProducer opens the configured sensor, connects to the broker and
// publishes channel samples until ctx is done. When METRICS_PORT is set it
// also serves Prometheus metrics.
func RunProducer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	src, closer, err := sensors.Open(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := mqtt.NewClient(cfg.MQTTBroker, cfg.MQTTClientIDProducer, logger)
	defer client.Disconnect()
	if err := client.Connect(ctx); err != nil {
		return err
	}

	p, err := NewProducer(cfg, src, client, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsPort > 0 {
		views := p.Views()
		values := make([]metrics.ChannelValue, len(views))
		for i, v := range views {
			values[i] = v
		}
		registry := metrics.NewRegistry(metrics.NewCollector(cfg.SensorName, p.Reader(), values))
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		addr := ":" + strconv.Itoa(cfg.MetricsPort)
		go serveUntilDone(ctx, &http.Server{Addr: addr, Handler: mux}, logger)
	}

	logger.Info("producer running",
		"sensor", cfg.SensorName,
		"driver", cfg.SensorDriver,
		"min_read_interval_ms", cfg.MinReadInterval,
	)
	return p.Run(ctx)
}

// serveUntilDone runs srv until ctx is done, then shuts it down.
func serveUntilDone(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "addr", srv.Addr, "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
