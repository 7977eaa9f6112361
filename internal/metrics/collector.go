// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/env_monitor/internal/channel"
	"github.com/relabs-tech/env_monitor/internal/throttle"
)

// ReaderStats is the part of a throttled reader the collector reports on.
type ReaderStats interface {
	Stats() throttle.Stats
	LastRead() (time.Time, bool)
}

// ChannelValue is the part of a channel view the collector reports on.
type ChannelValue interface {
	Kind() channel.Kind
	Unit() channel.Unit
	Value() (float64, bool)
	Updated() time.Time
}

// Collector exports sensor bus activity and the current channel values.
// Values are read at scrape time.
type Collector struct {
	reader   ReaderStats
	channels []ChannelValue

	transactions *prometheus.Desc
	failures     *prometheus.Desc
	throttled    *prometheus.Desc
	shared       *prometheus.Desc
	lastRead     *prometheus.Desc
	value        *prometheus.Desc
	lastUpdate   *prometheus.Desc
}

// NewCollector reports on reader and the views built on it. sensor is
// attached to every metric as a constant label.
func NewCollector(sensor string, reader ReaderStats, channels []ChannelValue) *Collector {
	constLabels := prometheus.Labels{"sensor": sensor}
	return &Collector{
		reader:   reader,
		channels: channels,
		transactions: prometheus.NewDesc(
			"env_monitor_sensor_transactions_total",
			"Bus transactions started against the sensor",
			nil, constLabels),
		failures: prometheus.NewDesc(
			"env_monitor_sensor_failures_total",
			"Bus transactions that failed",
			nil, constLabels),
		throttled: prometheus.NewDesc(
			"env_monitor_refresh_throttled_total",
			"Refresh requests served from the cache because the minimum interval had not elapsed",
			nil, constLabels),
		shared: prometheus.NewDesc(
			"env_monitor_refresh_shared_total",
			"Refresh requests that joined a bus transaction already in flight",
			nil, constLabels),
		lastRead: prometheus.NewDesc(
			"env_monitor_sensor_last_read_timestamp_seconds",
			"Start of the last successful bus transaction (epoch seconds)",
			nil, constLabels),
		value: prometheus.NewDesc(
			"env_monitor_channel_value",
			"Current rounded channel value",
			[]string{"channel", "unit"}, constLabels),
		lastUpdate: prometheus.NewDesc(
			"env_monitor_channel_last_update_timestamp_seconds",
			"Last time the channel value changed (epoch seconds)",
			[]string{"channel"}, constLabels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.transactions
	ch <- c.failures
	ch <- c.throttled
	ch <- c.shared
	ch <- c.lastRead
	ch <- c.value
	ch <- c.lastUpdate
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.reader.Stats()
	ch <- prometheus.MustNewConstMetric(c.transactions, prometheus.CounterValue, float64(s.Transactions))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.throttled, prometheus.CounterValue, float64(s.Throttled))
	ch <- prometheus.MustNewConstMetric(c.shared, prometheus.CounterValue, float64(s.Shared))
	if t, ok := c.reader.LastRead(); ok {
		ch <- prometheus.MustNewConstMetric(c.lastRead, prometheus.GaugeValue, epochSeconds(t))
	}

	for _, v := range c.channels {
		value, ok := v.Value()
		if !ok {
			continue
		}
		key := v.Kind().Key()
		ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, value, key, unitName(v.Unit()))
		ch <- prometheus.MustNewConstMetric(c.lastUpdate, prometheus.GaugeValue, epochSeconds(v.Updated()), key)
	}
}

// unitName returns an ASCII unit label value.
func unitName(u channel.Unit) string {
	switch u {
	case channel.Celsius:
		return "celsius"
	case channel.Fahrenheit:
		return "fahrenheit"
	case channel.Percent:
		return "percent"
	default:
		return ""
	}
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// NewRegistry returns a registry holding the given collectors plus the Go
// runtime and process collectors.
func NewRegistry(cs ...prometheus.Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(cs...)
	return registry
}

// Handler exposes the Prometheus registry.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
