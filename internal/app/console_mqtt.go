// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/mqtt"
)

// RunConsoleMQTT subscribes to every channel topic under TOPIC_PREFIX and
// prints each sample until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := mqtt.NewClient(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	defer client.Disconnect()

	var mu sync.Mutex
	printer := func(_ string, s env.Sample) {
		mu.Lock()
		defer mu.Unlock()
		printSample(os.Stdout, s)
	}
	if err := client.SubscribeSamples(cfg.TopicPrefix+"/+", printer); err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

// printSample writes one console line, e.g.
// "[TEMP] HTU21D Sensor Temperature    22.5 °C   (12:00:00)".
func printSample(w io.Writer, s env.Sample) {
	tag := strings.ToUpper(s.Channel)
	if len(tag) > 4 {
		tag = tag[:4]
	}
	value := "unavailable"
	if s.HasValue() {
		value = fmt.Sprintf("%6.1f %s", *s.Value, s.Unit)
	}
	fmt.Fprintf(w, "[%-4s] %-30s %-10s (%s)\n", tag, s.Name, value, s.Time.Format("15:04:05"))
}
