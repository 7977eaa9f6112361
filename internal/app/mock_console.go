// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/sensors"
)

// consolePublisher prints samples instead of sending them to a broker.
type consolePublisher struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *consolePublisher) PublishSample(_ string, s env.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	printSample(p.w, s)
	return nil
}

// RunMockConsole runs the polling pipeline on the mock sensor and prints the
// samples, without hardware or broker.
func RunMockConsole(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	p, err := NewProducer(cfg, sensors.NewMockSource(), &consolePublisher{w: os.Stdout}, logger)
	if err != nil {
		return err
	}
	return p.Run(ctx)
}
