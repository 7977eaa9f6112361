// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/htu21d"
	"github.com/relabs-tech/env_monitor/internal/throttle"
)

var (
	hostOnce    sync.Once
	hostInitErr error
)

// InitHost loads the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

// OpenI2C initializes the host and opens the named I²C bus. An empty name
// selects the first available bus.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("I2C bus open %q: %w", name, err)
	}
	return bus, nil
}

// Open creates the measurement source selected by cfg.SensorDriver. The
// returned closer releases the bus or serial port.
func Open(cfg *config.Config) (throttle.Source, io.Closer, error) {
	switch cfg.SensorDriver {
	case config.DriverMock:
		slog.Info("using mock sensor")
		return NewMockSource(), nopCloser{}, nil

	case config.DriverNMEA:
		opts := serial.OpenOptions{
			PortName:              cfg.NMEASerialPort,
			BaudRate:              uint(cfg.NMEABaudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		}
		port, err := serial.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("serial open %s: %w", opts.PortName, err)
		}
		slog.Info("NMEA serial port opened", "port", opts.PortName, "baud", opts.BaudRate)
		return NewNMEASource(port, cfg.NMEAMaxLines), port, nil

	case config.DriverHTU21D, config.DriverBME280, config.DriverBMP280:
		bus, err := OpenI2C(cfg.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		src, err := openI2CSource(bus, cfg)
		if err != nil {
			bus.Close()
			return nil, nil, err
		}
		slog.Info("sensor initialized", "driver", cfg.SensorDriver, "bus", bus.String())
		return src, &i2cCloser{dev: src.dev, bus: bus}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported sensor driver %q", cfg.SensorDriver)
	}
}

// openI2CSource creates the I²C device selected by cfg on bus b.
func openI2CSource(b i2c.Bus, cfg *config.Config) (*EnvSource, error) {
	var (
		dev      physic.SenseEnv
		humidity bool
		err      error
	)
	switch cfg.SensorDriver {
	case config.DriverHTU21D:
		opts := htu21d.DefaultOpts
		opts.ValidateData = cfg.HTU21DValidateCRC
		dev, err = htu21d.NewI2C(b, &opts)
		humidity = true
	case config.DriverBME280, config.DriverBMP280:
		var d *bmxx80.Dev
		d, err = bmxx80.NewI2C(b, cfg.BME280I2CAddr, &bmxx80.DefaultOpts)
		if err == nil {
			dev = d
		}
		humidity = cfg.SensorDriver == config.DriverBME280
	default:
		return nil, fmt.Errorf("unsupported I2C driver %q", cfg.SensorDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s init: %w", cfg.SensorDriver, err)
	}
	return NewEnvSource(dev, humidity), nil
}

type i2cCloser struct {
	dev physic.SenseEnv
	bus i2c.BusCloser
}

func (c *i2cCloser) Close() error {
	return errors.Join(c.dev.Halt(), c.bus.Close())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
