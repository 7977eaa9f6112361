// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/env_monitor/internal/channel"
)

// Sensor drivers accepted by SENSOR_DRIVER.
const (
	DriverHTU21D = "htu21d"
	DriverBME280 = "bme280"
	DriverBMP280 = "bmp280"
	DriverNMEA   = "nmea"
	DriverMock   = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// Application
	AppEnv   string // "dev" or "prod"
	LogLevel slog.Level
	LogFile  string // empty: stdout

	// Sensor
	SensorName          string
	SensorDriver        string
	MonitoredConditions []channel.Kind
	TemperatureUnit     channel.Unit

	// Bus / driver
	I2CBus            string // empty: first available bus
	HTU21DValidateCRC bool
	BME280I2CAddr     uint16
	NMEASerialPort    string
	NMEABaudRate      int
	NMEAMaxLines      int

	// Timing (milliseconds)
	MinReadInterval           int
	TemperatureUpdateInterval int
	HumidityUpdateInterval    int
	DisplayUpdateInterval     int

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	TopicPrefix          string

	// Servers
	WebServerPort int
	MetricsPort   int // 0 disables the producer's /metrics endpoint
}

// Package-level singleton. InitGlobal sets it once, Get reads it under a read
// lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		AppEnv:   "dev",
		LogLevel: slog.LevelInfo,

		SensorName:          "HTU21D Sensor",
		SensorDriver:        DriverHTU21D,
		MonitoredConditions: []channel.Kind{channel.Temperature, channel.Humidity},
		TemperatureUnit:     channel.Celsius,

		HTU21DValidateCRC: true,
		BME280I2CAddr:     0x76,
		NMEASerialPort:    "/dev/serial0",
		NMEABaudRate:      4800,
		NMEAMaxLines:      32,

		MinReadInterval:           3000,
		TemperatureUpdateInterval: 30000,
		HumidityUpdateInterval:    30000,
		DisplayUpdateInterval:     1000,

		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDProducer: "env-monitor-producer",
		MQTTClientIDConsole:  "env-monitor-console",
		MQTTClientIDWeb:      "env-monitor-web",
		MQTTClientIDDisplay:  "env-monitor-display",
		TopicPrefix:          "env/htu21d",

		WebServerPort: 8080,
		MetricsPort:   9100,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Application
	case "APP_ENV":
		switch value {
		case "dev", "prod":
			c.AppEnv = value
		default:
			return fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", value)
		}
	case "LOG_LEVEL":
		c.LogLevel, err = parseLogLevel(value)
	case "LOG_FILE":
		c.LogFile = value

	// Sensor
	case "SENSOR_NAME":
		c.SensorName = value
	case "SENSOR_DRIVER":
		switch value {
		case DriverHTU21D, DriverBME280, DriverBMP280, DriverNMEA, DriverMock:
			c.SensorDriver = value
		default:
			return fmt.Errorf("invalid SENSOR_DRIVER %q (allowed: htu21d, bme280, bmp280, nmea, mock)", value)
		}
	case "MONITORED_CONDITIONS":
		c.MonitoredConditions, err = parseConditions(value)
	case "TEMPERATURE_UNIT":
		c.TemperatureUnit, err = channel.ParseTemperatureUnit(value)

	// Bus / driver
	case "I2C_BUS":
		c.I2CBus = value
	case "HTU21D_VALIDATE_CRC":
		c.HTU21DValidateCRC, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid HTU21D_VALIDATE_CRC %q: %w", value, err)
		}
	case "BME280_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid BME280_I2C_ADDR %q: %w", value, perr)
		}
		if addr != 0x76 && addr != 0x77 {
			return fmt.Errorf("BME280_I2C_ADDR must be 0x76 or 0x77, got 0x%X", addr)
		}
		c.BME280I2CAddr = uint16(addr)
	case "NMEA_SERIAL_PORT":
		c.NMEASerialPort = value
	case "NMEA_BAUD_RATE":
		c.NMEABaudRate, err = parseInt(key, value, 1, 921600)
	case "NMEA_MAX_LINES":
		c.NMEAMaxLines, err = parseInt(key, value, 1, 1000)

	// Timing
	case "MIN_READ_INTERVAL":
		c.MinReadInterval, err = parseInt(key, value, 0, 24*3600*1000)
	case "TEMPERATURE_UPDATE_INTERVAL":
		c.TemperatureUpdateInterval, err = parseInt(key, value, 1, 24*3600*1000)
	case "HUMIDITY_UPDATE_INTERVAL":
		c.HumidityUpdateInterval, err = parseInt(key, value, 1, 24*3600*1000)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value, 1, 3600*1000)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "TOPIC_PREFIX":
		c.TopicPrefix = strings.TrimSuffix(value, "/")

	// Servers
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)
	case "METRICS_PORT":
		c.MetricsPort, err = parseInt(key, value, 0, 65535)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// parseConditions parses a comma separated list such as
// "temperature,humidity". Duplicates are rejected.
func parseConditions(value string) ([]channel.Kind, error) {
	var kinds []channel.Kind
	seen := map[channel.Kind]bool{}
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := channel.ParseKind(part)
		if err != nil {
			return nil, fmt.Errorf("invalid MONITORED_CONDITIONS: %w", err)
		}
		if seen[k] {
			return nil, fmt.Errorf("MONITORED_CONDITIONS lists %s twice", k.Key())
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.SensorName == "" {
		return fmt.Errorf("SENSOR_NAME is required")
	}
	if len(c.MonitoredConditions) == 0 {
		return fmt.Errorf("MONITORED_CONDITIONS must list at least one of temperature, humidity")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("TOPIC_PREFIX is required")
	}
	if c.SensorDriver == DriverNMEA && c.NMEASerialPort == "" {
		return fmt.Errorf("NMEA_SERIAL_PORT is required for the nmea driver")
	}
	return nil
}

// UpdateInterval returns the configured polling interval of a channel kind,
// in milliseconds.
func (c *Config) UpdateInterval(k channel.Kind) int {
	if k == channel.Humidity {
		return c.HumidityUpdateInterval
	}
	return c.TemperatureUpdateInterval
}

// Topic returns the MQTT topic a channel kind is published on.
func (c *Config) Topic(k channel.Kind) string {
	return c.TopicPrefix + "/" + k.Key()
}

// InitGlobal initializes the global configuration from file. Only the first
// call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
