// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package htu21d

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Address is the fixed I²C address of the HTU21D.
const Address uint16 = 0x40

const (
	cmdTriggerTemperature byte = 0xF3 // no hold master
	cmdTriggerHumidity    byte = 0xF5 // no hold master
	cmdReadUserRegister   byte = 0xE7
	cmdSoftReset          byte = 0xFE

	statusMask = 0xFFFC

	minRH = 0 * physic.PercentRH
	maxRH = 100 * physic.PercentRH

	// Polynomial x^8 + x^5 + x^4 + 1, x^8 omitted.
	crc8Polynomial byte = 0x31
)

// Opts holds the configuration options for the device.
type Opts struct {
	// TemperatureDelay is the wait between triggering a temperature conversion
	// and reading it. Default is 50ms (14 bit).
	TemperatureDelay time.Duration
	// HumidityDelay is the wait for a humidity conversion. Default is 16ms
	// (12 bit).
	HumidityDelay time.Duration
	// ResetDelay is the wait after a soft reset. Default is 15ms.
	ResetDelay time.Duration
	// ValidateData checks the CRC-8 of each measurement. Default is true.
	ValidateData bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	TemperatureDelay: 50 * time.Millisecond,
	HumidityDelay:    16 * time.Millisecond,
	ResetDelay:       15 * time.Millisecond,
	ValidateData:     true,
}

// Dev is a handle to an HTU21D.
type Dev struct {
	d    *i2c.Dev
	opts Opts
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C resets the sensor on bus b and checks that it answers. opts can be
// nil.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: Address}, opts: *opts}
	if err := d.SoftReset(); err != nil {
		return nil, &NotDetectedError{Err: err}
	}
	if _, err := d.UserRegister(); err != nil {
		return nil, &NotDetectedError{Err: err}
	}
	return d, nil
}

// Sense reads temperature and humidity. Pressure is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.measure(cmdTriggerTemperature, d.opts.TemperatureDelay)
	if err != nil {
		return fmt.Errorf("htu21d: temperature: %w", err)
	}
	h, err := d.measure(cmdTriggerHumidity, d.opts.HumidityDelay)
	if err != nil {
		return fmt.Errorf("htu21d: humidity: %w", err)
	}
	e.Temperature = countToTemp(t)
	e.Humidity = countToHumidity(h)
	e.Pressure = 0
	return nil
}

// measure triggers a conversion, waits for it and returns the raw count with
// the status bits cleared.
func (d *Dev) measure(cmd byte, delay time.Duration) (uint16, error) {
	if err := d.d.Tx([]byte{cmd}, nil); err != nil {
		return 0, err
	}
	time.Sleep(delay)
	r := make([]byte, 3)
	if err := d.d.Tx(nil, r); err != nil {
		return 0, err
	}
	if d.opts.ValidateData {
		if crc := calculateCRC8(r[:2]); crc != r[2] {
			return 0, &DataCorruptionError{Got: r[2], Want: crc}
		}
	}
	return (uint16(r[0])<<8 | uint16(r[1])) & statusMask, nil
}

// countToTemp converts a raw count: T = -46.85 + 175.72 * S / 2^16.
func countToTemp(count uint16) physic.Temperature {
	c := -46.85 + 175.72*float64(count)/65536.0
	return physic.Temperature(c*float64(physic.Kelvin)) + physic.ZeroCelsius
}

// countToHumidity converts a raw count: RH = -6 + 125 * S / 2^16. The sensor
// reports values slightly outside 0..100 %RH near saturation.
func countToHumidity(count uint16) physic.RelativeHumidity {
	rh := physic.RelativeHumidity((-6.0 + 125.0*float64(count)/65536.0) * float64(physic.PercentRH))
	if rh < minRH {
		rh = minRH
	} else if rh > maxRH {
		rh = maxRH
	}
	return rh
}

func calculateCRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ crc8Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// SoftReset reboots the sensor.
func (d *Dev) SoftReset() error {
	if err := d.d.Tx([]byte{cmdSoftReset}, nil); err != nil {
		return err
	}
	time.Sleep(d.opts.ResetDelay)
	return nil
}

// UserRegister returns the user register (resolution, battery, heater bits).
func (d *Dev) UserRegister() (byte, error) {
	r := []byte{0}
	if err := d.d.Tx([]byte{cmdReadUserRegister}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// SenseContinuous returns a channel receiving a measurement every interval.
// Call Halt() to stop it.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < d.opts.TemperatureDelay+d.opts.HumidityDelay {
		return nil, errors.New("htu21d: sample interval is shorter than the conversion time")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("htu21d: SenseContinuous already running")
	}
	d.stop = make(chan struct{})
	stop := d.stop
	ch := make(chan physic.Env)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Humidity = 40 * physic.MilliRH
	e.Pressure = 0
}

// Halt stops a running SenseContinuous.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

func (d *Dev) String() string {
	return "htu21d"
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
