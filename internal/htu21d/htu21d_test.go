// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package htu21d

import (
	"errors"
	"math"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

var testOpts = Opts{ValidateData: true}

// Datasheet CRC example: 0x683A -> 0x7C, and SHT2x humidity example
// 0x4E85 -> 0x6B.
var measureOps = []i2ctest.IO{
	{Addr: Address, W: []byte{cmdTriggerTemperature}},
	{Addr: Address, R: []byte{0x68, 0x3A, 0x7C}},
	{Addr: Address, W: []byte{cmdTriggerHumidity}},
	{Addr: Address, R: []byte{0x4E, 0x85, 0x6B}},
}

func TestNewI2C(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Address, W: []byte{cmdSoftReset}},
			{Addr: Address, W: []byte{cmdReadUserRegister}, R: []byte{0x02}},
		},
	}
	dev, err := NewI2C(&bus, &testOpts)
	if err != nil {
		t.Fatal(err)
	}
	if s := dev.String(); s != "htu21d" {
		t.Errorf("String() = %q", s)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewI2CNotDetected(t *testing.T) {
	bus := i2ctest.Playback{DontPanic: true}
	_, err := NewI2C(&bus, &testOpts)
	var notDetected *NotDetectedError
	if !errors.As(err, &notDetected) {
		t.Fatalf("expected *NotDetectedError, got %v", err)
	}
}

func TestDev_Sense(t *testing.T) {
	bus := i2ctest.Playback{Ops: measureOps}
	dev := Dev{d: &i2c.Dev{Bus: &bus, Addr: Address}, opts: testOpts}
	e := physic.Env{Pressure: physic.KiloPascal}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	// Status bits are cleared: 0x683A -> 0x6838, 0x4E85 -> 0x4E84.
	wantC := -46.85 + 175.72*float64(0x6838)/65536
	if diff := math.Abs(e.Temperature.Celsius() - wantC); diff > 0.001 {
		t.Errorf("temperature %s, expected %f°C", e.Temperature, wantC)
	}
	wantRH := -6 + 125*float64(0x4E84)/65536
	gotRH := float64(e.Humidity) / float64(physic.PercentRH)
	if diff := math.Abs(gotRH - wantRH); diff > 0.001 {
		t.Errorf("humidity %s, expected %f%%", e.Humidity, wantRH)
	}
	if e.Pressure != 0 {
		t.Errorf("pressure %s, expected 0", e.Pressure)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDev_SenseCRCError(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Address, W: []byte{cmdTriggerTemperature}},
			{Addr: Address, R: []byte{0x68, 0x3A, 0x00}},
		},
	}
	dev := Dev{d: &i2c.Dev{Bus: &bus, Addr: Address}, opts: testOpts}
	err := dev.Sense(&physic.Env{})
	var corrupt *DataCorruptionError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected *DataCorruptionError, got %v", err)
	}
	if corrupt.Want != 0x7C {
		t.Errorf("expected crc 0x7c, got 0x%02x", corrupt.Want)
	}
}

func TestDev_SenseNoValidation(t *testing.T) {
	bus := i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: Address, W: []byte{cmdTriggerTemperature}},
			{Addr: Address, R: []byte{0x68, 0x3A, 0x00}},
			{Addr: Address, W: []byte{cmdTriggerHumidity}},
			{Addr: Address, R: []byte{0x4E, 0x85, 0x00}},
		},
	}
	dev := Dev{d: &i2c.Dev{Bus: &bus, Addr: Address}, opts: Opts{}}
	if err := dev.Sense(&physic.Env{}); err != nil {
		t.Fatal(err)
	}
}

func TestDev_SenseBusError(t *testing.T) {
	bus := i2ctest.Playback{DontPanic: true}
	dev := Dev{d: &i2c.Dev{Bus: &bus, Addr: Address}, opts: testOpts}
	if err := dev.Sense(&physic.Env{}); err == nil {
		t.Fatal("expected an error from an empty bus")
	}
}

func TestCalculateCRC8(t *testing.T) {
	data := []struct {
		in   []byte
		want byte
	}{
		{[]byte{0x68, 0x3A}, 0x7C},
		{[]byte{0x4E, 0x85}, 0x6B},
		{[]byte{0xDC}, 0x79},
		{[]byte{}, 0x00},
	}
	for _, line := range data {
		if got := calculateCRC8(line.in); got != line.want {
			t.Errorf("crc(%#v) = 0x%02x, expected 0x%02x", line.in, got, line.want)
		}
	}
}

func TestCountToHumidityClamps(t *testing.T) {
	if rh := countToHumidity(0); rh != minRH {
		t.Errorf("count 0: %s, expected %s", rh, minRH)
	}
	if rh := countToHumidity(0xFFFC); rh != maxRH {
		t.Errorf("count 0xfffc: %s, expected %s", rh, maxRH)
	}
}

func TestCountToTemp(t *testing.T) {
	if got := countToTemp(0).Celsius(); math.Abs(got+46.85) > 0.001 {
		t.Errorf("count 0: %f°C, expected -46.85", got)
	}
}

func TestSenseContinuous(t *testing.T) {
	ops := append(append([]i2ctest.IO{}, measureOps...), measureOps...)
	bus := i2ctest.Playback{Ops: ops, DontPanic: true}
	dev := Dev{d: &i2c.Dev{Bus: &bus, Addr: Address}, opts: testOpts}

	if _, err := dev.SenseContinuous(-time.Second); err == nil {
		t.Error("expected an error for a negative interval")
	}
	ch, err := dev.SenseContinuous(10 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(10 * time.Millisecond); err == nil {
		t.Error("expected an error for a second SenseContinuous")
	}
	for i := 0; i < 2; i++ {
		e, ok := <-ch
		if !ok {
			t.Fatal("channel closed early")
		}
		if e.Temperature == 0 {
			t.Error("empty measurement")
		}
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
}

func TestPrecision(t *testing.T) {
	var e physic.Env
	(&Dev{}).Precision(&e)
	if e.Temperature == 0 || e.Humidity == 0 {
		t.Errorf("precision not set: %+v", e)
	}
}
