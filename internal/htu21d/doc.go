// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package htu21d controls a TE Connectivity HTU21D(F) temperature and
// humidity sensor over I²C.
//
// The sensor has a fixed address (0x40). Measurements use the "no hold
// master" commands: the driver triggers a conversion, waits for the maximum
// conversion time and reads the 16 bit result with its CRC-8.
//
// Typical accuracy is ±0.3 °C and ±2 %RH. A temperature conversion takes up
// to 50 ms at 14 bit, a humidity conversion up to 16 ms at 12 bit.
//
// Datasheet: https://www.te.com/commerce/DocumentDelivery/DDEController?Action=showdoc&DocId=Data+Sheet%7FHPC199_6%7FA6%7Fpdf%7FEnglish%7FENG_DS_HPC199_6_A6.pdf
package htu21d
