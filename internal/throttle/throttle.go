// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package throttle rate-limits physical sensor transactions.
//
// A Reader wraps a synchronous bus-read Source and guarantees that the source
// runs at most once per minimum interval, however many consumers ask for a
// refresh. The last successful Reading is cached and served to every caller
// inside the interval without touching the bus.
package throttle

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/relabs-tech/env_monitor/internal/env"
)

// Source is a blocking bus read returning one complete Reading.
type Source interface {
	Read() (env.Reading, error)
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() (env.Reading, error)

// Read calls f.
func (f SourceFunc) Read() (env.Reading, error) {
	return f()
}

// BusError is a failed physical transaction.
type BusError struct {
	Err error
}

func (e *BusError) Error() string {
	return "bus read failed: " + e.Err.Error()
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Stats are cumulative counters of a Reader.
type Stats struct {
	Transactions uint64 // source invocations
	Failures     uint64 // source invocations that failed
	Throttled    uint64 // refreshes served from cache
	Shared       uint64 // refreshes that joined an in-flight transaction
}

// Reader is the shared, throttled front of a Source. It is safe for
// concurrent use.
type Reader struct {
	src         Source
	minInterval time.Duration
	now         func() time.Time

	// flight collapses concurrent refreshes into one check-read-update
	// sequence; the source never runs concurrently with itself.
	flight singleflight.Group

	mu       sync.RWMutex
	reading  env.Reading
	have     bool
	lastRead time.Time

	transactions atomic.Uint64
	failures     atomic.Uint64
	throttled    atomic.Uint64
	shared       atomic.Uint64
}

const flightKey = "read"

// New returns a Reader over src. A negative minInterval is treated as zero,
// in which case every refresh reads the bus.
func New(src Source, minInterval time.Duration) *Reader {
	if minInterval < 0 {
		minInterval = 0
	}
	return &Reader{src: src, minInterval: minInterval, now: time.Now}
}

// Refresh reads the source if at least the minimum interval elapsed since the
// last successful read (or no read ever succeeded). Otherwise it is a no-op.
//
// A failed read leaves the cached Reading untouched and is reported to this
// call only, as a *BusError. Callers arriving while a read is in flight wait
// for it and observe its outcome instead of issuing their own.
func (r *Reader) Refresh() error {
	_, err, shared := r.flight.Do(flightKey, r.refresh)
	if shared {
		r.shared.Add(1)
	}
	return err
}

func (r *Reader) refresh() (interface{}, error) {
	now := r.now()

	r.mu.RLock()
	due := !r.have || now.Sub(r.lastRead) >= r.minInterval
	r.mu.RUnlock()
	if !due {
		r.throttled.Add(1)
		return nil, nil
	}

	r.transactions.Add(1)
	reading, err := r.src.Read()
	if err != nil {
		r.failures.Add(1)
		var busErr *BusError
		if errors.As(err, &busErr) {
			return nil, err
		}
		return nil, &BusError{Err: err}
	}
	if reading.Time.IsZero() {
		reading.Time = now
	}

	r.mu.Lock()
	r.reading = reading
	r.have = true
	r.lastRead = now
	r.mu.Unlock()
	return nil, nil
}

// Current returns the cached Reading. ok is false until a read succeeded.
// It never touches the bus.
func (r *Reader) Current() (reading env.Reading, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reading, r.have
}

// LastRead returns the start time of the last successful transaction.
func (r *Reader) LastRead() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRead, r.have
}

// MinInterval returns the configured minimum interval between transactions.
func (r *Reader) MinInterval() time.Duration {
	return r.minInterval
}

// Stats returns a snapshot of the counters.
func (r *Reader) Stats() Stats {
	return Stats{
		Transactions: r.transactions.Load(),
		Failures:     r.failures.Load(),
		Throttled:    r.throttled.Load(),
		Shared:       r.shared.Load(),
	}
}
