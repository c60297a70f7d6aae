// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package report renders polled meter entries to consoles and files.
//
// A Sink receives one Emit call per entry, in poll order, and a single Close
// after the last entry or when the poll aborts. Sinks that need the entry
// count implement Starter and are started once before the first entry.
package report

import (
	"errors"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
)

// Sink consumes decoded records
type Sink interface {
	Emit(r fopm.Record) error
	Close() error
}

// Starter is implemented by sinks that want the directory before any entry
type Starter interface {
	Start(d fopm.Directory) error
}

// Header is the column header shared by the CSV and XLSX sinks
var Header = []string{"Entry", "Wavelength", "Power", "Ref", "Frequency"}

// Multi fans records out to several sinks and closes each of them once
type Multi struct {
	sinks  []Sink
	closed bool
}

// NewMulti creates a fan-out sink
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink
func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Len returns the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Start starts every sink implementing Starter
func (m *Multi) Start(d fopm.Directory) error {
	for _, s := range m.sinks {
		if st, ok := s.(Starter); ok {
			if err := st.Start(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Emit passes r to every sink, stopping at the first error
func (m *Multi) Emit(r fopm.Record) error {
	for _, s := range m.sinks {
		if err := s.Emit(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink. Later calls are no-ops.
func (m *Multi) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps every record in memory
type Collector struct {
	Records []fopm.Record
}

// Emit appends r
func (c *Collector) Emit(r fopm.Record) error {
	c.Records = append(c.Records, r)
	return nil
}

// Close is a no-op
func (c *Collector) Close() error {
	return nil
}
