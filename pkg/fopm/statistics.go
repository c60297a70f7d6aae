// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"fmt"
	"time"
)

// Statistics summarises one poll of the meter
type Statistics struct {
	StartTime time.Time
	EndTime   time.Time

	// Counters
	Expected           uint16 // entry count reported by the directory
	Entries            uint64 // entries decoded and emitted
	Queries            uint64 // frames sent
	UnknownWavelengths uint64
	UnknownModulations uint64
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// Update counts an emitted entry and its anomalies
func (s *Statistics) Update(anomalies []ValidationError) {
	s.Entries++
	for _, a := range anomalies {
		switch a.Type {
		case AnomalyUnknownWavelength:
			s.UnknownWavelengths++
		case AnomalyUnknownModulation:
			s.UnknownModulations++
		}
	}
}

// Finish marks the end of the poll
func (s *Statistics) Finish() {
	s.EndTime = time.Now()
}

// Elapsed returns the poll duration, up to now if the poll is still running
func (s *Statistics) Elapsed() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Complete reports whether every entry announced by the directory was emitted
func (s *Statistics) Complete() bool {
	return s.Entries == uint64(s.Expected)
}

// String returns a formatted summary
func (s *Statistics) String() string {
	result := fmt.Sprintf("=== Poll summary (%.1f seconds) ===\n", s.Elapsed().Seconds())
	result += fmt.Sprintf("Entries:          %5d of %d\n", s.Entries, s.Expected)
	result += fmt.Sprintf("Queries sent:     %5d\n", s.Queries)
	if s.UnknownWavelengths > 0 {
		result += fmt.Sprintf("Unknown wavelength codes: %d\n", s.UnknownWavelengths)
	}
	if s.UnknownModulations > 0 {
		result += fmt.Sprintf("Unknown modulation codes: %d\n", s.UnknownModulations)
	}
	result += "================================\n"
	return result
}
