// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import "fmt"

// AnomalyType represents the kinds of decode anomalies an entry can carry
type AnomalyType int

const (
	AnomalyUnknownWavelength AnomalyType = iota
	AnomalyUnknownModulation
)

// ValidationError describes an anomaly found in a decoded entry.
// Anomalies never stop a poll; they are reported and counted.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateEntry returns the anomalies of e (empty if none)
func ValidateEntry(e Entry) []ValidationError {
	errors := []ValidationError{}

	if !e.Wavelength.Known() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownWavelength,
			Message: fmt.Sprintf("entry %d: unknown wavelength code 0x%02X", e.Number(), uint8(e.Wavelength)),
			Details: map[string]interface{}{"code": uint8(e.Wavelength)},
		})
	}

	if !e.Modulation.Known() {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownModulation,
			Message: fmt.Sprintf("entry %d: unknown modulation code 0x%02X", e.Number(), uint8(e.Modulation)),
			Details: map[string]interface{}{"code": uint8(e.Modulation)},
		})
	}

	return errors
}
