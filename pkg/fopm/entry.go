// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Directory is the decoded response to a directory query
type Directory struct {
	Count    uint16
	Response Frame
}

// ParseDirectory extracts the entry count from a directory response
func ParseDirectory(resp Frame) Directory {
	return Directory{
		Count:    binary.LittleEndian.Uint16(resp[countOffset : countOffset+2]),
		Response: resp,
	}
}

// Entry is one decoded measurement stored on the meter
type Entry struct {
	Index      uint16 // zero-based position in the table
	Power      float32
	Reference  float32
	PowerDB    float64
	RefDB      float64
	RelativeDB float64
	Wavelength Wavelength
	Modulation Modulation
	Raw        [EntrySize]byte
}

// Number returns the one-based display index
func (e Entry) Number() int {
	return int(e.Index) + 1
}

// DecodeEntry decodes the 16-byte payload of entry index.
// Unknown wavelength or modulation codes are not errors; a power or reference
// reading at or below zero is.
func DecodeEntry(index uint16, raw []byte) (Entry, error) {
	if len(raw) != EntrySize {
		return Entry{}, fmt.Errorf("%w: got %d bytes, want %d", ErrPayloadLength, len(raw), EntrySize)
	}

	e := Entry{
		Index:      index,
		Power:      math.Float32frombits(binary.LittleEndian.Uint32(raw[powerOffset:])),
		Reference:  math.Float32frombits(binary.LittleEndian.Uint32(raw[referenceOffset:])),
		Wavelength: Wavelength(raw[wavelengthOffset]),
		Modulation: Modulation(raw[modulationOffset]),
	}
	copy(e.Raw[:], raw)

	var err error
	if e.PowerDB, err = toDB("power", e.Power); err != nil {
		return Entry{}, err
	}
	if e.RefDB, err = toDB("reference", e.Reference); err != nil {
		return Entry{}, err
	}
	e.RelativeDB = e.PowerDB - e.RefDB

	return e, nil
}

// toDB converts a linear reading to 10·log10(x). Readings at or below zero
// have no logarithm; NaN and +Inf pass through as NaN and +Inf.
func toDB(name string, x float32) (float64, error) {
	v := float64(x)
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s=%g", ErrNonPositivePower, name, v)
	}
	return 10 * math.Log10(v), nil
}

// Record is a decoded entry together with the raw exchange that produced it
type Record struct {
	Entry
	Query     Frame    // read-at query for the second half
	Responses [2]Frame // responses for the first and second half
}

// Payload returns the reassembled 16-byte entry payload
func (r Record) Payload() []byte {
	return r.Raw[:]
}
