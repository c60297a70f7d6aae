// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package fopm implements the query/response protocol spoken by the fiber-optic
// power meter (FOPM) over its serial link.
//
// The meter stores a table of measurement entries. A directory query returns
// the number of stored entries; each entry is then fetched as two 8-byte
// halves with read-at queries. This package builds the command frames, pairs
// the halves into entries, and converts the raw IEEE-754 readings into
// logarithmic power values.
package fopm

// Frame layout
const (
	FrameSize   = 13
	HeaderSize  = 5
	PayloadSize = FrameSize - HeaderSize // 8
	EntrySize   = 2 * PayloadSize        // 16
)

// Command bytes
const (
	StartByte      = 0xAA
	CmdReadAt      = 0x20
	CmdDirectory   = 0x22
	ReadAtLength   = 0x08 // bytes requested per read-at query
	EntryStride    = 0x10 // offset distance between consecutive entries
	SecondHalfSkip = 0x08 // offset of the second half within an entry
)

// Read-at addressing: bytes 3:2 of the query hold ReadAtBase + offset
const (
	ReadAtBase      = 0x1000
	MaxReadAtOffset = 0xFFFF - ReadAtBase
)

// Entry payload layout
const (
	powerOffset      = 0
	referenceOffset  = 4
	wavelengthOffset = 9
	modulationOffset = 10
)

// Directory response layout: entry count is a little-endian u16 at [5:7)
const (
	countOffset = 5
)

// Serial defaults used by the meter
const (
	DefaultBaudRate = 9600
)
