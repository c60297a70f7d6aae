// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import "errors"

var (
	// ErrShortRead is returned when fewer than FrameSize bytes arrive
	ErrShortRead = errors.New("fopm: short read")

	// ErrShortWrite is returned when a frame could not be written in full
	ErrShortWrite = errors.New("fopm: short write")

	// ErrPayloadLength is returned when an entry payload is not EntrySize bytes
	ErrPayloadLength = errors.New("fopm: invalid entry payload length")

	// ErrOffsetRange is returned for read-at offsets the query cannot address
	ErrOffsetRange = errors.New("fopm: read-at offset out of range")

	// ErrNonPositivePower is returned when a reading has no logarithm
	ErrNonPositivePower = errors.New("fopm: power reading is not positive")
)
