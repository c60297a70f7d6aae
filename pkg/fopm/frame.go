// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Frame is a fixed-size command or response frame
type Frame [FrameSize]byte

// BuildQuery builds a command frame. A nil readAt produces the directory
// query; otherwise a read-at query for the given offset.
func BuildQuery(readAt *uint16) (Frame, error) {
	if readAt == nil {
		return DirectoryQuery(), nil
	}
	return ReadAtQuery(uint32(*readAt))
}

// DirectoryQuery returns the query asking the meter for its entry count
func DirectoryQuery() Frame {
	var f Frame
	f[0] = StartByte
	f[1] = CmdDirectory
	return f
}

// ReadAtQuery returns the query reading ReadAtLength bytes at offset.
// Bytes 3:2 carry ReadAtBase + offset, so offsets above MaxReadAtOffset
// cannot be addressed and fail with ErrOffsetRange.
func ReadAtQuery(offset uint32) (Frame, error) {
	if offset > MaxReadAtOffset {
		return Frame{}, fmt.Errorf("%w: 0x%X > 0x%X", ErrOffsetRange, offset, MaxReadAtOffset)
	}
	addr := ReadAtBase + offset
	var f Frame
	f[0] = StartByte
	f[1] = CmdReadAt
	f[2] = byte(addr)
	f[3] = byte(addr >> 8)
	f[4] = ReadAtLength
	return f, nil
}

// EntryOffsets returns the two read-at offsets holding entry index
func EntryOffsets(index uint16) (first, second uint32) {
	first = uint32(index) * EntryStride
	return first, first + SecondHalfSkip
}

// Header returns the header/echo bytes of the frame
func (f Frame) Header() []byte {
	return f[:HeaderSize]
}

// Payload returns the data bytes of a response frame
func (f Frame) Payload() []byte {
	return f[HeaderSize:]
}

// IsDirectoryQuery reports whether f is a directory query
func (f Frame) IsDirectoryQuery() bool {
	return f[0] == StartByte && f[1] == CmdDirectory
}

// IsReadAtQuery reports whether f is a read-at query
func (f Frame) IsReadAtQuery() bool {
	return f[0] == StartByte && f[1] == CmdReadAt
}

// Offset returns the offset addressed by a read-at query
func (f Frame) Offset() uint32 {
	addr := uint32(f[3])<<8 | uint32(f[2])
	if addr < ReadAtBase {
		return 0
	}
	return addr - ReadAtBase
}

// String renders the frame as hex
func (f Frame) String() string {
	return RenderHex(f[:])
}

// RenderHex renders bytes as lowercase two-digit hex separated by spaces
func RenderHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := hex.EncodeToString(b)
	var sb strings.Builder
	sb.Grow(len(b)*3 - 1)
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s[i : i+2])
	}
	return sb.String()
}
