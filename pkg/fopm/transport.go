// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"errors"
	"fmt"
	"io"
)

// Transport is a blocking request/response channel to the meter.
// Send writes exactly one frame; Receive blocks until exactly one frame arrived.
type Transport interface {
	Send(f Frame) error
	Receive() (Frame, error)
}

// StreamTransport adapts a byte stream (serial port, bridged socket) to Transport
type StreamTransport struct {
	rw io.ReadWriter
}

// NewStreamTransport wraps rw
func NewStreamTransport(rw io.ReadWriter) *StreamTransport {
	return &StreamTransport{rw: rw}
}

// Send writes the frame in full
func (s *StreamTransport) Send(f Frame) error {
	n, err := s.rw.Write(f[:])
	if err != nil {
		return fmt.Errorf("send %s: %w", f, err)
	}
	if n != FrameSize {
		return fmt.Errorf("send %s: %w (%d of %d bytes)", f, ErrShortWrite, n, FrameSize)
	}
	return nil
}

// Receive reads exactly FrameSize bytes
func (s *StreamTransport) Receive() (Frame, error) {
	var f Frame
	n, err := io.ReadFull(s.rw, f[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("receive: %w (%d of %d bytes): %v", ErrShortRead, n, FrameSize, err)
		}
		return Frame{}, fmt.Errorf("receive (%d of %d bytes): %w", n, FrameSize, err)
	}
	return f, nil
}

// Exchange sends q and waits for its response
func Exchange(t Transport, q Frame) (Frame, error) {
	if err := t.Send(q); err != nil {
		return Frame{}, err
	}
	return t.Receive()
}
