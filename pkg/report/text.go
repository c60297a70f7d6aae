// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"fmt"
	"io"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
)

type flusher interface {
	Flush() error
}

// Text writes one report line per entry to a console or stream.
// Verbose mode adds the directory line, the loop index and the raw hex.
type Text struct {
	w       io.Writer
	verbose bool
}

// NewText creates a text sink on w
func NewText(w io.Writer, verbose bool) *Text {
	return &Text{w: w, verbose: verbose}
}

// Start prints the directory response in verbose mode
func (t *Text) Start(d fopm.Directory) error {
	if !t.verbose {
		return nil
	}
	if _, err := fmt.Fprintln(t.w, fopm.FormatDirectory(d)); err != nil {
		return err
	}
	return t.flush()
}

// Emit prints the record
func (t *Text) Emit(r fopm.Record) error {
	line := fopm.FormatLine(r)
	if t.verbose {
		line = fopm.FormatVerboseLine(r)
	}
	if _, err := fmt.Fprintln(t.w, line); err != nil {
		return err
	}
	return t.flush()
}

// Close flushes buffered output
func (t *Text) Close() error {
	return t.flush()
}

func (t *Text) flush() error {
	if f, ok := t.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
