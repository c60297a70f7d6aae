// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
)

// CSV writes one row per entry: number, wavelength, relative power,
// reference power and modulation. Rows are flushed as they are written.
type CSV struct {
	w      *csv.Writer
	closer io.Closer
}

// NewCSV creates a CSV sink on w and writes the header row
func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w)}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	if err := c.write(Header); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	return c, nil
}

// CreateCSV creates (or truncates) path and returns a CSV sink writing to it
func CreateCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv %s: %w", path, err)
	}
	c, err := NewCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Row returns the CSV fields for r
func Row(r fopm.Record) []string {
	return []string{
		strconv.Itoa(r.Number()),
		r.Wavelength.String(),
		fopm.FormatDB(r.RelativeDB),
		fopm.FormatDB(r.RefDB),
		r.Modulation.String(),
	}
}

// Emit writes and flushes the row for r
func (c *CSV) Emit(r fopm.Record) error {
	return c.write(Row(r))
}

// Close flushes and closes the underlying file
func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *CSV) write(fields []string) error {
	if err := c.w.Write(fields); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
