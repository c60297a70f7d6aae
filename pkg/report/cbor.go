// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ArchiveHeader is the first item of a CBOR archive
type ArchiveHeader struct {
	RunID     string `cbor:"0,keyasint"`
	Source    string `cbor:"1,keyasint"`
	StartedMs int64  `cbor:"2,keyasint"`
	Entries   uint16 `cbor:"3,keyasint"`
	Directory []byte `cbor:"4,keyasint"`
}

// ArchiveEntry is one entry item of a CBOR archive
type ArchiveEntry struct {
	Number     int     `cbor:"0,keyasint"`
	Wavelength uint8   `cbor:"1,keyasint"`
	Modulation uint8   `cbor:"2,keyasint"`
	Power      float32 `cbor:"3,keyasint"`
	Reference  float32 `cbor:"4,keyasint"`
	PowerDB    float64 `cbor:"5,keyasint"`
	RefDB      float64 `cbor:"6,keyasint"`
	RelativeDB float64 `cbor:"7,keyasint"`
	Raw        []byte  `cbor:"8,keyasint"`
}

// CBOR writes a CBOR sequence: one ArchiveHeader followed by one
// ArchiveEntry per record. Each item is written as soon as it is known.
type CBOR struct {
	enc    *cbor.Encoder
	closer io.Closer
	runID  uuid.UUID
	source string
}

// NewCBOR creates an archive sink on w
func NewCBOR(w io.Writer, runID uuid.UUID, source string) *CBOR {
	c := &CBOR{
		enc:    cbor.NewEncoder(w),
		runID:  runID,
		source: source,
	}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	return c
}

// CreateCBOR creates (or truncates) path and returns an archive sink on it
func CreateCBOR(path string, runID uuid.UUID, source string) (*CBOR, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive %s: %w", path, err)
	}
	return NewCBOR(f, runID, source), nil
}

// Start writes the archive header
func (c *CBOR) Start(d fopm.Directory) error {
	return c.enc.Encode(ArchiveHeader{
		RunID:     c.runID.String(),
		Source:    c.source,
		StartedMs: time.Now().UnixMilli(),
		Entries:   d.Count,
		Directory: append([]byte(nil), d.Response[:]...),
	})
}

// Emit writes the archive entry for r
func (c *CBOR) Emit(r fopm.Record) error {
	return c.enc.Encode(ArchiveEntry{
		Number:     r.Number(),
		Wavelength: uint8(r.Wavelength),
		Modulation: uint8(r.Modulation),
		Power:      r.Power,
		Reference:  r.Reference,
		PowerDB:    r.PowerDB,
		RefDB:      r.RefDB,
		RelativeDB: r.RelativeDB,
		Raw:        append([]byte(nil), r.Payload()...),
	})
}

// Close closes the underlying file
func (c *CBOR) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// ReadArchive decodes an archive written by the CBOR sink
func ReadArchive(r io.Reader) (ArchiveHeader, []ArchiveEntry, error) {
	dec := cbor.NewDecoder(r)

	var h ArchiveHeader
	if err := dec.Decode(&h); err != nil {
		return ArchiveHeader{}, nil, fmt.Errorf("archive header: %w", err)
	}

	var entries []ArchiveEntry
	for {
		var e ArchiveEntry
		err := dec.Decode(&e)
		if err == io.EOF {
			return h, entries, nil
		}
		if err != nil {
			return h, entries, fmt.Errorf("archive entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
}
