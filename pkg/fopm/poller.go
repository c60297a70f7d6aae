// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Poller reads the entry table of a meter over a Transport.
// Requests are strictly sequential: one outstanding query at a time.
type Poller struct {
	transport   Transport
	log         zerolog.Logger
	onDirectory func(Directory) error
	stats       *Statistics
}

// Option configures a Poller
type Option func(*Poller)

// WithLogger sets the logger used for exchange diagnostics
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) {
		p.log = l
	}
}

// WithDirectoryHook registers fn to be called once the entry count is known,
// before the first entry is read. An error from fn aborts the poll.
func WithDirectoryHook(fn func(Directory) error) Option {
	return func(p *Poller) {
		p.onDirectory = fn
	}
}

// NewPoller creates a poller on t
func NewPoller(t Transport, opts ...Option) *Poller {
	p := &Poller{
		transport: t,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) exchange(q Frame) (Frame, error) {
	if p.stats != nil {
		p.stats.Queries++
	}
	resp, err := Exchange(p.transport, q)
	if err != nil {
		return Frame{}, err
	}
	p.log.Debug().Str("query", q.String()).Str("response", resp.String()).Msg("exchange")
	return resp, nil
}

// Directory queries the number of stored entries
func (p *Poller) Directory() (Directory, error) {
	resp, err := p.exchange(DirectoryQuery())
	if err != nil {
		return Directory{}, fmt.Errorf("directory query: %w", err)
	}
	return ParseDirectory(resp), nil
}

// ReadEntry reads and decodes the entry at index
func (p *Poller) ReadEntry(index uint16) (Record, error) {
	first, second := EntryOffsets(index)

	q1, err := ReadAtQuery(first)
	if err != nil {
		return Record{}, fmt.Errorf("entry %d: %w", int(index)+1, err)
	}
	d1, err := p.exchange(q1)
	if err != nil {
		return Record{}, fmt.Errorf("entry %d: read at 0x%04X: %w", int(index)+1, first, err)
	}

	q2, err := ReadAtQuery(second)
	if err != nil {
		return Record{}, fmt.Errorf("entry %d: %w", int(index)+1, err)
	}
	d2, err := p.exchange(q2)
	if err != nil {
		return Record{}, fmt.Errorf("entry %d: read at 0x%04X: %w", int(index)+1, second, err)
	}

	raw := make([]byte, 0, EntrySize)
	raw = append(raw, d1.Payload()...)
	raw = append(raw, d2.Payload()...)

	entry, err := DecodeEntry(index, raw)
	if err != nil {
		return Record{}, fmt.Errorf("entry %d: %w", int(index)+1, err)
	}

	return Record{
		Entry:     entry,
		Query:     q2,
		Responses: [2]Frame{d1, d2},
	}, nil
}

// Poll reads the directory and then every entry in ascending order, passing
// each record to emit. The first transport, decode or emit error aborts the
// poll; the returned statistics cover what was emitted until then.
func (p *Poller) Poll(emit func(Record) error) (*Statistics, error) {
	p.stats = NewStatistics()
	defer func() {
		p.stats.Finish()
		p.stats = nil
	}()
	stats := p.stats

	dir, err := p.Directory()
	if err != nil {
		return stats, err
	}
	stats.Expected = dir.Count
	p.log.Info().Uint16("entries", dir.Count).Msg("directory read")

	if p.onDirectory != nil {
		if err := p.onDirectory(dir); err != nil {
			return stats, err
		}
	}

	for i := 0; i < int(dir.Count); i++ {
		rec, err := p.ReadEntry(uint16(i))
		if err != nil {
			return stats, err
		}

		anomalies := ValidateEntry(rec.Entry)
		for _, a := range anomalies {
			p.log.Warn().Int("entry", rec.Number()).Interface("details", a.Details).Msg(a.Message)
		}

		if err := emit(rec); err != nil {
			return stats, fmt.Errorf("entry %d: emit: %w", rec.Number(), err)
		}
		stats.Update(anomalies)
	}

	return stats, nil
}

// ReadAll polls the meter and returns every record
func (p *Poller) ReadAll() ([]Record, *Statistics, error) {
	var records []Record
	stats, err := p.Poll(func(r Record) error {
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return records, stats, nil
}
