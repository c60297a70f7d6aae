// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/Thermoquad/fopm-reader/pkg/report"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

// ============================================================
// Helpers
// ============================================================

func entryPayload(power, reference float32, wavelength, modulation byte) []byte {
	b := make([]byte, fopm.EntrySize)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(power))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(reference))
	b[9] = wavelength
	b[10] = modulation
	return b
}

// meterSim answers query frames written to it like a meter on a serial line.
// After limit responses it stops answering and reads hit EOF.
type meterSim struct {
	entries  [][]byte
	limit    int
	answered int
	queries  []fopm.Frame
	pending  bytes.Buffer
}

func newMeterSim(entries ...[]byte) *meterSim {
	return &meterSim{entries: entries, limit: -1}
}

func (m *meterSim) Write(p []byte) (int, error) {
	var q fopm.Frame
	copy(q[:], p)
	m.queries = append(m.queries, q)

	if m.limit >= 0 && m.answered >= m.limit {
		return len(p), nil
	}

	var resp fopm.Frame
	copy(resp[:fopm.HeaderSize], q[:fopm.HeaderSize])
	if q.IsDirectoryQuery() {
		binary.LittleEndian.PutUint16(resp[5:7], uint16(len(m.entries)))
	} else {
		off := q.Offset()
		entry := m.entries[off/fopm.EntryStride]
		half := int(off%fopm.EntryStride) / fopm.PayloadSize
		copy(resp[fopm.HeaderSize:], entry[half*fopm.PayloadSize:(half+1)*fopm.PayloadSize])
	}
	m.pending.Write(resp[:])
	m.answered++
	return len(p), nil
}

func (m *meterSim) Read(p []byte) (int, error) {
	return m.pending.Read(p)
}

// newFlagCommand returns a command carrying the real flag set, parsed from args
func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, []string) {
	t.Helper()
	c := &cobra.Command{Use: "fopm-reader"}
	addConnectionFlags(c.Flags())
	addReadFlags(c.Flags())
	c.SetGlobalNormalizationFunc(aliasFlags)
	assert.NilError(t, c.ParseFlags(args))
	return c, c.Flags().Args()
}

// ============================================================
// Configuration from flags
// ============================================================

func TestLoadConfig_PositionalPort(t *testing.T) {
	c, args := newFlagCommand(t, "/dev/ttyUSB0")
	cfg, err := loadConfig(c, args)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Port, "/dev/ttyUSB0")
	assert.Equal(t, cfg.Baud, 9600)
	assert.Assert(t, !cfg.Verbose)
}

func TestLoadConfig_Flags(t *testing.T) {
	c, args := newFlagCommand(t, "-p", "/dev/ttyS1", "-b", "19200", "-v", "--csv", "a.csv", "--spreadsheet", "a.xlsx", "--timeout", "500ms")
	cfg, err := loadConfig(c, args)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Port, "/dev/ttyS1")
	assert.Equal(t, cfg.Baud, 19200)
	assert.Assert(t, cfg.Verbose)
	assert.Equal(t, cfg.Output.CSV, "a.csv")
	assert.Equal(t, cfg.Output.XLSX, "a.xlsx")
	assert.Equal(t, cfg.ReadTimeout, 500*time.Millisecond)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fopm.yaml")
	assert.NilError(t, os.WriteFile(path, []byte("port: /dev/ttyUSB0\nbaud: 4800\noutput:\n  csv: file.csv\n"), 0o644))

	c, args := newFlagCommand(t, "--config", path, "--baud", "9600")
	cfg, err := loadConfig(c, args)
	assert.NilError(t, err)
	assert.Equal(t, cfg.Port, "/dev/ttyUSB0")
	assert.Equal(t, cfg.Baud, 9600)
	assert.Equal(t, cfg.Output.CSV, "file.csv")
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no port", nil, "serial port"},
		{"port twice", []string{"--port", "/dev/ttyS0", "/dev/ttyS1"}, "port given twice"},
		{"xlsx extension", []string{"/dev/ttyS0", "--xlsx", "out.csv"}, ".xlsx"},
		{"port and url", []string{"/dev/ttyS0", "--url", "ws://bridge/fopm"}, "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, args := newFlagCommand(t, tt.args...)
			_, err := loadConfig(c, args)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// ============================================================
// Reading the table
// ============================================================

func TestReadTable_TextAndCSV(t *testing.T) {
	meter := newMeterSim(
		entryPayload(1, 1, 0x02, 0x00),
		entryPayload(0.5, 1, 0x04, 0x02),
	)

	csvPath := filepath.Join(t.TempDir(), "entries.csv")
	csvSink, err := report.CreateCSV(csvPath)
	assert.NilError(t, err)

	var out bytes.Buffer
	sinks := report.NewMulti(report.NewText(&out, false), csvSink)

	stats, err := readTable(meter, sinks, zerolog.Nop())
	assert.NilError(t, err)
	assert.Equal(t, stats.Entries, uint64(2))
	assert.Assert(t, stats.Complete())

	// directory, then two reads per entry
	assert.Equal(t, len(meter.queries), 5)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Equal(t, len(lines), 2)
	assert.Equal(t, lines[0], "   1    1310 nm    0.00    0.00    0.00 CW")

	data, err := os.ReadFile(csvPath)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "Entry,Wavelength,Power,Ref,Frequency\n1,1310 nm,0.00,0.00,CW\n2,1550 nm,-3.01,0.00,1kHz\n")
}

func TestReadTable_VerboseDirectoryLine(t *testing.T) {
	meter := newMeterSim(entryPayload(1, 1, 0x00, 0x00))

	var out bytes.Buffer
	_, err := readTable(meter, report.NewMulti(report.NewText(&out, true)), zerolog.Nop())
	assert.NilError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Equal(t, len(lines), 2)
	assert.Assert(t, strings.HasSuffix(lines[0], "    1 entries"))
	assert.Assert(t, is.Contains(lines[1], "aa 20 08 10 08"))
}

func TestReadTable_AbortKeepsFlushedRows(t *testing.T) {
	meter := newMeterSim(
		entryPayload(1, 1, 0x02, 0x00),
		entryPayload(1, 1, 0x02, 0x00),
	)
	// directory + first entry only
	meter.limit = 3

	csvPath := filepath.Join(t.TempDir(), "entries.csv")
	csvSink, err := report.CreateCSV(csvPath)
	assert.NilError(t, err)

	var out bytes.Buffer
	stats, err := readTable(meter, report.NewMulti(report.NewText(&out, false), csvSink), zerolog.Nop())
	assert.Assert(t, errors.Is(err, fopm.ErrShortRead))
	assert.ErrorContains(t, err, "entry 2")
	assert.Equal(t, stats.Entries, uint64(1))
	assert.Assert(t, !stats.Complete())

	data, err := os.ReadFile(csvPath)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "Entry,Wavelength,Power,Ref,Frequency\n1,1310 nm,0.00,0.00,CW\n")
}

func TestReadTable_EmptyMeter(t *testing.T) {
	meter := newMeterSim()

	var out bytes.Buffer
	stats, err := readTable(meter, report.NewMulti(report.NewText(&out, false)), zerolog.Nop())
	assert.NilError(t, err)
	assert.Equal(t, stats.Entries, uint64(0))
	assert.Equal(t, out.String(), "")
	assert.Equal(t, len(meter.queries), 1)
}

func TestOpenSinks_BadOutputFailsEarly(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "entries.csv")

	cfg, err := loadConfig(newFlagCommand(t, "/dev/null",
		"--csv", csvPath,
		"--cbor", filepath.Join(dir, "missing", "run.cbor"),
	))
	assert.NilError(t, err)

	_, _, err = openSinks(cfg, &bytes.Buffer{}, uuid.New())
	assert.Assert(t, err != nil)

	// The CSV opened before the failure was closed again with its header
	data, err := os.ReadFile(csvPath)
	assert.NilError(t, err)
	assert.Equal(t, string(data), "Entry,Wavelength,Power,Ref,Frequency\n")
}

func TestOpenSinks_TableCollector(t *testing.T) {
	cfg, err := loadConfig(newFlagCommand(t, "/dev/null", "--tui"))
	assert.NilError(t, err)

	sinks, table, err := openSinks(cfg, &bytes.Buffer{}, uuid.New())
	assert.NilError(t, err)
	assert.Assert(t, table != nil)
	assert.Equal(t, sinks.Len(), 2)

	_, err = readTable(newMeterSim(entryPayload(1, 1, 0x01, 0x03)), sinks, zerolog.Nop())
	assert.NilError(t, err)
	assert.Equal(t, len(table.Records), 1)
	assert.Equal(t, table.Records[0].Modulation, fopm.Modulation2kHz)
}

// ============================================================
// Probe
// ============================================================

type probeTransport struct {
	resp  fopm.Frame
	err   error
	block chan struct{}
}

func (p *probeTransport) Send(fopm.Frame) error { return nil }

func (p *probeTransport) Receive() (fopm.Frame, error) {
	if p.block != nil {
		<-p.block
	}
	return p.resp, p.err
}

func TestProbeDirectory(t *testing.T) {
	var resp fopm.Frame
	resp[0] = fopm.StartByte
	resp[1] = fopm.CmdDirectory
	binary.LittleEndian.PutUint16(resp[5:7], 42)

	dir, err := probeDirectory(&probeTransport{resp: resp}, time.Second)
	assert.NilError(t, err)
	assert.Equal(t, dir.Count, uint16(42))
}

func TestProbeDirectory_ExitCodes(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	tests := []struct {
		name string
		t    fopm.Transport
		code int
	}{
		{"read timeout", &probeTransport{err: ErrReadTimeout}, 1},
		{"no answer", &probeTransport{block: block}, 1},
		{"read error", &probeTransport{err: fopm.ErrShortRead}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := probeDirectory(tt.t, 20*time.Millisecond)
			assert.Equal(t, ExitCode(err), tt.code)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCode(nil), 0)
	assert.Equal(t, ExitCode(errors.New("boom")), 1)
	assert.Equal(t, ExitCode(&ExitError{Code: 2, Err: errors.New("boom")}), 2)
}

// ============================================================
// Decode
// ============================================================

func TestRunDecode(t *testing.T) {
	decodeEntryNumber = 3

	var out, errOut bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetErr(&errOut)

	err := runDecode(c, []string{"00 00 80 3f", "00 00 80 3f 00 09 00 00 00 00 00 00"})
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(out.String(), "Entry 3\n"))
	assert.Assert(t, is.Contains(out.String(), "Wavelength: unknown 9"))
	assert.Assert(t, is.Contains(out.String(), "Relative:   0.00 dB"))
	assert.Assert(t, is.Contains(errOut.String(), "unknown wavelength code 0x09"))
}

func TestRunDecode_Errors(t *testing.T) {
	decodeEntryNumber = 1
	c := &cobra.Command{}
	c.SetOut(&bytes.Buffer{})

	err := runDecode(c, []string{"zz"})
	assert.ErrorContains(t, err, "invalid hex")

	err = runDecode(c, []string{"00 00 80 3f"})
	assert.Assert(t, errors.Is(err, fopm.ErrPayloadLength))

	err = runDecode(c, []string{"00000000 0000803f 0000000000000000"})
	assert.Assert(t, errors.Is(err, fopm.ErrNonPositivePower))
}

// ============================================================
// Table viewer
// ============================================================

func TestTableModel(t *testing.T) {
	meter := newMeterSim(
		entryPayload(1, 1, 0x02, 0x00),
		entryPayload(0.5, 1, 0x04, 0x02),
	)
	p := fopm.NewPoller(fopm.NewStreamTransport(meter))
	records, stats, err := p.ReadAll()
	assert.NilError(t, err)

	m := newTableModel("Serial: /dev/ttyUSB0 @ 9600 baud", records, stats)

	rows := tableRows(records)
	assert.Equal(t, len(rows), 2)
	assert.DeepEqual(t, []string(rows[1]), []string{"2", "1550 nm", "-3.01", "-3.01", "0.00", "1kHz"})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(tableModel)
	assert.Equal(t, m.width, 100)

	view := m.View()
	assert.Assert(t, is.Contains(view, "1310 nm"))
	assert.Assert(t, is.Contains(view, "2 of 2"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(tableModel)
	assert.Assert(t, m.quitting)
	assert.Assert(t, cmd != nil)
}

// ============================================================
// Raw frame log
// ============================================================

func TestLogExchanges(t *testing.T) {
	meter := newMeterSim(entryPayload(1, 1, 0x05, 0x01))

	var out bytes.Buffer
	stats, err := logExchanges(meter, &out)
	assert.NilError(t, err)
	assert.Equal(t, stats.Entries, uint64(1))

	log := out.String()
	assert.Equal(t, strings.Count(log, " TX "), 3)
	assert.Equal(t, strings.Count(log, " RX "), 3)
	assert.Assert(t, is.Contains(log, "TX aa 22 00 00 00 00 00 00 00 00 00 00 00"))
	assert.Assert(t, is.Contains(log, "directory: 1 entries"))
	assert.Assert(t, is.Contains(log, "1625 nm"))
	assert.Assert(t, is.Contains(log, "270Hz"))
}

func TestLogExchanges_ReceiveError(t *testing.T) {
	meter := newMeterSim(entryPayload(1, 1, 0x05, 0x01))
	meter.limit = 1

	var out bytes.Buffer
	_, err := logExchanges(meter, &out)
	assert.Assert(t, errors.Is(err, fopm.ErrShortRead))
	assert.Assert(t, is.Contains(out.String(), "RX [ERROR]"))
}

// ============================================================
// Output teardown
// ============================================================

var errFlush = errors.New("flush failed")

type failingSink struct{ closed bool }

func (f *failingSink) Emit(fopm.Record) error { return nil }

func (f *failingSink) Close() error {
	f.closed = true
	return errFlush
}

func TestAbortOutputs_JoinsCloseError(t *testing.T) {
	sink := &failingSink{}
	connErr := errors.New("no such port")

	err := abortOutputs(report.NewMulti(sink), connErr)
	assert.Assert(t, sink.closed)
	assert.Assert(t, errors.Is(err, connErr))
	assert.Assert(t, errors.Is(err, errFlush))
	assert.Assert(t, is.Contains(err.Error(), "closing outputs"))
}

func TestAbortOutputs_CleanClose(t *testing.T) {
	connErr := errors.New("no such port")
	err := abortOutputs(report.NewMulti(&report.Collector{}), connErr)
	assert.Equal(t, err, connErr)
}

// ============================================================
// Bridge connection
// ============================================================

// newBridge serves each WebSocket connection with serve and returns its ws:// URL
func newBridge(t *testing.T, serve func(*websocket.Conn)) string {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "fopm" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain discards client messages until the client goes away
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestWebSocketConnection_SplitFrameAndStatus(t *testing.T) {
	url := newBridge(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("serial port open\n"))

		_, q, err := conn.ReadMessage()
		if err != nil || len(q) != fopm.FrameSize || q[1] != fopm.CmdDirectory {
			return
		}
		var resp fopm.Frame
		resp[0] = fopm.StartByte
		resp[1] = fopm.CmdDirectory
		binary.LittleEndian.PutUint16(resp[5:7], 42)

		// The serial side delivers the answer in pieces
		conn.WriteMessage(websocket.BinaryMessage, resp[:4])
		conn.WriteMessage(websocket.TextMessage, []byte("rx 4"))
		conn.WriteMessage(websocket.BinaryMessage, resp[4:9])
		conn.WriteMessage(websocket.BinaryMessage, resp[9:])
		drain(conn)
	})

	var logs bytes.Buffer
	conn, err := OpenWebSocketConnection(url, "fopm", "secret", false, time.Second, zerolog.New(&logs))
	assert.NilError(t, err)
	defer conn.Close()

	dir, err := probeDirectory(fopm.NewStreamTransport(conn), 5*time.Second)
	assert.NilError(t, err)
	assert.Equal(t, dir.Count, uint16(42))
	assert.Assert(t, is.Contains(logs.String(), `"status":"serial port open"`))
	assert.Assert(t, is.Contains(logs.String(), `"status":"rx 4"`))
}

func TestWebSocketConnection_ReadDeadline(t *testing.T) {
	url := newBridge(t, drain)

	conn, err := OpenWebSocketConnection(url, "fopm", "secret", false, 50*time.Millisecond, zerolog.Nop())
	assert.NilError(t, err)
	defer conn.Close()

	// The deadline ends the read well before the outer wait
	start := time.Now()
	_, err = probeDirectory(fopm.NewStreamTransport(conn), 5*time.Second)
	assert.Equal(t, ExitCode(err), 1)
	assert.Assert(t, errors.Is(err, ErrReadTimeout))
	assert.Assert(t, time.Since(start) < 2*time.Second)

	_, err = conn.Read(make([]byte, 1))
	assert.Assert(t, errors.Is(err, ErrConnectionClosed))
}

func TestWebSocketConnection_BadCredentials(t *testing.T) {
	url := newBridge(t, drain)

	_, err := OpenWebSocketConnection(url, "fopm", "wrong", false, time.Second, zerolog.Nop())
	assert.Assert(t, is.ErrorContains(err, "HTTP 401"))
}
