// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/fopm-reader/internal/logging"
	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log [port]",
	Short: "Display every frame exchanged while reading the table",
	Long: `Read the stored table and log each query and response frame as it is
exchanged, followed by the decoded entry.

Useful for diagnosing a meter that answers with unexpected data. Nothing is
written to CSV, XLSX or CBOR outputs.

Supports both serial and WebSocket connections.`,
	Args: usageOnError(cobra.MaximumNArgs(1)),
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg, logging.Runtime(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fopm-reader - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n\n", connInfo)

	stats, err := logExchanges(conn, out)
	fmt.Fprintf(out, "\n%s", stats)
	return err
}

// frameLog prints every frame passing through the wrapped transport
type frameLog struct {
	fopm.Transport
	w     io.Writer
	start time.Time
}

func (l *frameLog) stamp() string {
	return fmt.Sprintf("[%8.3f]", time.Since(l.start).Seconds())
}

func (l *frameLog) Send(f fopm.Frame) error {
	fmt.Fprintf(l.w, "%s TX %s\n", l.stamp(), f)
	return l.Transport.Send(f)
}

func (l *frameLog) Receive() (fopm.Frame, error) {
	f, err := l.Transport.Receive()
	if err != nil {
		fmt.Fprintf(l.w, "%s RX [ERROR] %v\n", l.stamp(), err)
		return f, err
	}
	fmt.Fprintf(l.w, "%s RX %s\n", l.stamp(), f)
	return f, nil
}

// logExchanges reads the table on rw, logging frames and entries to w
func logExchanges(rw io.ReadWriter, w io.Writer) (*fopm.Statistics, error) {
	t := &frameLog{
		Transport: fopm.NewStreamTransport(rw),
		w:         w,
		start:     time.Now(),
	}

	poller := fopm.NewPoller(t, fopm.WithDirectoryHook(func(d fopm.Directory) error {
		_, err := fmt.Fprintf(w, "           directory: %d entries\n", d.Count)
		return err
	}))

	return poller.Poll(func(r fopm.Record) error {
		_, err := fmt.Fprintf(w, "           entry: %s\n", fopm.FormatLine(r))
		return err
	})
}
