// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/fopm-reader/internal/logging"
	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/spf13/cobra"
)

// defaultProbeWait applies when --timeout is not set
const defaultProbeWait = 10 * time.Second

var probeCmd = &cobra.Command{
	Use:   "probe [port]",
	Short: "Test the connection by asking the meter for its entry count",
	Long: `Send a single directory query and wait for the meter's answer.

The --timeout flag bounds the wait (default 10s).

Exit codes:
  0 - The meter answered before the timeout
  1 - Timeout reached without an answer
  2 - Connection error`,
	Args: usageOnError(cobra.MaximumNArgs(1)),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	wait := cfg.ReadTimeout
	if wait == 0 {
		wait = defaultProbeWait
		cfg.ReadTimeout = wait
	}

	conn, connInfo, err := OpenConnection(cfg, logging.Runtime(cfg.LogLevel))
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("connection error: %w", err)}
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fopm-reader - Probe\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Timeout: %s\n", wait)
	fmt.Fprintf(out, "Sending directory query...\n\n")

	dir, err := probeDirectory(fopm.NewStreamTransport(conn), wait)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "SUCCESS: Meter answered\n")
	fmt.Fprintf(out, "  Entries:  %d\n", dir.Count)
	fmt.Fprintf(out, "  Response: %s\n", dir.Response)
	return nil
}

// probeDirectory runs one directory exchange bounded by wait. Timeouts map to
// exit code 1, any other failure to exit code 2.
func probeDirectory(t fopm.Transport, wait time.Duration) (fopm.Directory, error) {
	type result struct {
		dir fopm.Directory
		err error
	}
	done := make(chan result, 1)

	go func() {
		dir, err := fopm.NewPoller(t).Directory()
		done <- result{dir: dir, err: err}
	}()

	select {
	case r := <-done:
		switch {
		case errors.Is(r.err, ErrReadTimeout):
			return fopm.Directory{}, &ExitError{Code: 1, Err: fmt.Errorf("TIMEOUT: %w", r.err)}
		case r.err != nil:
			return fopm.Directory{}, &ExitError{Code: 2, Err: fmt.Errorf("read error: %w", r.err)}
		}
		return r.dir, nil

	case <-time.After(wait):
		return fopm.Directory{}, &ExitError{Code: 1, Err: fmt.Errorf("TIMEOUT: no answer within %s", wait)}
	}
}
