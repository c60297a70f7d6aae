// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/Thermoquad/fopm-reader/internal/config"
	"github.com/Thermoquad/fopm-reader/internal/logging"
	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/Thermoquad/fopm-reader/pkg/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Output flags
	verbose  bool
	csvPath  string
	xlsxPath string
	cborPath string
	showTUI  bool
)

func addReadFlags(flags *pflag.FlagSet) {
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show loop index, raw frames and the directory response")
	flags.StringVar(&csvPath, "csv", "", "Also write entries to a CSV file")
	flags.StringVar(&xlsxPath, "xlsx", "", "Also write entries to an XLSX workbook (alias --spreadsheet)")
	flags.StringVar(&cborPath, "cbor", "", "Also write a CBOR archive of the raw entries")
	flags.BoolVar(&showTUI, "tui", false, "Browse the entries in an interactive table after reading")
}

func applyReadFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("verbose") {
		cfg.Verbose = verbose
	}
	if changed("csv") {
		cfg.Output.CSV = csvPath
	}
	if changed("xlsx") {
		cfg.Output.XLSX = xlsxPath
	}
	if changed("cbor") {
		cfg.Output.CBOR = cborPath
	}
	if changed("tui") {
		cfg.Output.TUI = showTUI
	}
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	runID := uuid.New()
	log := logging.Runtime(cfg.LogLevel).With().Str("run", runID.String()).Logger()

	// Files first: a bad output path must fail before the meter is touched
	sinks, table, err := openSinks(cfg, cmd.OutOrStdout(), runID)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg, log)
	if err != nil {
		return abortOutputs(sinks, err)
	}
	defer conn.Close()
	log.Info().Str("connection", connInfo).Msg("connected")

	stats, err := readTable(conn, sinks, log)
	if cfg.Verbose && stats != nil {
		fmt.Fprint(cmd.ErrOrStderr(), stats.String())
	}
	if err != nil {
		return err
	}

	if table != nil {
		return runTableViewer(connInfo, table.Records, stats)
	}
	return nil
}

// abortOutputs closes sinks after err stopped the run before any entry was read
func abortOutputs(sinks *report.Multi, err error) error {
	if closeErr := sinks.Close(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("closing outputs: %w", closeErr))
	}
	return err
}

// openSinks opens every configured output. On failure the outputs opened so
// far are closed again.
func openSinks(cfg config.Config, stdout io.Writer, runID uuid.UUID) (*report.Multi, *report.Collector, error) {
	sinks := report.NewMulti()
	fail := func(err error) (*report.Multi, *report.Collector, error) {
		return nil, nil, errors.Join(err, sinks.Close())
	}

	sinks.Add(report.NewText(stdout, cfg.Verbose))

	if cfg.Output.CSV != "" {
		s, err := report.CreateCSV(cfg.Output.CSV)
		if err != nil {
			return fail(err)
		}
		sinks.Add(s)
	}

	if cfg.Output.XLSX != "" {
		s, err := report.CreateXLSX(cfg.Output.XLSX)
		if err != nil {
			return fail(err)
		}
		sinks.Add(s)
	}

	if cfg.Output.CBOR != "" {
		source := cfg.Port
		if source == "" {
			source = cfg.Bridge.URL
		}
		s, err := report.CreateCBOR(cfg.Output.CBOR, runID, source)
		if err != nil {
			return fail(err)
		}
		sinks.Add(s)
	}

	var table *report.Collector
	if cfg.Output.TUI {
		table = &report.Collector{}
		sinks.Add(table)
	}

	return sinks, table, nil
}

// readTable polls the meter on rw and feeds every entry to sinks. sinks is
// closed exactly once whether or not the poll succeeds.
func readTable(rw io.ReadWriter, sinks *report.Multi, log zerolog.Logger) (*fopm.Statistics, error) {
	poller := fopm.NewPoller(
		fopm.NewStreamTransport(rw),
		fopm.WithLogger(log),
		fopm.WithDirectoryHook(sinks.Start),
	)

	stats, err := poller.Poll(sinks.Emit)
	if closeErr := sinks.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("closing outputs: %w", closeErr))
	}
	if err != nil {
		return stats, err
	}

	log.Info().Uint64("entries", stats.Entries).Dur("elapsed", stats.Elapsed()).Msg("table read")
	return stats, nil
}
