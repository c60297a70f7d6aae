// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Thermoquad/fopm-reader/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Serial connection flags
	portName    string
	baudRate    int
	readTimeout time.Duration

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Run flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fopm-reader [port]",
	Short: "Fiber-optic power meter table reader",
	Long: `fopm-reader - Read the stored measurement table of a fiber-optic power meter.

Queries the meter for its entry count, reads every stored entry and prints
wavelength, relative power, reference power and modulation per entry.
Entries can additionally be written to CSV, XLSX or a CBOR archive, or browsed
in an interactive table once the read has finished.

Connection modes:
  Serial:    fopm-reader /dev/ttyUSB0 [--baud 9600]
  WebSocket: fopm-reader --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the FOPM_PASSWORD
environment variable, or prompted interactively if not set.

Settings may also be read from a YAML file given with --config; flags given
on the command line take precedence over the file.`,
	Version:       "1.0.0",
	Args:          usageOnError(cobra.MaximumNArgs(1)),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRead,
}

func init() {
	addConnectionFlags(rootCmd.PersistentFlags())
	addReadFlags(rootCmd.Flags())
	rootCmd.SetGlobalNormalizationFunc(aliasFlags)

	// Usage only for argument and flag mistakes, not for device failures
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(c.UsageString())
		return err
	})
}

// addConnectionFlags registers the flags shared by every command that talks to a meter
func addConnectionFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&portName, "port", "p", "", "Serial port device")
	flags.IntVarP(&baudRate, "baud", "b", 9600, "Baud rate (serial only)")
	flags.DurationVar(&readTimeout, "timeout", 0, "Serial read timeout, 0 waits forever")

	flags.StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	flags.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	flags.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

// usageOnError prints usage when positional arguments are rejected
func usageOnError(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(c *cobra.Command, a []string) error {
		if err := args(c, a); err != nil {
			c.PrintErrln(c.UsageString())
			return err
		}
		return nil
	}
}

func aliasFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "spreadsheet" {
		name = "xlsx"
	}
	return pflag.NormalizedName(name)
}

// loadConfig builds the run configuration: defaults, then the optional
// config file, then flags that were set explicitly, then the positional port.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("port") {
		cfg.Port = portName
	}
	if changed("baud") {
		cfg.Baud = baudRate
	}
	if changed("timeout") {
		cfg.ReadTimeout = readTimeout
	}
	if changed("url") {
		cfg.Bridge.URL = wsURL
	}
	if changed("username") {
		cfg.Bridge.Username = wsUsername
	}
	if changed("no-ssl-verify") {
		cfg.Bridge.NoSSLVerify = wsNoSSLVerify
	}
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}
	applyReadFlags(cmd, &cfg)

	if len(args) == 1 {
		if changed("port") && portName != args[0] {
			return config.Config{}, fmt.Errorf("port given twice: %q and --port %q", args[0], portName)
		}
		cfg.Port = args[0]
	}

	config.Normalize(&cfg)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// ExitError carries a process exit code other than 1
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for an error returned by Execute
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
