// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/spf13/cobra"
)

var decodeEntryNumber int

var decodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode a raw 16-byte entry without a meter",
	Long: `Decode a stored entry from its 16 raw bytes, as printed by --verbose.

The bytes may be given as one string or split over several arguments:

  fopm-reader decode 00 00 80 3f 00 00 80 3f 00 02 00 00 00 00 00 00
  fopm-reader decode 0000803f0000803f0002000000000000`,
	Args: usageOnError(cobra.MinimumNArgs(1)),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().IntVarP(&decodeEntryNumber, "entry", "n", 1, "Entry number to report (1-based)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeEntryNumber < 1 || decodeEntryNumber > 0x10000 {
		return fmt.Errorf("entry number %d out of range", decodeEntryNumber)
	}

	raw, err := parseHex(args)
	if err != nil {
		return err
	}

	entry, err := fopm.DecodeEntry(uint16(decodeEntryNumber-1), raw)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), fopm.FormatEntry(entry))
	for _, a := range fopm.ValidateEntry(entry) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", a.Message)
	}
	return nil
}

// parseHex joins args and decodes them, ignoring whitespace
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(strings.Fields(strings.Join(args, " ")), "")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return raw, nil
}
