// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// FormatDB renders a dB value with two decimals, rounding half away from zero
// on the shortest decimal form of v (-3.005 renders as "-3.01").
// Non-finite values render as "nan", "inf" and "-inf".
func FormatDB(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatLine formats a record as one report line:
// number, wavelength, power, relative power, reference, modulation
func FormatLine(r Record) string {
	return fmt.Sprintf("%4d  %9s %7s %7s %7s %s",
		r.Number(), r.Wavelength, FormatDB(r.PowerDB), FormatDB(r.RelativeDB), FormatDB(r.RefDB), r.Modulation)
}

// FormatVerboseLine prefixes FormatLine with the zero-based index, the query
// header and the reassembled entry payload
func FormatVerboseLine(r Record) string {
	return fmt.Sprintf("%4d %s    %s  %s", r.Index, RenderHex(r.Query.Header()), RenderHex(r.Payload()), FormatLine(r))
}

// FormatDirectory formats the directory response and its entry count
func FormatDirectory(d Directory) string {
	return fmt.Sprintf("%s    %5d entries", d.Response, d.Count)
}

// FormatEntry formats a decoded entry as a multi-line description
func FormatEntry(e Entry) string {
	result := fmt.Sprintf("Entry %d\n", e.Number())
	result += fmt.Sprintf("  Wavelength: %s (0x%02X)\n", e.Wavelength, uint8(e.Wavelength))
	result += fmt.Sprintf("  Modulation: %s (0x%02X)\n", e.Modulation, uint8(e.Modulation))
	result += fmt.Sprintf("  Power:      %s dB (linear %g)\n", FormatDB(e.PowerDB), e.Power)
	result += fmt.Sprintf("  Reference:  %s dB (linear %g)\n", FormatDB(e.RefDB), e.Reference)
	result += fmt.Sprintf("  Relative:   %s dB\n", FormatDB(e.RelativeDB))
	result += fmt.Sprintf("  Raw:        %s\n", RenderHex(e.Raw[:]))
	return result
}
