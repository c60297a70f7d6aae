// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fopm

import "fmt"

// Wavelength is the wavelength code stored in byte 9 of an entry.
// Codes outside the known table are kept as-is and render as "unknown <code>".
type Wavelength uint8

// Wavelength codes
const (
	Wavelength850  Wavelength = 0x00
	Wavelength1300 Wavelength = 0x01
	Wavelength1310 Wavelength = 0x02
	Wavelength1490 Wavelength = 0x03
	Wavelength1550 Wavelength = 0x04
	Wavelength1625 Wavelength = 0x05
)

var wavelengthNanometers = map[Wavelength]int{
	Wavelength850:  850,
	Wavelength1300: 1300,
	Wavelength1310: 1310,
	Wavelength1490: 1490,
	Wavelength1550: 1550,
	Wavelength1625: 1625,
}

// Known reports whether the code is in the wavelength table
func (w Wavelength) Known() bool {
	_, ok := wavelengthNanometers[w]
	return ok
}

// Nanometers returns the wavelength in nm, or false for an unknown code
func (w Wavelength) Nanometers() (int, bool) {
	nm, ok := wavelengthNanometers[w]
	return nm, ok
}

// String returns the display label, e.g. "1310 nm"
func (w Wavelength) String() string {
	if nm, ok := w.Nanometers(); ok {
		return fmt.Sprintf("%d nm", nm)
	}
	return unknownLabel(uint8(w))
}

// Modulation is the source modulation code stored in byte 10 of an entry
type Modulation uint8

// Modulation codes
const (
	ModulationCW    Modulation = 0x00
	Modulation270Hz Modulation = 0x01
	Modulation1kHz  Modulation = 0x02
	Modulation2kHz  Modulation = 0x03
)

var modulationLabels = map[Modulation]string{
	ModulationCW:    "CW",
	Modulation270Hz: "270Hz",
	Modulation1kHz:  "1kHz",
	Modulation2kHz:  "2kHz",
}

// Known reports whether the code is in the modulation table
func (m Modulation) Known() bool {
	_, ok := modulationLabels[m]
	return ok
}

// String returns the display label, e.g. "CW"
func (m Modulation) String() string {
	if label, ok := modulationLabels[m]; ok {
		return label
	}
	return unknownLabel(uint8(m))
}

func unknownLabel(code uint8) string {
	return fmt.Sprintf("unknown %d", code)
}
