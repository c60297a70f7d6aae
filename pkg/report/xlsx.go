// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Thermoquad/fopm-reader/pkg/fopm"
	"github.com/xuri/excelize/v2"
)

// ErrSpreadsheetPath is returned for spreadsheet paths excelize cannot write
var ErrSpreadsheetPath = errors.New("report: spreadsheet path must end in .xlsx")

// Built-in number formats: 1 is "0", 2 is "0.00"
const (
	numFmtInteger = 1
	numFmtFixed2  = 2
)

// XLSX writes one worksheet row per entry. Entry number, relative power and
// reference power are stored as numbers; the workbook is saved after every row.
type XLSX struct {
	f          *excelize.File
	path       string
	sheet      string
	row        int
	intStyle   int
	fixedStyle int
}

// CreateXLSX creates the workbook at path with its header row and saves it,
// so an unwritable path fails before any entry is read
func CreateXLSX(path string) (*XLSX, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return nil, fmt.Errorf("%w: %s", ErrSpreadsheetPath, path)
	}

	f := excelize.NewFile()
	x := &XLSX{f: f, path: path, sheet: f.GetSheetName(0), row: 1}

	var err error
	if x.intStyle, err = f.NewStyle(&excelize.Style{NumFmt: numFmtInteger}); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	if x.fixedStyle, err = f.NewStyle(&excelize.Style{NumFmt: numFmtFixed2}); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(x.sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	if err := x.save(); err != nil {
		f.Close()
		return nil, err
	}
	return x, nil
}

// Emit writes the row for r and saves the workbook
func (x *XLSX) Emit(r fopm.Record) error {
	x.row++
	cells := []struct {
		col   int
		value interface{}
		style int
	}{
		{1, r.Number(), x.intStyle},
		{2, r.Wavelength.String(), 0},
		{3, dbCell(r.RelativeDB), x.fixedStyle},
		{4, dbCell(r.RefDB), x.fixedStyle},
		{5, r.Modulation.String(), 0},
	}

	for _, c := range cells {
		cell, err := excelize.CoordinatesToCellName(c.col, x.row)
		if err != nil {
			return err
		}
		if err := x.f.SetCellValue(x.sheet, cell, c.value); err != nil {
			return fmt.Errorf("xlsx %s: %w", cell, err)
		}
		if c.style != 0 {
			if err := x.f.SetCellStyle(x.sheet, cell, cell, c.style); err != nil {
				return fmt.Errorf("xlsx %s style: %w", cell, err)
			}
		}
	}
	return x.save()
}

// dbCell keeps finite values numeric; NaN and infinities become text
func dbCell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fopm.FormatDB(v)
	}
	return v
}

// Close saves and releases the workbook
func (x *XLSX) Close() error {
	err := x.save()
	if cerr := x.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Path returns the workbook location
func (x *XLSX) Path() string {
	return x.path
}

func (x *XLSX) save() error {
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("save xlsx %s: %w", x.path, err)
	}
	return nil
}
