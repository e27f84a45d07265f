// Package workbook reads and writes the five-sheet spreadsheet format.
//
// Encode always writes Products, Customers, Invoices, Bills and Exchange
// Bills, in that order, with a placeholder row for empty collections. Decode
// treats the first row of each sheet as headers and keys every later cell by
// its header.
package workbook

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of an encoded workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// defaultSheet is the sheet excelize creates in a new file.
const defaultSheet = "Sheet1"

// headerColWidth keeps long headers like "Discount Percentage (%)" readable.
const headerColWidth = 20

// Codec implements core.Encoder and decodes uploaded workbooks.
type Codec struct{}

// New returns a Codec.
func New() Codec {
	return Codec{}
}

// Encode writes ds as a workbook.
func (Codec) Encode(ds core.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, def := range core.Sheets() {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, def.SheetName); err != nil {
				return nil, fmt.Errorf("rename sheet %s: %w", def.SheetName, err)
			}
		} else if _, err := f.NewSheet(def.SheetName); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", def.SheetName, err)
		}

		if err := writeSheet(f, def, core.ExportRows(ds, def.Kind)); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", def.SheetName, err)
		}
		if err := f.SetRowStyle(def.SheetName, 1, 1, headerStyle); err != nil {
			return nil, fmt.Errorf("style sheet %s: %w", def.SheetName, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, def core.SheetDefinition, rows []core.Row) error {
	headers := def.Headers()

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(def.SheetName, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		cells := make([]any, len(headers))
		for j, h := range headers {
			cells[j] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(def.SheetName, cell, &cells); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(def.SheetName, "A", last, headerColWidth)
}

// Decode reads every sheet of a workbook into header-keyed rows.
// Returns core.ErrEmptyWorkbook for empty input and core.ErrNoSheets when
// no sheet has a data row.
func (c Codec) Decode(data []byte) (core.SheetRows, error) {
	if len(data) == 0 {
		return nil, core.ErrEmptyWorkbook
	}
	return c.DecodeReader(bytes.NewReader(data))
}

// DecodeReader is Decode over a reader.
func (Codec) DecodeReader(r io.Reader) (core.SheetRows, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := make(core.SheetRows)
	for _, name := range f.GetSheetList() {
		records, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		// Header only or empty
		if len(records) <= 1 {
			continue
		}
		if rows := keyRows(records[0], records[1:]); len(rows) > 0 {
			sheets[name] = rows
		}
	}

	if len(sheets) == 0 {
		return nil, core.ErrNoSheets
	}
	return sheets, nil
}

// keyRows maps each record onto the header row. A cell contributes only
// when both its header and its value are non-empty.
func keyRows(header []string, records [][]string) []core.Row {
	rows := make([]core.Row, 0, len(records))
	for _, rec := range records {
		row := make(core.Row, len(rec))
		for i, cell := range rec {
			if i >= len(header) {
				break
			}
			h := strings.TrimSpace(header[i])
			if h == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			row[h] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}
