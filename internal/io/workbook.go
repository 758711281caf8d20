package io

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
	"github.com/paveg/tablekit/internal/validation"
	"github.com/xuri/excelize/v2"
)

// NamedTable pairs a Table with the sheet name it is exported under
type NamedTable struct {
	Name  string
	Table *table.Table
}

// SheetNames returns the sheet names of the workbook at path, in workbook order
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// LoadSheet reads one sheet of the workbook at path. The first row holds
// the column names; column kinds are inferred as for CSV input.
func LoadSheet(path, sheet string, mem memory.Allocator) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	available := f.GetSheetList()
	if !slices.Contains(available, sheet) {
		return nil, errors.NewMissingSheetError("LoadSheet", sheet, available)
	}
	return readSheet(f, sheet, mem)
}

// LoadSheets reads every sheet of the workbook at path, keyed by sheet name.
// On failure no tables are returned.
func LoadSheets(path string, mem memory.Allocator) (map[string]*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	out := make(map[string]*table.Table, len(sheets))
	for _, sheet := range sheets {
		t, err := readSheet(f, sheet, mem)
		if err != nil {
			for _, loaded := range out {
				loaded.Release()
			}
			return nil, err
		}
		out[sheet] = t
	}
	return out, nil
}

func readSheet(f *excelize.File, sheet string, mem memory.Allocator) (*table.Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.New()
	}

	headers := rows[0]
	columns := transpose(rows[1:], len(headers))
	cols := make([]series.Column, 0, len(headers))
	for i, header := range headers {
		cols = append(cols, columnFromStrings(header, columns[i], mem))
	}

	t, err := table.New(cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	return t, nil
}

// ExportSheets writes each table to its own sheet of a new workbook at path,
// header row first. Datetimes and booleans are written as text so the
// workbook reads back with the same kinds.
func ExportSheets(path string, sheets []NamedTable) error {
	const op = "ExportSheets"
	if len(sheets) == 0 {
		return errors.NewEmptyInputError(op, "at least one sheet is required")
	}

	names := make([]string, len(sheets))
	for i, s := range sheets {
		if s.Table == nil {
			return errors.NewInputTypeError(op, fmt.Sprintf("sheet %q: expected a table, got nil", s.Name))
		}
		names[i] = s.Name
	}
	if err := validation.ValidateUniqueNames(names, op, "sheet name"); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("naming sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("creating sheet %q: %w", s.Name, err)
		}

		if err := writeSheet(f, s.Name, s.Table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	header := make([]any, t.Width())
	for i, name := range t.Columns() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header of sheet %s: %w", sheet, err)
	}

	row := make([]any, t.Width())
	for r := 0; r < t.Len(); r++ {
		for j := range row {
			row[j] = sheetCell(t.ColumnAt(j).Value(r))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d of sheet %s: %w", r, sheet, err)
		}
	}
	return nil
}

// sheetCell maps a canonical value to what is stored in the cell
func sheetCell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case bool, time.Time:
		return series.FormatValue(x)
	default:
		return x
	}
}
