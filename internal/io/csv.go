package io

import (
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
)

// Read reads CSV data and returns a Table. Each column's kind is inferred
// from its non-empty cells; empty cells become nulls.
func (r *CSVReader) Read() (*table.Table, error) {
	decoded, err := decodingReader(r.reader, r.options.Encoding)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	csvReader := csv.NewReader(decoded)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return table.New()
	}

	var (
		headers  []string
		dataRows [][]string
	)
	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		headers = headerNames(len(records[0]))
		dataRows = records
	}

	columns := transpose(dataRows, len(headers))
	cols := make([]series.Column, 0, len(headers))
	for i, header := range headers {
		cols = append(cols, columnFromStrings(header, columns[i], r.mem))
	}

	t, err := table.New(cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return t, nil
}

// Write writes the Table to CSV format. Nulls are written as empty cells.
func (w *CSVWriter) Write(t *table.Table) (err error) {
	if t == nil {
		return errors.New("writing CSV: nil table")
	}

	out, err := encodingWriter(w.writer, w.options.Encoding)
	if err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("flushing CSV: %w", closeErr)
		}
	}()

	csvWriter := csv.NewWriter(out)
	if w.options.Delimiter != 0 {
		csvWriter.Comma = w.options.Delimiter
	}

	if w.options.Header {
		if err := csvWriter.Write(t.Columns()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	row := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j := range row {
			row[j] = cellText(t.ColumnAt(j), i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}

// cellText renders a cell for text outputs; nulls become empty strings
func cellText(col series.Column, i int) string {
	if col.IsNull(i) {
		return ""
	}
	return col.GetAsString(i)
}

func releaseColumns(cols []series.Column) {
	for _, c := range cols {
		c.Release()
	}
}
