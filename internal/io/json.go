package io

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
)

// record is one JSON object with its keys in document order
type record struct {
	keys   []string
	values map[string]any
}

// Read reads JSON data and returns a Table. Columns appear in the order their
// keys are first seen; keys missing from a record become nulls.
func (r *JSONReader) Read() (*table.Table, error) {
	dec := json.NewDecoder(bufio.NewReader(r.reader))
	dec.UseNumber()

	var (
		records []record
		err     error
	)
	switch r.options.Format {
	case JSONArray:
		records, err = r.readJSONArray(dec)
	case JSONLines:
		records, err = r.readJSONLines(dec)
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.options.Format)
	}
	if err != nil {
		return nil, err
	}

	return r.recordsToTable(records)
}

// readJSONArray reads a single array of objects
func (r *JSONReader) readJSONArray(dec *json.Decoder) ([]record, error) {
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON array: %w", err)
	}

	var records []record
	for dec.More() {
		rec, err := readObject(dec)
		if err != nil {
			return nil, fmt.Errorf("unmarshaling JSON record %d: %w", len(records)+1, err)
		}
		if r.options.MaxRecords == 0 || len(records) < r.options.MaxRecords {
			records = append(records, rec)
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON array: %w", err)
	}
	return records, nil
}

// readJSONLines reads one object per line. Blank lines are skipped.
func (r *JSONReader) readJSONLines(dec *json.Decoder) ([]record, error) {
	var records []record
	for {
		if r.options.MaxRecords > 0 && len(records) >= r.options.MaxRecords {
			return records, nil
		}
		rec, err := readObject(dec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("unmarshaling JSON line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// readObject decodes the next object from dec, keeping key order.
// It returns io.EOF when the stream is exhausted.
func readObject(dec *json.Decoder) (record, error) {
	tok, err := dec.Token()
	if err != nil {
		return record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return record{}, fmt.Errorf("expected an object, got %v", tok)
	}

	rec := record{values: make(map[string]any)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return record{}, err
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return record{}, err
		}
		if _, seen := rec.values[key]; !seen {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = value
	}
	if err := expectDelim(dec, '}'); err != nil {
		return record{}, err
	}
	return rec, nil
}

// recordsToTable converts JSON records to a Table
func (r *JSONReader) recordsToTable(records []record) (*table.Table, error) {
	var names []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, key := range rec.keys {
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}

	cols := make([]series.Column, 0, len(names))
	for _, name := range names {
		data := make([]any, len(records))
		for i, rec := range records {
			data[i] = rec.values[name]
		}
		cols = append(cols, r.createColumn(name, data))
	}

	t, err := table.New(cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	return t, nil
}

// createColumn infers a kind from decoded JSON values. Numbers are integers
// unless one of them has a fraction or exponent; strings become datetimes
// when every one of them parses as a date. Mixed columns fall back to text.
func (r *JSONReader) createColumn(name string, data []any) series.Column {
	var (
		hasInt, hasFloat, hasBool, hasString, hasOther bool
		strs                                           []string
	)
	for _, v := range data {
		switch x := v.(type) {
		case nil:
		case json.Number:
			if _, err := x.Int64(); err == nil {
				hasInt = true
			} else {
				hasFloat = true
			}
		case bool:
			hasBool = true
		case string:
			hasString = true
			strs = append(strs, x)
		default:
			hasOther = true
		}
	}

	kind := series.KindString
	switch {
	case hasOther:
	case hasString && !hasInt && !hasFloat && !hasBool:
		if inferKind(strs) == series.KindDatetime {
			kind = series.KindDatetime
		}
	case hasBool && !hasInt && !hasFloat && !hasString:
		kind = series.KindBoolean
	case hasFloat && !hasBool && !hasString:
		kind = series.KindFloat
	case hasInt && !hasBool && !hasString:
		kind = series.KindInteger
	}

	b := series.NewBuilder(name, kind, r.mem)
	b.Reserve(len(data))
	for _, v := range data {
		b.Append(jsonCell(kind, v))
	}
	return b.Finish()
}

// jsonCell converts a decoded JSON value to the canonical value for kind
func jsonCell(kind series.Kind, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		switch kind {
		case series.KindInteger:
			n, _ := x.Int64()
			return n
		case series.KindFloat:
			f, _ := x.Float64()
			return f
		default:
			return x.String()
		}
	case string:
		if kind == series.KindDatetime {
			return parseCell(kind, x)
		}
		return x
	case bool:
		if kind == series.KindBoolean {
			return x
		}
		return strconv.FormatBool(x)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}

// Write writes the Table as JSON records keyed by column name, in column order
func (w *JSONWriter) Write(t *table.Table) error {
	if t == nil {
		return errors.New("writing JSON: nil table")
	}

	switch w.options.Format {
	case JSONArray:
		return w.writeJSONArray(t)
	case JSONLines:
		return w.writeJSONLines(t)
	default:
		return fmt.Errorf("unsupported JSON format: %d", w.options.Format)
	}
}

// writeJSONArray writes the Table as a JSON array
func (w *JSONWriter) writeJSONArray(t *table.Table) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendRecord(&buf, t, i); err != nil {
			return err
		}
	}
	buf.WriteByte(']')

	_, err := w.writer.Write(buf.Bytes())
	return err
}

// writeJSONLines writes the Table as JSON Lines
func (w *JSONWriter) writeJSONLines(t *table.Table) error {
	var buf bytes.Buffer
	for i := 0; i < t.Len(); i++ {
		buf.Reset()
		if err := appendRecord(&buf, t, i); err != nil {
			return err
		}
		buf.WriteByte('\n')
		if _, err := w.writer.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func appendRecord(buf *bytes.Buffer, t *table.Table, row int) error {
	buf.WriteByte('{')
	for j := 0; j < t.Width(); j++ {
		col := t.ColumnAt(j)
		if j > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col.Name())
		if err != nil {
			return fmt.Errorf("marshaling JSON key %s: %w", col.Name(), err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(jsonValue(col.Value(row)))
		if err != nil {
			return fmt.Errorf("marshaling JSON record %d: %w", row, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return nil
}

// jsonValue maps a canonical value to one encoding/json can represent.
// NaN and infinities have no JSON form and become null.
func jsonValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		return series.FormatValue(x)
	default:
		return x
	}
}
