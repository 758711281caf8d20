package io

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
)

// ReadSQL runs query against db and returns the result set as a Table.
// Column kinds come from the scanned values; a column with no values falls
// back to its declared database type.
func ReadSQL(ctx context.Context, db *sql.DB, query string, args ...any) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("reading column types: %w", err)
	}

	data := make([][]any, len(types))
	dest := make([]any, len(types))
	for n := 1; rows.Next(); n++ {
		cells := make([]any, len(types))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row %d: %w", n, err)
		}
		for i, v := range cells {
			data[i] = append(data[i], sqlValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	mem := memory.NewGoAllocator()
	cols := make([]series.Column, 0, len(types))
	for i, ct := range types {
		kind := sqlKind(data[i], ct.DatabaseTypeName())
		b := series.NewBuilder(ct.Name(), kind, mem)
		b.Reserve(len(data[i]))
		for _, v := range data[i] {
			b.Append(sqlCell(kind, v))
		}
		cols = append(cols, b.Finish())
	}

	t, err := table.New(cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, fmt.Errorf("reading query result: %w", err)
	}
	return t, nil
}

// sqlValue normalizes a scanned driver value
func sqlValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	default:
		return x
	}
}

// sqlKind picks the kind for a result column from its values and declared type
func sqlKind(values []any, declared string) series.Kind {
	var (
		hasInt, hasFloat, hasBool, hasTime, hasString, boolInts bool
		strs                                                    []string
	)
	boolInts = true
	for _, v := range values {
		switch x := v.(type) {
		case nil:
		case int64:
			hasInt = true
			boolInts = boolInts && (x == 0 || x == 1)
		case float64:
			hasFloat = true
		case bool:
			hasBool = true
		case time.Time:
			hasTime = true
		default:
			hasString = true
			strs = append(strs, fmt.Sprint(x))
		}
	}

	declaredKind := declaredSQLKind(declared)
	switch {
	case !hasInt && !hasFloat && !hasBool && !hasTime && !hasString:
		return declaredKind
	case hasString:
		if !hasInt && !hasFloat && !hasBool && declaredKind == series.KindDatetime &&
			inferKind(strs) == series.KindDatetime {
			return series.KindDatetime
		}
		return series.KindString
	case hasTime && !hasInt && !hasFloat && !hasBool:
		return series.KindDatetime
	case hasBool && !hasInt && !hasFloat && !hasTime:
		return series.KindBoolean
	case hasInt && !hasFloat && !hasBool && !hasTime:
		if declaredKind == series.KindBoolean && boolInts {
			return series.KindBoolean
		}
		return series.KindInteger
	case (hasInt || hasFloat) && !hasBool && !hasTime:
		return series.KindFloat
	default:
		return series.KindString
	}
}

// declaredSQLKind maps a database type name to a kind, following SQLite's
// type affinity rules loosely
func declaredSQLKind(name string) series.Kind {
	name = strings.ToUpper(name)
	switch {
	case strings.Contains(name, "BOOL"):
		return series.KindBoolean
	case strings.Contains(name, "INT"):
		return series.KindInteger
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"),
		strings.Contains(name, "DOUB"), strings.Contains(name, "NUMERIC"),
		strings.Contains(name, "DECIMAL"):
		return series.KindFloat
	case strings.Contains(name, "DATE"), strings.Contains(name, "TIME"):
		return series.KindDatetime
	default:
		return series.KindString
	}
}

// sqlCell converts a normalized value to the canonical value for kind
func sqlCell(kind series.Kind, v any) any {
	if v == nil {
		return nil
	}

	switch kind {
	case series.KindBoolean:
		if n, ok := v.(int64); ok {
			return n == 1
		}
		return v
	case series.KindDatetime:
		if s, ok := v.(string); ok {
			return parseCell(kind, s)
		}
		return v
	case series.KindInteger, series.KindFloat:
		return v
	default:
		return series.FormatValue(v)
	}
}
