package io

import (
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"
)

// datetimeLayouts are tried in order when inferring datetime columns
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	time.DateOnly,
}

// inferKind determines the most specific kind that can hold every non-empty
// cell: boolean, then integer, float, datetime and finally string.
func inferKind(data []string) series.Kind {
	canBeBool := true
	canBeInt := true
	canBeFloat := true
	canBeTime := true
	hasNonEmptyValue := false

	for _, value := range data {
		if value == "" {
			continue
		}
		hasNonEmptyValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			canBeBool = lower == trueStr || lower == falseStr
		}
		if canBeInt {
			_, err := strconv.ParseInt(value, 10, 64)
			canBeInt = err == nil
		}
		if canBeFloat {
			_, err := strconv.ParseFloat(value, 64)
			canBeFloat = err == nil
		}
		if canBeTime {
			_, canBeTime = parseTime(value)
		}
		if !canBeBool && !canBeInt && !canBeFloat && !canBeTime {
			return series.KindString
		}
	}

	switch {
	case !hasNonEmptyValue:
		return series.KindString
	case canBeBool:
		return series.KindBoolean
	case canBeInt:
		return series.KindInteger
	case canBeFloat:
		return series.KindFloat
	case canBeTime:
		return series.KindDatetime
	default:
		return series.KindString
	}
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseCell converts a cell to the canonical value for kind. Empty cells
// and cells that no longer parse become nulls.
func parseCell(kind series.Kind, value string) any {
	if value == "" {
		return nil
	}

	switch kind {
	case series.KindBoolean:
		return strings.EqualFold(value, trueStr)
	case series.KindInteger:
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case series.KindFloat:
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case series.KindDatetime:
		if ts, ok := parseTime(value); ok {
			return ts
		}
	default:
		return value
	}
	return nil
}

// columnFromStrings builds a column from raw text cells with an inferred kind
func columnFromStrings(name string, data []string, mem memory.Allocator) series.Column {
	kind := inferKind(data)
	b := series.NewBuilder(name, kind, mem)
	b.Reserve(len(data))
	for _, value := range data {
		b.Append(parseCell(kind, value))
	}
	return b.Finish()
}

// headerNames returns names for headerless input: column_0, column_1, ...
func headerNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "column_" + strconv.Itoa(i)
	}
	return names
}

// transpose turns rows of cells into columns of cells; short rows are padded
// with empty cells and extra cells are dropped.
func transpose(rows [][]string, width int) [][]string {
	columns := make([][]string, width)
	for i := range columns {
		columns[i] = make([]string, len(rows))
		for j, row := range rows {
			if i < len(row) {
				columns[i][j] = row[i]
			}
		}
	}
	return columns
}
