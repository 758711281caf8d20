package table

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
)

// ColumnUniques lists the distinct values of one text column
type ColumnUniques struct {
	Column string
	Values []any
}

// Uniques returns, for every string or categorical column of t, its distinct
// values in first-seen order. Null is listed as nil.
func Uniques(t *Table) []ColumnUniques {
	out := []ColumnUniques{}
	if t == nil {
		return out
	}
	for _, col := range t.columns {
		if !col.Kind().IsText() {
			continue
		}
		out = append(out, ColumnUniques{Column: col.Name(), Values: distinctValues(col).values})
	}
	return out
}

// UniquesTable lays out uniques as a two-column Table of (column, value)
// rows. Null values stay null.
func UniquesTable(uniques []ColumnUniques) *Table {
	mem := memory.NewGoAllocator()
	columns := series.NewBuilder("column", series.KindString, mem)
	values := series.NewBuilder("value", series.KindString, mem)
	for _, u := range uniques {
		for _, v := range u.Values {
			columns.Append(u.Column)
			values.Append(v)
		}
	}
	return mustNew(columns.Finish(), values.Finish())
}
