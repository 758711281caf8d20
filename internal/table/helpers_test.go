package table //nolint:testpackage // exercises unexported helpers

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
	"github.com/stretchr/testify/require"
)

// col builds a column of the given kind; nil values become nulls and plain
// ints are accepted for integer and float columns
func col(name string, kind series.Kind, values ...any) series.Column {
	b := series.NewBuilder(name, kind, memory.NewGoAllocator())
	for _, v := range values {
		if i, ok := v.(int); ok {
			v = int64(i)
		}
		b.Append(v)
	}
	return b.Finish()
}

func intCol(name string, values ...any) series.Column {
	return col(name, series.KindInteger, values...)
}

func floatCol(name string, values ...any) series.Column {
	return col(name, series.KindFloat, values...)
}

func strCol(name string, values ...any) series.Column {
	return col(name, series.KindString, values...)
}

func newTable(t *testing.T, cols ...series.Column) *Table {
	t.Helper()
	tbl, err := New(cols...)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

// values returns the canonical values of a column
func values(t *testing.T, tbl *Table, name string) []any {
	t.Helper()
	c, ok := tbl.Column(name)
	require.True(t, ok, "column %s missing", name)
	out := make([]any, c.Len())
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}
