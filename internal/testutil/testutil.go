// Package testutil provides the table fixtures and assertions shared by
// tablekit's package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Column builds a column of kind from canonical values; nil is a null
func Column(name string, kind series.Kind, values ...any) series.Column {
	b := series.NewBuilder(name, kind, memory.NewGoAllocator())
	b.Reserve(len(values))
	for _, v := range values {
		b.Append(v)
	}
	return b.Finish()
}

// NewTable builds a table that is released when the test ends
func NewTable(tb testing.TB, cols ...series.Column) *table.Table {
	tb.Helper()
	tbl, err := table.New(cols...)
	require.NoError(tb, err)
	tb.Cleanup(tbl.Release)
	return tbl
}

// SampleTable has one column of every kind; row 1 is null in every column
func SampleTable(tb testing.TB) *table.Table {
	tb.Helper()
	mem := memory.NewGoAllocator()
	valid := []bool{true, false, true}

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	return NewTable(tb,
		series.NewWithValidity("id", []int64{1, 0, 3}, valid, mem),
		series.NewWithValidity("price", []float64{1.5, 0, -2.25}, valid, mem),
		series.NewWithValidity("name", []string{"alpha", "", "gamma, delta"}, valid, mem),
		series.NewWithValidity("active", []bool{true, false, false}, valid, mem),
		series.NewWithValidity("day", []time.Time{day, {}, day.AddDate(0, 1, 0)}, valid, mem),
		series.NewCategorical("grade", []string{"a", "", "b"}, valid, mem),
	)
}

// Values returns the canonical values of the named column
func Values(tb testing.TB, tbl *table.Table, name string) []any {
	tb.Helper()
	col, ok := tbl.Column(name)
	require.True(tb, ok, "column %s", name)

	out := make([]any, col.Len())
	for i := range out {
		out[i] = col.Value(i)
	}
	return out
}

// AssertTableEqual checks that two tables have the same columns, kinds and values
func AssertTableEqual(tb testing.TB, expected, actual *table.Table) {
	tb.Helper()
	require.Equal(tb, expected.Columns(), actual.Columns(), "column names")
	assert.Equal(tb, expected.Kinds(), actual.Kinds(), "column kinds")
	for _, name := range expected.Columns() {
		assert.Equal(tb, Values(tb, expected, name), Values(tb, actual, name), "column %s", name)
	}
}

// WriteFile writes content to dir/name and returns the path
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ReadFile returns the contents of path
func ReadFile(tb testing.TB, path string) string {
	tb.Helper()
	data, err := os.ReadFile(path)
	require.NoError(tb, err)
	return string(data)
}
