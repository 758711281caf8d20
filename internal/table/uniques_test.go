package table //nolint:testpackage // shares column helpers

import (
	"testing"

	"github.com/paveg/tablekit/internal/series"
	"github.com/stretchr/testify/assert"
)

func TestUniques(t *testing.T) {
	tbl := newTable(t,
		strCol("s", "b", "a", "b", nil, "a"),
		intCol("n", 1, 1, 2, 3, 4),
		col("c", series.KindCategorical, "lo", "hi", "lo", "lo", "hi"),
	)

	got := Uniques(tbl)
	assert.Equal(t, []ColumnUniques{
		{Column: "s", Values: []any{"b", "a", nil}},
		{Column: "c", Values: []any{"lo", "hi"}},
	}, got)
}

func TestUniquesTable(t *testing.T) {
	tbl := newTable(t,
		strCol("s", "b", nil),
		col("c", series.KindCategorical, "lo", "lo"),
	)

	out := UniquesTable(Uniques(tbl))
	defer out.Release()

	assert.Equal(t, []string{"column", "value"}, out.Columns())
	assert.Equal(t, []any{"s", "s", "c"}, values(t, out, "column"))
	assert.Equal(t, []any{"b", nil, "lo"}, values(t, out, "value"))

	empty := UniquesTable(nil)
	defer empty.Release()
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 2, empty.Width())
}

func TestUniques_NoTextColumns(t *testing.T) {
	got := Uniques(newTable(t, intCol("n", 1)))
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, Uniques(nil))
}
