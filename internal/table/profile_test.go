package table //nolint:testpackage // shares column helpers

import (
	"math"
	"testing"
	"time"

	tkerrors "github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	d1 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tbl := newTable(t,
		intCol("n", 1, 2, 3, 4, nil),
		strCol("s", "a", "b", "a", nil, "c"),
		col("d", series.KindDatetime, d2, nil, d1, d1, nil),
	)

	prof, err := Profile(tbl)
	require.NoError(t, err)
	defer prof.Release()

	assert.Equal(t, []string{
		"column", "dtype", "non_null", "pct_null", "unique", "shape",
		"mean", "median", "std", "min", "p25", "p75", "max",
		"min_date", "max_date",
	}, prof.Columns())

	assert.Equal(t, []any{"n", "s", "d"}, values(t, prof, "column"))
	assert.Equal(t, []any{"integer", "string", "datetime"}, values(t, prof, "dtype"))
	assert.Equal(t, []any{int64(4), int64(4), int64(3)}, values(t, prof, "non_null"))
	assert.Equal(t, []any{20.0, 20.0, 40.0}, values(t, prof, "pct_null"))
	assert.Equal(t, []any{int64(4), int64(3), int64(2)}, values(t, prof, "unique"))
	for _, v := range values(t, prof, "shape") {
		assert.Equal(t, "5 rows, 3 columns", v)
	}

	assert.Equal(t, []any{2.5, nil, nil}, values(t, prof, "mean"))
	assert.Equal(t, []any{2.5, nil, nil}, values(t, prof, "median"))
	assert.InDelta(t, math.Sqrt(5.0/3.0), values(t, prof, "std")[0], 1e-12)
	assert.Equal(t, []any{1.0, nil, nil}, values(t, prof, "min"))
	assert.Equal(t, []any{1.75, nil, nil}, values(t, prof, "p25"))
	assert.Equal(t, []any{3.25, nil, nil}, values(t, prof, "p75"))
	assert.Equal(t, []any{4.0, nil, nil}, values(t, prof, "max"))

	minDates := values(t, prof, "min_date")
	maxDates := values(t, prof, "max_date")
	assert.Nil(t, minDates[0])
	assert.Nil(t, maxDates[1])
	assert.True(t, d1.Equal(minDates[2].(time.Time)))
	assert.True(t, d2.Equal(maxDates[2].(time.Time)))
}

func TestProfile_OptionalBlocks(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		prof, err := Profile(newTable(t, strCol("s", "a")))
		require.NoError(t, err)
		defer prof.Release()

		assert.Equal(t, []string{"column", "dtype", "non_null", "pct_null", "unique", "shape"}, prof.Columns())
	})

	t.Run("numeric without datetime", func(t *testing.T) {
		prof, err := Profile(newTable(t, floatCol("x", 1.0)))
		require.NoError(t, err)
		defer prof.Release()

		assert.True(t, prof.HasColumn("p75"))
		assert.False(t, prof.HasColumn("min_date"))
		assert.False(t, prof.HasColumn(statKey))
		assert.Equal(t, []any{nil}, values(t, prof, "std"))
	})
}

func TestProfile_EmptyTables(t *testing.T) {
	t.Run("zero rows", func(t *testing.T) {
		prof, err := Profile(newTable(t, intCol("n")))
		require.NoError(t, err)
		defer prof.Release()

		assert.Equal(t, []any{0.0}, values(t, prof, "pct_null"))
		assert.Equal(t, []any{"0 rows, 1 columns"}, values(t, prof, "shape"))
		assert.Equal(t, []any{nil}, values(t, prof, "mean"))
	})

	t.Run("zero columns", func(t *testing.T) {
		prof, err := Profile(newTable(t))
		require.NoError(t, err)
		defer prof.Release()

		assert.Equal(t, 0, prof.Len())
		assert.Equal(t, []string{"column", "dtype", "non_null", "pct_null", "unique", "shape"}, prof.Columns())
	})

	t.Run("nil table", func(t *testing.T) {
		_, err := Profile(nil)
		assert.ErrorIs(t, err, tkerrors.ErrInputType)
	})
}

func TestQuantile(t *testing.T) {
	xs := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 10},
		{0.25, 20},
		{0.5, 30},
		{0.9, 46},
		{1, 50},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, quantile(xs, tt.p), 1e-9)
	}
	assert.True(t, math.IsNaN(quantile([]float64{}, 0.5)))
}
