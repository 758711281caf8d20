package table

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
)

// statKey is the join key of the numeric and datetime blocks; it is dropped
// from the profile
const statKey = "stat_column"

// Profile summarizes every column of t, one row per column:
// column, dtype, non_null, pct_null, unique, shape, then mean, median, std,
// min, p25, p75, max when t has a numeric column, then min_date, max_date
// when t has a datetime column.
func Profile(t *Table) (*Table, error) {
	const op = "Profile"

	if err := requireTable(op, t); err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()
	result := baseProfile(t, mem)

	blocks := []func(*Table, memory.Allocator) *Table{numericProfile, datetimeProfile}
	for _, build := range blocks {
		block := build(t, mem)
		if block == nil {
			continue
		}
		joined, err := Join(result, block, JoinOptions{LeftKey: "column", RightKey: statKey, How: LeftJoin})
		block.Release()
		result.Release()
		if err != nil {
			return nil, err
		}
		result = joined.Drop(statKey)
		joined.Release()
	}
	return result, nil
}

func baseProfile(t *Table, mem memory.Allocator) *Table {
	rows := t.Len()
	shape := fmt.Sprintf("%d rows, %d columns", rows, t.Width())

	names := series.NewBuilder("column", series.KindString, mem)
	dtypes := series.NewBuilder("dtype", series.KindString, mem)
	nonNull := series.NewBuilder("non_null", series.KindInteger, mem)
	pctNull := series.NewBuilder("pct_null", series.KindFloat, mem)
	unique := series.NewBuilder("unique", series.KindInteger, mem)
	shapes := series.NewBuilder("shape", series.KindString, mem)

	for _, col := range t.columns {
		values := present(col, allRows(rows))
		missing := rows - len(values)

		pct := 0.0
		if rows > 0 {
			pct = math.Round(float64(missing)/float64(rows)*100*100) / 100
		}

		names.Append(col.Name())
		dtypes.Append(col.Kind().String())
		nonNull.Append(int64(len(values)))
		pctNull.Append(pct)
		unique.Append(int64(countDistinct(values)))
		shapes.Append(shape)
	}

	return mustNew(names.Finish(), dtypes.Finish(), nonNull.Finish(), pctNull.Finish(), unique.Finish(), shapes.Finish())
}

// numericProfile returns the descriptive statistics of the numeric columns,
// or nil when there are none
func numericProfile(t *Table, mem memory.Allocator) *Table {
	key := series.NewBuilder(statKey, series.KindString, mem)
	stats := []string{"mean", "median", "std", "min", "p25", "p75", "max"}
	builders := make([]*series.Builder, len(stats))
	for i, name := range stats {
		builders[i] = series.NewBuilder(name, series.KindFloat, mem)
	}

	for _, col := range t.columns {
		if !col.Kind().IsNumeric() {
			continue
		}
		s := summarize(col)
		key.Append(col.Name())
		for i, v := range []any{s.mean, s.median, s.std, s.min, s.p25, s.p75, s.max} {
			builders[i].Append(v)
		}
	}
	if key.Len() == 0 {
		return nil
	}

	cols := []series.Column{key.Finish()}
	for _, b := range builders {
		cols = append(cols, b.Finish())
	}
	return mustNew(cols...)
}

// datetimeProfile returns the date range of the datetime columns, or nil
// when there are none
func datetimeProfile(t *Table, mem memory.Allocator) *Table {
	key := series.NewBuilder(statKey, series.KindString, mem)
	minDate := series.NewBuilder("min_date", series.KindDatetime, mem)
	maxDate := series.NewBuilder("max_date", series.KindDatetime, mem)

	for _, col := range t.columns {
		if col.Kind() != series.KindDatetime {
			continue
		}
		values := present(col, allRows(col.Len()))
		key.Append(col.Name())
		minDate.Append(extreme(values, false))
		maxDate.Append(extreme(values, true))
	}
	if key.Len() == 0 {
		return nil
	}
	return mustNew(key.Finish(), minDate.Finish(), maxDate.Finish())
}
