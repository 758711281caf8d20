package table

import (
	"math"
	"slices"

	"github.com/paveg/tablekit/internal/series"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat"
)

// isMissing reports whether a cell is skipped by reducers: null or float NaN
func isMissing(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// keyValue returns the cell of col at row with NaN folded into null, the way
// group keys see it
func keyValue(col series.Column, row int) any {
	if v := col.Value(row); !isMissing(v) {
		return v
	}
	return nil
}

// present returns the non-missing values of col at rows, in row order
func present(col series.Column, rows []int) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		if v := col.Value(r); !isMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// allRows returns 0..n-1
func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func floats(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := series.ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func ints(values []any) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if i, ok := v.(int64); ok {
			out = append(out, i)
		}
	}
	return out
}

func sumOf[T constraints.Integer | constraints.Float](xs []T) T {
	var total T
	for _, x := range xs {
		total += x
	}
	return total
}

// quantile returns the p-quantile of sorted xs, interpolating linearly
// between the closest ranks at position p*(n-1)
func quantile[T constraints.Integer | constraints.Float](sorted []T, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return float64(sorted[n-1])
	}
	frac := h - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}

// reduce applies metric to the values of col at rows. The result is a
// canonical value of resultKind(metric, col.Kind()) or nil.
func reduce(metric Metric, col series.Column, rows []int) any {
	values := present(col, rows)

	switch metric {
	case MetricCount:
		return int64(len(values))
	case MetricNUnique:
		return int64(countDistinct(values))
	case MetricFirst:
		if len(values) == 0 {
			return nil
		}
		return values[0]
	case MetricLast:
		if len(values) == 0 {
			return nil
		}
		return values[len(values)-1]
	case MetricMin, MetricMax:
		return extreme(values, metric == MetricMax)
	case MetricSum:
		if col.Kind() == series.KindInteger {
			return sumOf(ints(values))
		}
		return sumOf(floats(values))
	}

	xs := floats(values)
	switch metric {
	case MetricMean:
		if len(xs) == 0 {
			return nil
		}
		return stat.Mean(xs, nil)
	case MetricMedian:
		if len(xs) == 0 {
			return nil
		}
		slices.Sort(xs)
		return quantile(xs, 0.5)
	case MetricStd:
		if len(xs) < 2 {
			return nil
		}
		return stat.StdDev(xs, nil)
	case MetricVar:
		if len(xs) < 2 {
			return nil
		}
		return stat.Variance(xs, nil)
	}
	return nil
}

func extreme(values []any, largest bool) any {
	if len(values) == 0 {
		return nil
	}
	best := values[0]
	for _, v := range values[1:] {
		c := series.Compare(v, best)
		if (largest && c > 0) || (!largest && c < 0) {
			best = v
		}
	}
	return best
}

func countDistinct(values []any) int {
	seen := make(map[string]struct{}, len(values))
	var buf []byte
	for _, v := range values {
		var err error
		buf, err = appendValue(buf[:0], v, false)
		if err != nil {
			continue
		}
		seen[string(buf)] = struct{}{}
	}
	return len(seen)
}

// numericSummary holds the descriptive statistics reported by Profile
type numericSummary struct {
	mean, median, std, min, p25, p75, max any
}

func summarize(col series.Column) numericSummary {
	xs := floats(present(col, allRows(col.Len())))
	if len(xs) == 0 {
		return numericSummary{}
	}
	slices.Sort(xs)

	s := numericSummary{
		mean:   stat.Mean(xs, nil),
		median: quantile(xs, 0.5),
		min:    xs[0],
		p25:    quantile(xs, 0.25),
		p75:    quantile(xs, 0.75),
		max:    xs[len(xs)-1],
	}
	if len(xs) >= 2 {
		s.std = stat.StdDev(xs, nil)
	}
	return s
}
