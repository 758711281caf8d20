package table

import (
	"fmt"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/validation"
)

// Metric names a reduction applied to the values of one group
type Metric string

const (
	MetricSum     Metric = "sum"
	MetricMean    Metric = "mean"
	MetricMedian  Metric = "median"
	MetricMin     Metric = "min"
	MetricMax     Metric = "max"
	MetricCount   Metric = "count"
	MetricNUnique Metric = "nunique"
	MetricStd     Metric = "std"
	MetricVar     Metric = "var"
	MetricFirst   Metric = "first"
	MetricLast    Metric = "last"
)

// Metrics lists every recognized metric
var Metrics = []Metric{
	MetricSum, MetricMean, MetricMedian, MetricMin, MetricMax, MetricCount,
	MetricNUnique, MetricStd, MetricVar, MetricFirst, MetricLast,
}

// Default labels for the total row
const (
	DefaultTotalLabel  = "TOTAL"
	DefaultTotalFiller = "-"
)

// ParseMetric parses a metric name
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", errors.NewInvalidInputError("ParseMetric", fmt.Sprintf("unknown metric %q", name))
	}
	return m, nil
}

// Valid reports whether m is a recognized metric
func (m Metric) Valid() bool {
	return slices.Contains(Metrics, m)
}

// NumericOnly reports whether m is defined only for integer and float columns
func (m Metric) NumericOnly() bool {
	switch m {
	case MetricSum, MetricMean, MetricMedian, MetricStd, MetricVar:
		return true
	default:
		return false
	}
}

// resultKind is the kind of the column m produces from a column of kind src
func (m Metric) resultKind(src series.Kind) series.Kind {
	switch m {
	case MetricMean, MetricMedian, MetricStd, MetricVar:
		return series.KindFloat
	case MetricCount, MetricNUnique:
		return series.KindInteger
	default:
		return src
	}
}

// MetricSpec selects which metrics apply to which columns. It is either
// Uniform or PerColumn.
type MetricSpec interface {
	metricSpec()
}

type uniformSpec struct {
	metrics []Metric
}

type perColumnSpec struct {
	entries []ColumnMetrics
}

func (uniformSpec) metricSpec()   {}
func (perColumnSpec) metricSpec() {}

// ColumnMetrics is one entry of a PerColumn spec
type ColumnMetrics struct {
	Column  string
	Metrics []Metric
}

// Uniform applies every metric to every selected metric column
func Uniform(metrics ...Metric) MetricSpec {
	return uniformSpec{metrics: metrics}
}

// PerColumn applies each entry's metrics to its column. Entry order is output order.
func PerColumn(entries ...ColumnMetrics) MetricSpec {
	return perColumnSpec{entries: entries}
}

// On builds a PerColumn entry
func On(column string, metrics ...Metric) ColumnMetrics {
	return ColumnMetrics{Column: column, Metrics: metrics}
}

// AggregateOptions configures Aggregate
type AggregateOptions struct {
	Keys          []string
	MetricColumns []string // must exist; Uniform aggregates these, empty means every non-key column
	Metrics       MetricSpec
	OrderBy       []string
	Ascending     []bool // empty: all ascending; one flag: applied to all; else aligned with OrderBy
	IncludeTotal  bool
	TotalLabel    string // defaults to DefaultTotalLabel
	TotalFiller   string // defaults to DefaultTotalFiller
}

type aggPlanItem struct {
	column string
	metric Metric
	output string
}

// outputName is the flattened result column name for column and metric
func outputName(column string, metric Metric) string {
	return strings.Trim(column+"_"+string(metric), "_")
}

// Aggregate groups t by opts.Keys and reduces the metric columns of each
// group. Groups come out sorted by key, nulls last, unless OrderBy re-sorts them.
func Aggregate(t *Table, opts AggregateOptions) (*Table, error) {
	const op = "Aggregate"

	plan, err := resolvePlan(t, opts)
	if err != nil {
		return nil, err
	}

	keyCols := make([]series.Column, len(opts.Keys))
	for i, k := range opts.Keys {
		keyCols[i], _ = t.Column(k)
	}

	ix, err := indexRows(keyCols, t.Len(), false)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	order := allRows(ix.groups())
	slices.SortStableFunc(order, func(a, b int) int {
		ra, rb := ix.rows[a][0], ix.rows[b][0]
		for _, c := range keyCols {
			if cmp := compareNullsLast(keyValue(c, ra), keyValue(c, rb), true); cmp != 0 {
				return cmp
			}
		}
		return 0
	})

	mem := memory.NewGoAllocator()
	firstRows := make([]int, len(order))
	for i, g := range order {
		firstRows[i] = ix.rows[g][0]
	}

	cols := make([]series.Column, 0, len(keyCols)+len(plan))
	for _, c := range keyCols {
		b := series.NewBuilder(c.Name(), c.Kind(), mem)
		b.Reserve(len(firstRows))
		for _, r := range firstRows {
			b.Append(keyValue(c, r))
		}
		cols = append(cols, b.Finish())
	}
	for _, item := range plan {
		src, _ := t.Column(item.column)
		b := series.NewBuilder(item.output, item.metric.resultKind(src.Kind()), mem)
		b.Reserve(len(order))
		for _, g := range order {
			b.Append(reduce(item.metric, src, ix.rows[g]))
		}
		cols = append(cols, b.Finish())
	}

	result, err := New(cols...)
	if err != nil {
		return nil, err
	}

	if len(opts.OrderBy) > 0 {
		sorted, err := Sort(result, opts.OrderBy, opts.Ascending)
		result.Release()
		if err != nil {
			return nil, err
		}
		result = sorted
	}

	if opts.IncludeTotal {
		withTotal := appendTotal(result, len(keyCols), opts)
		result.Release()
		result = withTotal
	}
	return result, nil
}

// resolvePlan validates opts against t and flattens the metric spec into
// one item per output column
func resolvePlan(t *Table, opts AggregateOptions) ([]aggPlanItem, error) {
	const op = "Aggregate"

	if err := requireTable(op, t); err != nil {
		return nil, err
	}
	if len(opts.Keys) == 0 {
		return nil, errors.NewInvalidInputError(op, "at least one key column is required")
	}
	if opts.Metrics == nil {
		return nil, errors.NewInvalidInputError(op, "metrics must be specified")
	}

	var entries []ColumnMetrics
	switch spec := opts.Metrics.(type) {
	case uniformSpec:
		if len(spec.metrics) == 0 {
			return nil, errors.NewInvalidInputError(op, "at least one metric is required")
		}
		columns := opts.MetricColumns
		if len(columns) == 0 {
			for _, name := range t.Columns() {
				if !slices.Contains(opts.Keys, name) {
					columns = append(columns, name)
				}
			}
		}
		for _, c := range columns {
			entries = append(entries, On(c, spec.metrics...))
		}
	case perColumnSpec:
		if len(spec.entries) == 0 {
			return nil, errors.NewInvalidInputError(op, "at least one column entry is required")
		}
		entries = spec.entries
	default:
		return nil, errors.NewInvalidInputError(op, fmt.Sprintf("unsupported metric spec %T", spec))
	}

	referenced := slices.Concat(opts.Keys, opts.MetricColumns)
	for _, e := range entries {
		referenced = append(referenced, e.Column)
	}
	if err := validation.ValidateColumns(t, op, referenced...); err != nil {
		return nil, err
	}

	plan := make([]aggPlanItem, 0, len(entries))
	for _, e := range entries {
		if len(e.Metrics) == 0 {
			return nil, errors.NewValidationError(op, e.Column, "no metrics given for column")
		}
		for _, m := range e.Metrics {
			if !m.Valid() {
				return nil, errors.NewValidationError(op, e.Column, fmt.Sprintf("unknown metric %q", string(m)))
			}
			if m.NumericOnly() {
				if err := validation.ValidateNumeric(t, op, "metric "+string(m), e.Column); err != nil {
					return nil, err
				}
			}
			plan = append(plan, aggPlanItem{column: e.Column, metric: m, output: outputName(e.Column, m)})
		}
	}

	names := slices.Clone(opts.Keys)
	for _, item := range plan {
		names = append(names, item.output)
	}
	if err := validation.ValidateUniqueNames(names, op, "output column"); err != nil {
		return nil, err
	}

	var unknown []string
	for _, name := range opts.OrderBy {
		if !slices.Contains(names, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, errors.NewMissingColumnsError(op, unknown)
	}
	if len(opts.OrderBy) > 0 {
		if _, err := sortDirections(op, len(opts.OrderBy), opts.Ascending); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// appendTotal returns result with one extra row: the label in the first
// key column and column sums under the numeric metric columns
func appendTotal(result *Table, nKeys int, opts AggregateOptions) *Table {
	label := opts.TotalLabel
	if label == "" {
		label = DefaultTotalLabel
	}
	filler := opts.TotalFiller
	if filler == "" {
		filler = DefaultTotalFiller
	}

	mem := memory.NewGoAllocator()
	cols := make([]series.Column, result.Width())
	for i := range cols {
		col := result.ColumnAt(i)
		var total any
		switch {
		case i == 0:
			total = label
		case i < nKeys && col.Kind().IsText():
			total = ""
		case i < nKeys:
			total = nil
		case col.Kind().IsNumeric():
			total = reduce(MetricSum, col, allRows(col.Len()))
		default:
			total = filler
		}

		kind := col.Kind()
		if _, isText := total.(string); isText && !kind.IsText() {
			kind = series.KindString
		}
		b := series.NewBuilder(col.Name(), kind, mem)
		b.Reserve(col.Len() + 1)
		for r := 0; r < col.Len(); r++ {
			b.Append(col.Value(r))
		}
		b.Append(total)
		cols[i] = b.Finish()
	}
	return mustNew(cols...)
}
