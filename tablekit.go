// Package tablekit summarizes, joins and compares in-memory tables.
// This package is the public API of the library; the implementation lives
// in internal packages.
package tablekit

import (
	"context"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	tkio "github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/market"
	"github.com/paveg/tablekit/internal/pipeline"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
)

// Table is an ordered set of equally long named columns
type Table = table.Table

// Column is one named, typed column of a Table
type Column = series.Column

// Kind is the logical type of a column
type Kind = series.Kind

const (
	KindInteger     = series.KindInteger
	KindFloat       = series.KindFloat
	KindString      = series.KindString
	KindBoolean     = series.KindBoolean
	KindCategorical = series.KindCategorical
	KindDatetime    = series.KindDatetime
	KindOther       = series.KindOther
)

// Errors returned by table operations, for use with errors.Is
var (
	ErrInputType     = errors.ErrInputType
	ErrMissingColumn = errors.ErrMissingColumn
	ErrMissingSheet  = errors.ErrMissingSheet
	ErrEmptyInput    = errors.ErrEmptyInput
	ErrInvalidInput  = errors.ErrInvalidInput
	ErrInternal      = errors.ErrInternal
)

// TableError is the error type returned by table operations
type TableError = errors.TableError

// NewSeries creates a column from a slice of int64, float64, string, bool or time.Time
func NewSeries[T any](name string, values []T, mem memory.Allocator) Column {
	return series.New(name, values, mem)
}

// NewSeriesWithNulls creates a column where valid[i] == false marks a null
func NewSeriesWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) Column {
	return series.NewWithValidity(name, values, valid, mem)
}

// NewCategorical creates a categorical column; a nil valid slice means no nulls
func NewCategorical(name string, values []string, valid []bool, mem memory.Allocator) Column {
	return series.NewCategorical(name, values, valid, mem)
}

// NewTable creates a Table that takes ownership of cols
func NewTable(cols ...Column) (*Table, error) {
	return table.New(cols...)
}

// Aggregation
type (
	Metric           = table.Metric
	MetricSpec       = table.MetricSpec
	ColumnMetrics    = table.ColumnMetrics
	AggregateOptions = table.AggregateOptions
)

const (
	MetricSum     = table.MetricSum
	MetricMean    = table.MetricMean
	MetricMedian  = table.MetricMedian
	MetricMin     = table.MetricMin
	MetricMax     = table.MetricMax
	MetricCount   = table.MetricCount
	MetricNUnique = table.MetricNUnique
	MetricStd     = table.MetricStd
	MetricVar     = table.MetricVar
	MetricFirst   = table.MetricFirst
	MetricLast    = table.MetricLast
)

// Aggregate groups t by opts.Keys and reduces each group's metric columns
func Aggregate(t *Table, opts AggregateOptions) (*Table, error) {
	return table.Aggregate(t, opts)
}

// Uniform applies every metric to every selected metric column
func Uniform(metrics ...Metric) MetricSpec { return table.Uniform(metrics...) }

// PerColumn applies each entry's metrics to its column
func PerColumn(entries ...ColumnMetrics) MetricSpec { return table.PerColumn(entries...) }

// On builds a PerColumn entry
func On(column string, metrics ...Metric) ColumnMetrics { return table.On(column, metrics...) }

// ParseMetric parses a metric name such as "sum" or "nunique"
func ParseMetric(name string) (Metric, error) { return table.ParseMetric(name) }

// Profile summarizes every column of t, one row per column
func Profile(t *Table) (*Table, error) { return table.Profile(t) }

// Joins
type (
	JoinType    = table.JoinType
	JoinOptions = table.JoinOptions
)

const (
	InnerJoin = table.InnerJoin
	LeftJoin  = table.LeftJoin
	RightJoin = table.RightJoin
	OuterJoin = table.OuterJoin
)

// Join combines left and right on opts.LeftKey == opts.RightKey
func Join(left, right *Table, opts JoinOptions) (*Table, error) {
	return table.Join(left, right, opts)
}

// ParseJoinType parses "inner", "left", "right" or "outer"
func ParseJoinType(s string) (JoinType, error) { return table.ParseJoinType(s) }

// ValueSet is the distinct-value result of CompareColumns
type ValueSet = table.ValueSet

// CompareColumns returns the distinct values of t1[col1] that are absent from
// t2[col2], or present in it when excludeMatches is false
func CompareColumns(t1 *Table, col1 string, t2 *Table, col2 string, excludeMatches bool) (*ValueSet, error) {
	return table.CompareColumns(t1, col1, t2, col2, excludeMatches)
}

// FindDuplicates returns every row of t that has an identical twin
func FindDuplicates(t *Table) (*Table, error) { return table.FindDuplicates(t) }

// ColumnUniques lists the distinct values of one text column
type ColumnUniques = table.ColumnUniques

// Uniques returns the distinct values of every string or categorical column
func Uniques(t *Table) []ColumnUniques { return table.Uniques(t) }

// Sort returns t ordered by the given columns; nulls sort last
func Sort(t *Table, by []string, ascending []bool) (*Table, error) {
	return table.Sort(t, by, ascending)
}

// Render writes t as aligned text
func Render(w io.Writer, t *Table) error { return table.Render(w, t) }

// Files
type (
	FileOptions = tkio.FileOptions
	NamedTable  = tkio.NamedTable
)

// DefaultFileOptions returns default options for every file format
func DefaultFileOptions() FileOptions { return tkio.DefaultFileOptions() }

// ReadFile reads the table at path; the format follows the extension
func ReadFile(ctx context.Context, path string, opts FileOptions) (*Table, error) {
	return tkio.ReadFile(ctx, path, opts, nil)
}

// WriteFile writes t to path; the format follows the extension
func WriteFile(path string, t *Table, opts FileOptions) error {
	return tkio.WriteFile(path, t, opts)
}

// SheetNames lists the sheets of a workbook
func SheetNames(path string) ([]string, error) { return tkio.SheetNames(path) }

// LoadSheets reads every sheet of a workbook, keyed by sheet name
func LoadSheets(path string) (map[string]*Table, error) {
	return tkio.LoadSheets(path, nil)
}

// ExportSheets writes each table to its own sheet of a new workbook
func ExportSheets(path string, sheets []NamedTable) error {
	return tkio.ExportSheets(path, sheets)
}

// Market data
type (
	Bar              = market.Bar
	InstrumentSeries = market.InstrumentSeries
)

// StackBars concatenates per-instrument bars into one long table
func StackBars(instruments []InstrumentSeries) (*Table, error) {
	return market.Stack(instruments)
}

// BarsFromTable reads OHLCV bars from a per-instrument table
func BarsFromTable(t *Table) ([]Bar, error) { return market.BarsFromTable(t) }

// Pipelines
type (
	Job       = pipeline.Job
	JobResult = pipeline.Result
)

// LoadJob reads and validates a YAML job
func LoadJob(path string) (*Job, error) { return pipeline.LoadJob(path) }

// RunJob runs job with the default configuration. Relative paths resolve
// against baseDir; a nil logger discards log output.
func RunJob(ctx context.Context, job *Job, baseDir string, logger *slog.Logger) (*JobResult, error) {
	return pipeline.Run(ctx, job, baseDir, logger)
}
