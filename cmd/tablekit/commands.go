package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	tkio "github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/market"
	"github.com/paveg/tablekit/internal/monitoring"
	"github.com/paveg/tablekit/internal/pipeline"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
	"github.com/paveg/tablekit/internal/version"
)

// inputFlags selects the part of a file that is read as a table
type inputFlags struct {
	sheet string
	query string
}

func (f *inputFlags) register(fs *flag.FlagSet, prefix string) {
	fs.StringVar(&f.sheet, prefix+"sheet", "", "workbook sheet to read (default: first sheet)")
	fs.StringVar(&f.query, prefix+"query", "", "SQL query for SQLite inputs")
}

// outputFlags selects where a result goes; no path renders it to stdout
type outputFlags struct {
	path  string
	sheet string
}

func (f *outputFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "o", "", "write the result to this file instead of stdout")
	fs.StringVar(&f.sheet, "o-sheet", tkio.DefaultSheet, "sheet name for workbook output")
}

func newFlagSet(a *app, name, operands string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: tablekit %s [options] %s\n\nOptions:\n", name, operands)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and checks the operand count
func parse(fs *flag.FlagSet, args []string, operands int) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if operands >= 0 && fs.NArg() != operands {
		return fmt.Errorf("%w: expected %d argument(s), got %d", errUsage, operands, fs.NArg())
	}
	return nil
}

func (a *app) fileOptions() tkio.FileOptions {
	opts := tkio.DefaultFileOptions()
	opts.CSV.Delimiter = a.cfg.Delimiter()
	opts.CSV.Encoding = a.cfg.CSVEncoding
	return opts
}

func (a *app) read(ctx context.Context, path string, in inputFlags) (*table.Table, error) {
	opts := a.fileOptions()
	opts.Sheet = in.sheet
	opts.Query = in.query

	start := time.Now()
	t, err := tkio.ReadFile(ctx, path, opts, nil)
	if err != nil {
		return nil, err
	}
	a.logger.DebugContext(ctx, "input loaded",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Int("columns", t.Width()),
		slog.Duration("elapsed", time.Since(start)))
	return t, nil
}

// emit writes t to the output file, or renders it to stdout
func (a *app) emit(ctx context.Context, t *table.Table, out outputFlags) error {
	if out.path == "" {
		return table.Render(a.stdout, t)
	}

	opts := a.fileOptions()
	opts.Sheet = out.sheet
	if err := tkio.WriteFile(out.path, t, opts); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "result written", slog.String("path", out.path), slog.Int("rows", t.Len()))
	return nil
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func descending(desc bool) []bool {
	if desc {
		return []bool{false}
	}
	return nil
}

// single runs fn over the table read from the one operand and emits its result
func single(ctx context.Context, a *app, name string, args []string,
	fn func(*table.Table) (*table.Table, error)) error {
	fs := newFlagSet(a, name, "FILE")
	var in inputFlags
	var out outputFlags
	in.register(fs, "")
	out.register(fs)
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	t, err := a.read(ctx, fs.Arg(0), in)
	if err != nil {
		return err
	}
	defer t.Release()

	result, err := fn(t)
	if err != nil {
		return err
	}
	defer result.Release()
	return a.emit(ctx, result, out)
}

func runProfile(ctx context.Context, a *app, args []string) error {
	return single(ctx, a, "profile", args, table.Profile)
}

func runDuplicates(ctx context.Context, a *app, args []string) error {
	return single(ctx, a, "duplicates", args, table.FindDuplicates)
}

func runUniques(ctx context.Context, a *app, args []string) error {
	return single(ctx, a, "uniques", args, func(t *table.Table) (*table.Table, error) {
		return table.UniquesTable(table.Uniques(t)), nil
	})
}

func runSort(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "sort", "FILE")
	by := fs.String("by", "", "comma separated columns to sort by")
	desc := fs.Bool("desc", false, "sort in descending order")
	var in inputFlags
	var out outputFlags
	in.register(fs, "")
	out.register(fs)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	if *by == "" {
		return fmt.Errorf("%w: -by is required", errUsage)
	}

	t, err := a.read(ctx, fs.Arg(0), in)
	if err != nil {
		return err
	}
	defer t.Release()

	sorted, err := table.Sort(t, splitList(*by), descending(*desc))
	if err != nil {
		return err
	}
	defer sorted.Release()
	return a.emit(ctx, sorted, out)
}

// perColumnFlag collects repeated -per column=metric,metric values
type perColumnFlag []table.ColumnMetrics

func (p *perColumnFlag) String() string {
	parts := make([]string, len(*p))
	for i, e := range *p {
		names := make([]string, len(e.Metrics))
		for j, m := range e.Metrics {
			names[j] = string(m)
		}
		parts[i] = e.Column + "=" + strings.Join(names, ",")
	}
	return strings.Join(parts, " ")
}

func (p *perColumnFlag) Set(value string) error {
	column, list, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(column) == "" {
		return fmt.Errorf("expected column=metric[,metric], got %q", value)
	}
	metrics, err := parseMetrics(splitList(list))
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		return fmt.Errorf("no metrics given for column %q", column)
	}
	*p = append(*p, table.On(strings.TrimSpace(column), metrics...))
	return nil
}

func parseMetrics(names []string) ([]table.Metric, error) {
	metrics := make([]table.Metric, len(names))
	for i, name := range names {
		m, err := table.ParseMetric(name)
		if err != nil {
			return nil, err
		}
		metrics[i] = m
	}
	return metrics, nil
}

func runAggregate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "aggregate", "FILE")
	keys := fs.String("keys", "", "comma separated group key columns")
	columns := fs.String("columns", "", "comma separated metric columns (default: every non-key column)")
	metricList := fs.String("metrics", "sum", "comma separated metrics applied to every metric column")
	var per perColumnFlag
	fs.Var(&per, "per", "column=metric[,metric]; repeatable, replaces -metrics and -columns")
	orderBy := fs.String("order-by", "", "comma separated result columns to sort by")
	desc := fs.Bool("desc", false, "sort in descending order")
	total := fs.Bool("total", false, "append a total row")
	totalLabel := fs.String("total-label", a.cfg.TotalLabel, "label of the total row")
	totalFiller := fs.String("total-filler", a.cfg.TotalFiller, "filler for non-numeric total cells")
	var in inputFlags
	var out outputFlags
	in.register(fs, "")
	out.register(fs)
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	opts := table.AggregateOptions{
		Keys:          splitList(*keys),
		MetricColumns: splitList(*columns),
		OrderBy:       splitList(*orderBy),
		Ascending:     descending(*desc),
		IncludeTotal:  *total,
		TotalLabel:    *totalLabel,
		TotalFiller:   *totalFiller,
	}
	if len(per) > 0 {
		opts.Metrics = table.PerColumn(per...)
	} else {
		metrics, err := parseMetrics(splitList(*metricList))
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		opts.Metrics = table.Uniform(metrics...)
	}

	t, err := a.read(ctx, fs.Arg(0), in)
	if err != nil {
		return err
	}
	defer t.Release()

	result, err := table.Aggregate(t, opts)
	if err != nil {
		return err
	}
	defer result.Release()
	return a.emit(ctx, result, out)
}

// readPair reads the two operands of a two-table command
func (a *app) readPair(ctx context.Context, fs *flag.FlagSet, left, right inputFlags) (*table.Table, *table.Table, error) {
	l, err := a.read(ctx, fs.Arg(0), left)
	if err != nil {
		return nil, nil, err
	}
	r, err := a.read(ctx, fs.Arg(1), right)
	if err != nil {
		l.Release()
		return nil, nil, err
	}
	return l, r, nil
}

func runJoin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "join", "LEFT RIGHT")
	key := fs.String("key", "", "key column name on both sides")
	leftKey := fs.String("left-key", "", "key column of the left table (overrides -key)")
	rightKey := fs.String("right-key", "", "key column of the right table (overrides -key)")
	how := fs.String("how", "inner", "join type: inner, left, right or outer")
	leftColumns := fs.String("left-columns", "", "comma separated left columns to keep (default: all)")
	rightColumns := fs.String("right-columns", "", "comma separated right columns to keep (default: all)")
	var left, right inputFlags
	var out outputFlags
	left.register(fs, "left-")
	right.register(fs, "right-")
	out.register(fs)
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	joinType, err := table.ParseJoinType(*how)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	opts := table.JoinOptions{
		LeftKey:      firstNonEmpty(*leftKey, *key),
		RightKey:     firstNonEmpty(*rightKey, *key),
		LeftColumns:  splitList(*leftColumns),
		RightColumns: splitList(*rightColumns),
		How:          joinType,
		LeftSuffix:   a.cfg.LeftSuffix,
		RightSuffix:  a.cfg.RightSuffix,
	}
	if opts.LeftKey == "" || opts.RightKey == "" {
		return fmt.Errorf("%w: -key or both -left-key and -right-key are required", errUsage)
	}

	l, r, err := a.readPair(ctx, fs, left, right)
	if err != nil {
		return err
	}
	defer l.Release()
	defer r.Release()

	joined, err := table.Join(l, r, opts)
	if err != nil {
		return err
	}
	defer joined.Release()
	return a.emit(ctx, joined, out)
}

func runCompare(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "compare", "LEFT RIGHT")
	column := fs.String("column", "", "column name on both sides")
	leftColumn := fs.String("left-column", "", "column of the left table (overrides -column)")
	rightColumn := fs.String("right-column", "", "column of the right table (overrides -column)")
	exclude := fs.Bool("exclude-matches", true, "list left values absent from the right; false lists shared values")
	var left, right inputFlags
	var out outputFlags
	left.register(fs, "left-")
	right.register(fs, "right-")
	out.register(fs)
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	lc, rc := firstNonEmpty(*leftColumn, *column), firstNonEmpty(*rightColumn, *column)
	if lc == "" || rc == "" {
		return fmt.Errorf("%w: -column or both -left-column and -right-column are required", errUsage)
	}

	l, r, err := a.readPair(ctx, fs, left, right)
	if err != nil {
		return err
	}
	defer l.Release()
	defer r.Release()

	set, err := table.CompareColumns(l, lc, r, rc, *exclude)
	if err != nil {
		return err
	}
	result := set.ToTable(pipeline.CompareColumn)
	defer result.Release()
	return a.emit(ctx, result, out)
}

func runSheets(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "sheets", "WORKBOOK")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	names, err := tkio.SheetNames(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}

func runStack(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "stack", "TICKER=FILE...")
	var in inputFlags
	var out outputFlags
	in.register(fs, "")
	out.register(fs)
	if err := parse(fs, args, -1); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: at least one TICKER=FILE argument is required", errUsage)
	}

	instruments := make([]market.InstrumentSeries, 0, fs.NArg())
	for _, arg := range fs.Args() {
		ticker, path, ok := strings.Cut(arg, "=")
		if !ok || ticker == "" || path == "" {
			return fmt.Errorf("%w: expected TICKER=FILE, got %q", errUsage, arg)
		}
		bars, err := a.readBars(ctx, path, in)
		if err != nil {
			return fmt.Errorf("%s: %w", ticker, err)
		}
		instruments = append(instruments, market.InstrumentSeries{Ticker: ticker, Bars: bars})
	}

	stacked, err := market.Stack(instruments)
	if err != nil {
		return err
	}
	defer stacked.Release()
	return a.emit(ctx, stacked, out)
}

func (a *app) readBars(ctx context.Context, path string, in inputFlags) ([]market.Bar, error) {
	t, err := a.read(ctx, path, in)
	if err != nil {
		return nil, err
	}
	defer t.Release()
	return market.BarsFromTable(t)
}

func runJob(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "run", "JOB.yaml")
	showMetrics := fs.Bool("metrics", false, "print per-step timings after the run")
	if err := parse(fs, args, 1); err != nil {
		return err
	}

	path := fs.Arg(0)
	job, err := pipeline.LoadJob(path)
	if err != nil {
		return err
	}

	result, err := pipeline.NewRunner(a.cfg, a.logger).Run(ctx, job, filepath.Dir(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d sheet(s) to %s (run %s)\n", len(result.Sheets), result.Output, result.RunID)
	if !*showMetrics {
		return nil
	}

	stats, err := stepMetricsTable(result.Steps)
	if err != nil {
		return err
	}
	defer stats.Release()
	return table.Render(a.stdout, stats)
}

func stepMetricsTable(steps []monitoring.OperationMetrics) (*table.Table, error) {
	n := len(steps)
	names, ops := make([]string, n), make([]string, n)
	rows, millis, mem := make([]int64, n), make([]float64, n), make([]int64, n)
	for i, m := range steps {
		names[i], ops[i] = m.Name, m.Operation
		rows[i] = m.RowsProcessed
		millis[i] = float64(m.Duration.Microseconds()) / 1000
		mem[i] = m.MemoryUsed
	}

	alloc := memory.NewGoAllocator()
	return table.New(
		series.New("step", names, alloc),
		series.New("op", ops, alloc),
		series.New("rows", rows, alloc),
		series.New("elapsed_ms", millis, alloc),
		series.New("allocated_bytes", mem, alloc),
	)
}

func runVersion(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "version", "")
	asJSON := fs.Bool("json", false, "print build information as JSON")
	if err := parse(fs, args, 0); err != nil {
		return err
	}

	info := version.Info()
	if !*asJSON {
		fmt.Fprint(a.stdout, info.String())
		return nil
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, string(data))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
