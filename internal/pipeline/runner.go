package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paveg/tablekit/internal/config"
	tkio "github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/logging"
	"github.com/paveg/tablekit/internal/monitoring"
	"github.com/paveg/tablekit/internal/parallel"
	"github.com/paveg/tablekit/internal/table"
)

// CompareColumn names the single column of a compare step's result
const CompareColumn = "value"

// Result summarizes a finished run
type Result struct {
	RunID   string
	Output  string
	Sheets  []string
	Steps   []monitoring.OperationMetrics
	Summary monitoring.MetricsSummary
}

// Runner executes jobs. Config supplies the defaults steps fall back to.
type Runner struct {
	Config config.Config
	Logger *slog.Logger
	// Workers bounds how many inputs load at once; zero uses one per CPU
	Workers int
}

// NewRunner creates a runner. A nil logger discards log output.
func NewRunner(cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{Config: cfg.WithDefaults(), Logger: logger}
}

// Run executes job with default configuration. Relative paths in the job
// resolve against baseDir.
func Run(ctx context.Context, job *Job, baseDir string, logger *slog.Logger) (*Result, error) {
	return NewRunner(config.NewConfig(), logger).Run(ctx, job, baseDir)
}

// Run executes job: it loads every input, runs the steps in order and
// writes each step result as a sheet of the output workbook. Every log line
// carries the run id.
func (r *Runner) Run(ctx context.Context, job *Job, baseDir string) (*Result, error) {
	if job == nil {
		return nil, fmt.Errorf("run: nil job")
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	started := time.Now()
	r.Logger.InfoContext(ctx, "pipeline started",
		slog.String("job", job.Name),
		slog.Int("inputs", len(job.Inputs)),
		slog.Int("steps", len(job.Steps)))

	tables := make(map[string]*table.Table, len(job.Inputs)+len(job.Steps))
	defer func() {
		for _, t := range tables {
			t.Release()
		}
	}()

	loaded, err := parallel.ProcessIndexed(ctx, parallel.NewWorkerPool(r.Workers), job.Inputs,
		func(ctx context.Context, _ int, in Input) (*table.Table, error) {
			t, err := r.load(ctx, in, baseDir)
			if err != nil {
				r.Logger.ErrorContext(ctx, "loading input failed", slog.String("input", in.Name), slog.Any("error", err))
				return nil, fmt.Errorf("input %q: %w", in.Name, err)
			}
			r.Logger.DebugContext(ctx, "input loaded",
				slog.String("input", in.Name), slog.Int("rows", t.Len()), slog.Int("columns", t.Width()))
			return t, nil
		})
	for i, t := range loaded {
		if t != nil {
			tables[job.Inputs[i].Name] = t
		}
	}
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetricsCollector(true)
	sheets := make([]tkio.NamedTable, 0, len(job.Steps))
	for _, step := range job.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var t *table.Table
		err := metrics.RecordOperation(step.Name, step.Op, func() (int, error) {
			var err error
			if t, err = r.runStep(step, tables); err != nil {
				return 0, err
			}
			return t.Len(), nil
		})
		if err != nil {
			r.Logger.ErrorContext(ctx, "step failed",
				slog.String("step", step.Name), slog.String("op", step.Op), slog.Any("error", err))
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		tables[step.Name] = t
		sheets = append(sheets, tkio.NamedTable{Name: step.Name, Table: t})

		steps := metrics.GetMetrics()
		last := steps[len(steps)-1]
		r.Logger.InfoContext(ctx, "step finished",
			slog.String("step", step.Name),
			slog.String("op", step.Op),
			slog.Int64("rows", last.RowsProcessed),
			slog.Duration("elapsed", last.Duration))
	}

	output := resolve(baseDir, job.Output.Path)
	if err := tkio.ExportSheets(output, sheets); err != nil {
		r.Logger.ErrorContext(ctx, "writing output failed", slog.String("output", output), slog.Any("error", err))
		return nil, fmt.Errorf("output: %w", err)
	}

	result := &Result{
		RunID:   runID,
		Output:  output,
		Sheets:  make([]string, len(sheets)),
		Steps:   metrics.GetMetrics(),
		Summary: metrics.GetSummary(),
	}
	for i, s := range sheets {
		result.Sheets[i] = s.Name
	}
	r.Logger.InfoContext(ctx, "pipeline finished",
		slog.String("output", output),
		slog.Duration("elapsed", time.Since(started)))
	return result, nil
}

func (r *Runner) load(ctx context.Context, in Input, baseDir string) (*table.Table, error) {
	opts := tkio.DefaultFileOptions()
	opts.CSV.Delimiter = r.Config.Delimiter()
	opts.CSV.Encoding = r.Config.CSVEncoding
	opts.Sheet = in.Sheet
	opts.Query = in.Query
	return tkio.ReadFile(ctx, resolve(baseDir, in.Path), opts, nil)
}

func (r *Runner) runStep(step Step, tables map[string]*table.Table) (*table.Table, error) {
	switch step.Op {
	case OpAggregate:
		opts, err := r.aggregateOptions(step)
		if err != nil {
			return nil, err
		}
		return table.Aggregate(tables[step.Input], opts)
	case OpProfile:
		return table.Profile(tables[step.Input])
	case OpDuplicates:
		return table.FindDuplicates(tables[step.Input])
	case OpUniques:
		return table.UniquesTable(table.Uniques(tables[step.Input])), nil
	case OpSort:
		return table.Sort(tables[step.Input], step.OrderBy, step.Ascending)
	case OpJoin:
		how, err := table.ParseJoinType(step.How)
		if err != nil {
			return nil, err
		}
		return table.Join(tables[step.Left], tables[step.Right], table.JoinOptions{
			LeftKey:      step.LeftKey,
			RightKey:     step.RightKey,
			LeftColumns:  step.LeftColumns,
			RightColumns: step.RightColumns,
			How:          how,
			LeftSuffix:   r.Config.LeftSuffix,
			RightSuffix:  r.Config.RightSuffix,
		})
	case OpCompare:
		set, err := table.CompareColumns(tables[step.Left], step.LeftColumn, tables[step.Right], step.RightColumn,
			step.ExcludeMatches)
		if err != nil {
			return nil, err
		}
		return set.ToTable(CompareColumn), nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (r *Runner) aggregateOptions(step Step) (table.AggregateOptions, error) {
	opts := table.AggregateOptions{
		Keys:          step.Keys,
		MetricColumns: step.MetricColumns,
		OrderBy:       step.OrderBy,
		Ascending:     step.Ascending,
		IncludeTotal:  step.IncludeTotal,
		TotalLabel:    firstNonEmpty(step.TotalLabel, r.Config.TotalLabel),
		TotalFiller:   firstNonEmpty(step.TotalFiller, r.Config.TotalFiller),
	}

	if len(step.PerColumn) > 0 {
		entries := make([]table.ColumnMetrics, 0, len(step.PerColumn))
		for _, pc := range step.PerColumn {
			metrics, err := parseMetrics(pc.Metrics)
			if err != nil {
				return opts, err
			}
			entries = append(entries, table.On(pc.Column, metrics...))
		}
		opts.Metrics = table.PerColumn(entries...)
		return opts, nil
	}

	metrics, err := parseMetrics(step.Metrics)
	if err != nil {
		return opts, err
	}
	opts.Metrics = table.Uniform(metrics...)
	return opts, nil
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

func resolve(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
