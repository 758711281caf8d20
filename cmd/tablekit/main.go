// Command tablekit runs table analysis operations over CSV, JSON, Parquet,
// workbook and SQLite files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/paveg/tablekit/internal/config"
	"github.com/paveg/tablekit/internal/logging"
	"github.com/paveg/tablekit/internal/version"
)

// errUsage marks errors caused by bad command-line arguments
var errUsage = errors.New("usage")

// app is the state shared by every subcommand
type app struct {
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
	logger *slog.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"profile":    {"describe every column of a table", runProfile},
	"aggregate":  {"group a table and reduce its metric columns", runAggregate},
	"join":       {"join two tables on a key column", runJoin},
	"compare":    {"list values of one column missing from another", runCompare},
	"duplicates": {"list rows that appear more than once", runDuplicates},
	"uniques":    {"list distinct values of every text column", runUniques},
	"sort":       {"sort a table by one or more columns", runSort},
	"sheets":     {"list the sheets of a workbook", runSheets},
	"stack":      {"stack per-ticker price files into one table", runStack},
	"run":        {"run a YAML pipeline job", runJob},
	"version":    {"print version information", runVersion},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses the global flags, dispatches to a subcommand and returns the
// process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tablekit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "configuration file (JSON or YAML)")
	verbose := fs.Bool("v", false, "log at debug level")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "tablekit: unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "tablekit: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.VerboseLogging = true
	}

	a := &app{
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: logging.New(logging.Options{Level: cfg.EffectiveLogLevel(), Format: cfg.LogFormat}, stderr),
	}

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "tablekit %s: %v\n", name, err)
			return 2
		default:
			a.logger.ErrorContext(ctx, "command failed", slog.String("command", name), slog.Any("error", err))
			fmt.Fprintf(stderr, "tablekit %s: %v\n", name, err)
			return 1
		}
	}
	return 0
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "tablekit %s\n\n", version.Version)
	fmt.Fprintf(w, "Usage: tablekit [-config file] [-v] <command> [options] <args>\n\n")
	fmt.Fprintf(w, "Commands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}

	fmt.Fprintf(w, "\nGlobal options:\n")
	fs.PrintDefaults()
}
