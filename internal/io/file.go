package io

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/table"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLiteDriver is the database/sql driver name used for .db and .sqlite files
const SQLiteDriver = "sqlite"

// DefaultSheet is the sheet name used when a single table is written to a workbook
const DefaultSheet = "Sheet1"

// FileOptions configures ReadFile and WriteFile. Only the options relevant
// to the file's format are used.
type FileOptions struct {
	CSV     CSVOptions
	Parquet ParquetOptions
	// Sheet selects a workbook sheet; empty reads the first sheet
	Sheet string
	// Query is the SQL query run against SQLite files
	Query string
}

// DefaultFileOptions returns default options for every format
func DefaultFileOptions() FileOptions {
	return FileOptions{
		CSV:     DefaultCSVOptions(),
		Parquet: DefaultParquetOptions(),
	}
}

// Format returns the normalized format name of path, derived from its
// extension: csv, tsv, json, jsonl, parquet, xlsx or sqlite.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	case ".tsv":
		return "tsv"
	case ".json":
		return "json"
	case ".jsonl", ".ndjson":
		return "jsonl"
	case ".parquet", ".pq":
		return "parquet"
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

// ReadFile reads the table stored at path, choosing the reader by extension
func ReadFile(ctx context.Context, path string, opts FileOptions, mem memory.Allocator) (*table.Table, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	switch Format(path) {
	case "xlsx":
		return readWorkbookFile(path, opts.Sheet, mem)
	case "sqlite":
		return readSQLiteFile(ctx, path, opts.Query)
	case "":
		return nil, errors.NewInvalidInputError("ReadFile", "unsupported input format: "+path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var reader DataReader
	switch Format(path) {
	case "csv":
		reader = NewCSVReader(f, opts.CSV, mem)
	case "tsv":
		csvOpts := opts.CSV
		csvOpts.Delimiter = '\t'
		reader = NewCSVReader(f, csvOpts, mem)
	case "json":
		reader = NewJSONReader(f, JSONOptions{Format: JSONArray}, mem)
	case "jsonl":
		reader = NewJSONReader(f, JSONOptions{Format: JSONLines}, mem)
	case "parquet":
		reader = NewParquetReader(f, opts.Parquet, mem)
	}

	t, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

func readWorkbookFile(path, sheet string, mem memory.Allocator) (*table.Table, error) {
	if sheet == "" {
		names, err := SheetNames(path)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = names[0]
	}
	return LoadSheet(path, sheet, mem)
}

func readSQLiteFile(ctx context.Context, path, query string) (*table.Table, error) {
	if query == "" {
		return nil, errors.NewInvalidInputError("ReadFile", "a query is required to read from a database")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	db, err := sql.Open(SQLiteDriver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	defer db.Close()

	return ReadSQL(ctx, db, query)
}

// WriteFile writes t to path, choosing the writer by extension. Workbooks
// get a single sheet named opts.Sheet, or DefaultSheet.
func WriteFile(path string, t *table.Table, opts FileOptions) (err error) {
	format := Format(path)
	switch format {
	case "xlsx":
		sheet := opts.Sheet
		if sheet == "" {
			sheet = DefaultSheet
		}
		return ExportSheets(path, []NamedTable{{Name: sheet, Table: t}})
	case "csv", "tsv", "json", "jsonl", "parquet":
	default:
		return errors.NewInvalidInputError("WriteFile", "unsupported output format: "+path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	var writer DataWriter
	switch format {
	case "csv":
		writer = NewCSVWriter(f, opts.CSV)
	case "tsv":
		csvOpts := opts.CSV
		csvOpts.Delimiter = '\t'
		writer = NewCSVWriter(f, csvOpts)
	case "json":
		writer = NewJSONWriter(f, JSONOptions{Format: JSONArray})
	case "jsonl":
		writer = NewJSONWriter(f, JSONOptions{Format: JSONLines})
	case "parquet":
		writer = NewParquetWriter(f, opts.Parquet)
	}

	if err := writer.Write(t); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
