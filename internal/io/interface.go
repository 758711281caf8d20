// Package io provides readers and writers that move Tables in and out of
// files and databases.
//
// Key components:
//   - DataReader/DataWriter interfaces for pluggable I/O backends
//   - CSVReader/CSVWriter with per-column type inference and text encodings
//   - JSONReader/JSONWriter for JSON arrays and JSON Lines
//   - ParquetReader/ParquetWriter backed by Arrow's pqarrow
//   - Workbook loading and export backed by excelize
//   - ReadSQL for database/sql result sets
//
// Memory management: every Table returned by a reader owns Arrow memory and
// must be released by the caller, usually with defer t.Release().
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/table"
)

const (
	// DefaultBatchSize is the default batch size for Parquet writes
	DefaultBatchSize = 1000
	// DefaultEncoding is the text encoding assumed for CSV input
	DefaultEncoding = "utf-8"
)

// DataReader defines the interface for reading data from various sources
type DataReader interface {
	// Read reads data from the source and returns a Table
	Read() (*table.Table, error)
}

// DataWriter defines the interface for writing data to various destinations
type DataWriter interface {
	// Write writes the Table to the destination
	Write(t *table.Table) error
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// Header indicates whether the first row contains headers
	Header bool
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
	// Encoding is the text encoding of the input: utf-8, windows-1252 or iso-8859-1
	Encoding string
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:        ',',
		Comment:          0,
		Header:           true,
		SkipInitialSpace: false,
		Encoding:         DefaultEncoding,
	}
}

// CSVReader reads CSV data and converts it to Tables
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	mem     memory.Allocator
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions, mem memory.Allocator) *CSVReader {
	return &CSVReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// CSVWriter writes Tables to CSV format
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{
		writer:  writer,
		options: options,
	}
}

// JSONFormat selects between a single JSON array and one object per line
type JSONFormat int

const (
	// JSONArray is a single array of objects
	JSONArray JSONFormat = iota
	// JSONLines is one object per line
	JSONLines
)

// JSONOptions contains configuration options for JSON operations
type JSONOptions struct {
	Format JSONFormat
	// MaxRecords limits the number of records read; 0 reads everything
	MaxRecords int
}

// DefaultJSONOptions returns default JSON options
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{Format: JSONArray}
}

// JSONReader reads JSON records and converts them to Tables
type JSONReader struct {
	reader  io.Reader
	options JSONOptions
	mem     memory.Allocator
}

// NewJSONReader creates a new JSON reader with the specified options
func NewJSONReader(reader io.Reader, options JSONOptions, mem memory.Allocator) *JSONReader {
	return &JSONReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// JSONWriter writes Tables as JSON records
type JSONWriter struct {
	writer  io.Writer
	options JSONOptions
}

// NewJSONWriter creates a new JSON writer with the specified options
func NewJSONWriter(writer io.Writer, options JSONOptions) *JSONWriter {
	return &JSONWriter{
		writer:  writer,
		options: options,
	}
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression type for Parquet files
	Compression string
	// BatchSize for writing operations
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

// ParquetReader reads Parquet data and converts it to Tables
type ParquetReader struct {
	reader  io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader creates a new Parquet reader with the specified options
func NewParquetReader(reader io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	return &ParquetReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// ParquetWriter writes Tables to Parquet format
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{
		writer:  writer,
		options: options,
	}
}

var (
	_ DataReader = (*CSVReader)(nil)
	_ DataReader = (*JSONReader)(nil)
	_ DataReader = (*ParquetReader)(nil)
	_ DataWriter = (*CSVWriter)(nil)
	_ DataWriter = (*JSONWriter)(nil)
	_ DataWriter = (*ParquetWriter)(nil)
)
