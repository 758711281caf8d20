package io

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/table"
)

// kindMetadataKey is the Arrow field metadata key recording a column's kind,
// so categorical columns survive a round trip.
const kindMetadataKey = "tablekit.kind"

// Read reads Parquet data and returns a Table.
func (r *ParquetReader) Read() (*table.Table, error) {
	// Read all data into memory for Parquet reading
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	readerAt := bytes.NewReader(data)

	pqReader, err := file.NewParquetReader(readerAt)
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	props := pqarrow.ArrowReadProperties{BatchSize: int64(r.options.BatchSize)}
	arrowReader, err := pqarrow.NewFileReader(pqReader, props, r.allocator())
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer tbl.Release()

	return r.arrowTableToTable(tbl)
}

func (r *ParquetReader) allocator() memory.Allocator {
	if r.mem == nil {
		return memory.NewGoAllocator()
	}
	return r.mem
}

// arrowTableToTable converts an Arrow table to a Table.
func (r *ParquetReader) arrowTableToTable(tbl arrow.Table) (*table.Table, error) {
	schema := tbl.Schema()
	cols := make([]series.Column, 0, tbl.NumCols())

	for i := 0; i < int(tbl.NumCols()); i++ {
		field := schema.Field(i)
		col, err := r.arrowColumnToSeries(field, tbl.Column(i))
		if err != nil {
			releaseColumns(cols)
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		cols = append(cols, col)
	}

	t, err := table.New(cols...)
	if err != nil {
		releaseColumns(cols)
		return nil, err
	}
	return t, nil
}

// arrowColumnToSeries converts a possibly chunked Arrow column to a Series.
func (r *ParquetReader) arrowColumnToSeries(field arrow.Field, column *arrow.Column) (series.Column, error) {
	kind := fieldKind(field)
	chunks := column.Data().Chunks()

	switch len(chunks) {
	case 0:
		return series.NewBuilder(field.Name, kind, r.mem).Finish(), nil
	case 1:
		return series.FromArrayWithKind(field.Name, kind, chunks[0]), nil
	default:
		arr, err := array.Concatenate(chunks, r.allocator())
		if err != nil {
			return nil, err
		}
		defer arr.Release()
		return series.FromArrayWithKind(field.Name, kind, arr), nil
	}
}

// fieldKind reads the recorded kind of a field, falling back to its Arrow type
func fieldKind(field arrow.Field) series.Kind {
	if idx := field.Metadata.FindKey(kindMetadataKey); idx >= 0 {
		if kind, err := series.ParseKind(field.Metadata.Values()[idx]); err == nil {
			return kind
		}
	}
	return series.KindOf(field.Type)
}

// Write writes the Table to Parquet format.
func (w *ParquetWriter) Write(t *table.Table) error {
	if t == nil {
		return errors.New("writing parquet: nil table")
	}
	if t.Width() == 0 {
		return errors.New("writing parquet: table has no columns")
	}

	rec := w.tableToRecord(t)
	defer rec.Release()

	batchSize := w.options.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(batchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(memory.NewGoAllocator()),
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing file writer: %w", err)
	}
	return nil
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// tableToRecord converts a Table to a single Arrow record batch, tagging
// each field with its column kind.
func (w *ParquetWriter) tableToRecord(t *table.Table) arrow.Record {
	fields := make([]arrow.Field, t.Width())
	arrs := make([]arrow.Array, t.Width())

	for i := range arrs {
		col := t.ColumnAt(i)
		arrs[i] = col.Array()
		fields[i] = arrow.Field{
			Name:     col.Name(),
			Type:     arrs[i].DataType(),
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{kindMetadataKey}, []string{col.Kind().String()}),
		}
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrs, int64(t.Len()))
	for _, arr := range arrs {
		arr.Release()
	}
	return rec
}
