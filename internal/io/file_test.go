package io_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	tkerrors "github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := map[string]string{
		"a.csv":         "csv",
		"a.TSV":         "tsv",
		"a.json":        "json",
		"a.ndjson":      "jsonl",
		"a.parquet":     "parquet",
		"dir/b.xlsx":    "xlsx",
		"prices.db":     "sqlite",
		"prices.sqlite": "sqlite",
		"notes.txt":     "",
	}
	for path, expected := range tests {
		assert.Equal(t, expected, io.Format(path), path)
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	src := testutil.SampleTable(t)
	dir := t.TempDir()
	ctx := context.Background()

	for _, ext := range []string{".csv", ".tsv", ".json", ".jsonl", ".parquet", ".xlsx"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "out"+ext)
			require.NoError(t, io.WriteFile(path, src, io.DefaultFileOptions()))

			got, err := io.ReadFile(ctx, path, io.DefaultFileOptions(), nil)
			require.NoError(t, err)
			defer got.Release()

			assert.Equal(t, src.Columns(), got.Columns())
			assert.Equal(t, testutil.Values(t, src, "id"), testutil.Values(t, got, "id"))
			assert.Equal(t, testutil.Values(t, src, "name"), testutil.Values(t, got, "name"))
		})
	}
}

func TestReadFile_Workbook(t *testing.T) {
	path := writeWorkbook(t)

	opts := io.DefaultFileOptions()
	opts.Sheet = "Refs"
	got, err := io.ReadFile(context.Background(), path, opts, nil)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []string{"ref_id", "label"}, got.Columns())

	first, err := io.ReadFile(context.Background(), path, io.DefaultFileOptions(), nil)
	require.NoError(t, err)
	defer first.Release()
	assert.Equal(t, "id", first.Columns()[0])
}

func TestReadFile_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.db")
	db, err := sql.Open(io.SQLiteDriver, path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE bars (ticker TEXT, close REAL); INSERT INTO bars VALUES ('AAA', 1.25)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	opts := io.DefaultFileOptions()
	opts.Query = "SELECT * FROM bars"
	got, err := io.ReadFile(context.Background(), path, opts, nil)
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, []any{1.25}, testutil.Values(t, got, "close"))

	_, err = io.ReadFile(context.Background(), path, io.DefaultFileOptions(), nil)
	assert.ErrorContains(t, err, "a query is required")
	assert.ErrorIs(t, err, tkerrors.ErrInvalidInput)

	opts.Query = "SELECT 1"
	_, err = io.ReadFile(context.Background(), filepath.Join(t.TempDir(), "absent.db"), opts, nil)
	assert.Error(t, err)
}

func TestReadFile_Errors(t *testing.T) {
	_, err := io.ReadFile(context.Background(), "notes.txt", io.DefaultFileOptions(), nil)
	assert.ErrorContains(t, err, "unsupported input format")
	assert.ErrorIs(t, err, tkerrors.ErrInvalidInput)

	_, err = io.ReadFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), io.DefaultFileOptions(), nil)
	assert.Error(t, err)

	err = io.WriteFile(filepath.Join(t.TempDir(), "out.txt"), testutil.SampleTable(t), io.DefaultFileOptions())
	assert.ErrorContains(t, err, "unsupported output format")
	assert.ErrorIs(t, err, tkerrors.ErrInvalidInput)

	err = io.WriteFile(filepath.Join(t.TempDir(), "out.db"), testutil.SampleTable(t), io.DefaultFileOptions())
	assert.ErrorIs(t, err, tkerrors.ErrInvalidInput)
}
