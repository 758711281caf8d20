package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	tkio "github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI and returns its exit code, stdout and stderr
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"no command", nil, 2, "Commands:"},
		{"unknown command", []string{"pivot"}, 2, `unknown command "pivot"`},
		{"help", []string{"-h"}, 0, "Commands:"},
		{"missing operand", []string{"profile"}, 2, "expected 1 argument(s), got 0"},
		{"bad config", []string{"-config", "missing.yaml", "version"}, 1, "missing.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute(t, "version")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "tablekit "))

	code, stdout, _ = execute(t, "version", "-json")
	require.Equal(t, 0, code)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}

func TestAggregate(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "sales.csv", "region,units\na,1\nb,2\na,3\n")
	out := filepath.Join(dir, "summary.csv")

	code, _, stderr := execute(t, "aggregate", "-keys", "region", "-metrics", "sum", "-total", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "region,units_sum\na,4\nb,2\nTOTAL,6\n", testutil.ReadFile(t, out))
}

func TestAggregate_PerColumnAndConfig(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "sales.csv", "region;units;price\na;1;2\nb;2;4\na;3;6\n")
	cfg := testutil.WriteFile(t, dir, "tablekit.yaml", "csv_delimiter: \";\"\ntotal_label: All\n")
	out := filepath.Join(dir, "summary.csv")

	code, _, stderr := execute(t, "-config", cfg, "aggregate",
		"-keys", "region", "-per", "units=count,max", "-total", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "region;units_count;units_max\na;2;3\nb;1;2\nAll;3;5\n", testutil.ReadFile(t, out))
}

func TestAggregate_BadMetric(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "sales.csv", "region,units\na,1\n")

	code, _, stderr := execute(t, "aggregate", "-keys", "region", "-metrics", "mode", in)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown metric "mode"`)
}

func TestProfile_RendersToStdout(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "data.csv", "name,score\nann,1\nbob,\n")

	code, stdout, stderr := execute(t, "profile", in)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "name")
	assert.Contains(t, stdout, "score")
	assert.Contains(t, stdout, "2 rows, 2 columns")
}

func TestJoinAndCompare(t *testing.T) {
	dir := t.TempDir()
	left := testutil.WriteFile(t, dir, "orders.csv", "id,customer\n1,c1\n2,c2\n3,c9\n")
	right := testutil.WriteFile(t, dir, "customers.csv", "customer,city\nc1,Lima\nc2,Quito\n")

	t.Run("join", func(t *testing.T) {
		out := filepath.Join(dir, "joined.csv")
		code, _, stderr := execute(t, "join", "-key", "customer", "-how", "left", "-o", out, left, right)
		require.Equal(t, 0, code, stderr)

		joined, err := tkio.ReadFile(context.Background(), out, tkio.DefaultFileOptions(), nil)
		require.NoError(t, err)
		defer joined.Release()
		assert.Equal(t, 3, joined.Len())
		assert.True(t, joined.HasColumn("city"))
	})

	t.Run("compare", func(t *testing.T) {
		out := filepath.Join(dir, "missing.csv")
		code, _, stderr := execute(t, "compare", "-column", "customer", "-o", out, left, right)
		require.Equal(t, 0, code, stderr)
		assert.Equal(t, "value\nc9\n", testutil.ReadFile(t, out))
	})

	t.Run("join requires keys", func(t *testing.T) {
		code, _, stderr := execute(t, "join", left, right)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr, "-key")
	})

	t.Run("unknown join type", func(t *testing.T) {
		code, _, _ := execute(t, "join", "-key", "customer", "-how", "cross", left, right)
		assert.Equal(t, 2, code)
	})
}

func TestDuplicatesUniquesSort(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "data.csv", "k,v\nb,1\na,2\nb,1\n")

	out := filepath.Join(dir, "dups.csv")
	code, _, stderr := execute(t, "duplicates", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "k,v\nb,1\nb,1\n", testutil.ReadFile(t, out))

	out = filepath.Join(dir, "uniques.csv")
	code, _, stderr = execute(t, "uniques", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "column,value\nk,b\nk,a\n", testutil.ReadFile(t, out))

	out = filepath.Join(dir, "sorted.csv")
	code, _, stderr = execute(t, "sort", "-by", "k,v", "-desc", "-o", out, in)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "k,v\nb,1\nb,1\na,2\n", testutil.ReadFile(t, out))

	code, _, _ = execute(t, "sort", in)
	assert.Equal(t, 2, code)
}

func TestSheetsAndWorkbookOutput(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "data.csv", "k,v\na,1\n")
	book := filepath.Join(dir, "out.xlsx")

	code, _, stderr := execute(t, "profile", "-o", book, "-o-sheet", "Profile", in)
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := execute(t, "sheets", book)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Profile\n", stdout)
}

func TestStack(t *testing.T) {
	dir := t.TempDir()
	aaa := testutil.WriteFile(t, dir, "aaa.csv",
		"Date,Open,High,Low,Close,Volume\n2024-01-02,1,2,0.5,1.5,100\n2024-01-03,1.5,2.5,1,2,200\n")
	bbb := testutil.WriteFile(t, dir, "bbb.csv",
		"Date,Open,High,Low,Close,Volume\n2024-01-02,10,11,9,10.5,50\n")
	out := filepath.Join(dir, "stacked.csv")

	code, _, stderr := execute(t, "stack", "-o", out, "AAA="+aaa, "BBB="+bbb)
	require.Equal(t, 0, code, stderr)

	stacked, err := tkio.ReadFile(context.Background(), out, tkio.DefaultFileOptions(), nil)
	require.NoError(t, err)
	defer stacked.Release()
	assert.Equal(t, []string{"date", "ticker", "open", "high", "low", "close", "volume"}, stacked.Columns())
	assert.Equal(t, 3, stacked.Len())

	code, _, stderr = execute(t, "stack", "AAA")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "TICKER=FILE")
}

func TestRunJob(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "sales.csv", "region,units\na,1\nb,2\na,3\n")
	job := testutil.WriteFile(t, dir, "job.yaml", `name: cli
inputs:
  - name: sales
    path: sales.csv
steps:
  - name: summary
    op: aggregate
    input: sales
    keys: [region]
    metrics: [sum]
  - name: prof
    op: profile
    input: sales
output:
  path: report.xlsx
`)

	code, stdout, stderr := execute(t, "run", "-metrics", job)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "wrote 2 sheet(s)")
	assert.Contains(t, stdout, "elapsed_ms")
	assert.Contains(t, stdout, "summary")

	names, err := tkio.SheetNames(filepath.Join(dir, "report.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"summary", "prof"}, names)
}

func TestRunJob_Invalid(t *testing.T) {
	dir := t.TempDir()
	job := testutil.WriteFile(t, dir, "job.yaml", "name: broken\nsteps: []\n")

	code, _, stderr := execute(t, "run", job)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid job")
}
