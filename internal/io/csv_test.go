package io_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("reads simple CSV with headers", func(t *testing.T) {
		csvData := `name,age,salary
Alice,25,50000
Bob,30,60000
Charlie,35,70000`

		reader := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), mem)
		tbl, err := reader.Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, 3, tbl.Len())
		assert.Equal(t, []string{"name", "age", "salary"}, tbl.Columns())
		assert.Equal(t, []series.Kind{series.KindString, series.KindInteger, series.KindInteger}, tbl.Kinds())
		assert.Equal(t, []any{"Alice", "Bob", "Charlie"}, testutil.Values(t, tbl, "name"))
		assert.Equal(t, []any{int64(25), int64(30), int64(35)}, testutil.Values(t, tbl, "age"))
	})

	t.Run("reads CSV without headers", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Header = false

		tbl, err := io.NewCSVReader(strings.NewReader("Alice,25\nBob,30"), opts, mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []string{"column_0", "column_1"}, tbl.Columns())
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("reads CSV with custom delimiter", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Delimiter = ';'

		tbl, err := io.NewCSVReader(strings.NewReader("a;b\n1;x\n2;y"), opts, mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []any{int64(1), int64(2)}, testutil.Values(t, tbl, "a"))
		assert.Equal(t, []any{"x", "y"}, testutil.Values(t, tbl, "b"))
	})

	t.Run("handles empty CSV", func(t *testing.T) {
		tbl, err := io.NewCSVReader(strings.NewReader(""), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, 0, tbl.Width())
	})

	t.Run("handles CSV with only headers", func(t *testing.T) {
		tbl, err := io.NewCSVReader(strings.NewReader("a,b\n"), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
		assert.Equal(t, []series.Kind{series.KindString, series.KindString}, tbl.Kinds())
	})

	t.Run("rejects duplicate headers", func(t *testing.T) {
		_, err := io.NewCSVReader(strings.NewReader("a,a\n1,2"), io.DefaultCSVOptions(), mem).Read()
		assert.Error(t, err)
	})

	t.Run("reports malformed CSV", func(t *testing.T) {
		_, err := io.NewCSVReader(strings.NewReader("a,b\n\"unterminated,2"), io.DefaultCSVOptions(), mem).Read()
		assert.Error(t, err)
	})

	t.Run("pads short rows with nulls", func(t *testing.T) {
		tbl, err := io.NewCSVReader(strings.NewReader("a,b,c\n1,2,3\n4,5\n"), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []any{int64(3), nil}, testutil.Values(t, tbl, "c"))
	})

	t.Run("handles comments and leading space", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Comment = '#'
		opts.SkipInitialSpace = true

		tbl, err := io.NewCSVReader(strings.NewReader("a, b\n# note\n1, x\n"), opts, mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []string{"a", "b"}, tbl.Columns())
		assert.Equal(t, []any{"x"}, testutil.Values(t, tbl, "b"))
	})
}

func TestCSVReader_TypeInference(t *testing.T) {
	csvData := `flag,count,ratio,day,label,blank
true,1,1.5,2024-01-05,x,
FALSE,,2,2024-02-01,,
,3,1e3,,z,`

	tbl, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), memory.NewGoAllocator()).Read()
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, []series.Kind{
		series.KindBoolean, series.KindInteger, series.KindFloat,
		series.KindDatetime, series.KindString, series.KindString,
	}, tbl.Kinds())

	assert.Equal(t, []any{true, false, nil}, testutil.Values(t, tbl, "flag"))
	assert.Equal(t, []any{int64(1), nil, int64(3)}, testutil.Values(t, tbl, "count"))
	assert.Equal(t, []any{1.5, 2.0, 1000.0}, testutil.Values(t, tbl, "ratio"))
	assert.Equal(t, []any{"x", nil, "z"}, testutil.Values(t, tbl, "label"))
	assert.Equal(t, []any{nil, nil, nil}, testutil.Values(t, tbl, "blank"))

	days := testutil.Values(t, tbl, "day")
	assert.True(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC).Equal(days[0].(time.Time)))
	assert.Nil(t, days[2])
}

func TestCSVReader_DatetimeLayouts(t *testing.T) {
	csvData := "ts\n2024-01-05\n2024-01-05 10:30:00\n2024-01-05T10:30:00+02:00\n"

	tbl, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), memory.NewGoAllocator()).Read()
	require.NoError(t, err)
	defer tbl.Release()

	kind, _ := tbl.KindOf("ts")
	require.Equal(t, series.KindDatetime, kind)

	expected := []time.Time{
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC),
	}
	for i, v := range testutil.Values(t, tbl, "ts") {
		assert.True(t, expected[i].Equal(v.(time.Time)), "row %d: %v", i, v)
	}
}

func TestCSVReader_Encoding(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("windows-1252", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Encoding = "windows-1252"

		tbl, err := io.NewCSVReader(bytes.NewReader([]byte("name\ncaf\xe9\n")), opts, mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []any{"café"}, testutil.Values(t, tbl, "name"))
	})

	t.Run("utf-8 byte order mark is dropped", func(t *testing.T) {
		tbl, err := io.NewCSVReader(bytes.NewReader([]byte("\xef\xbb\xbfid\n1\n")), io.DefaultCSVOptions(), mem).Read()
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []string{"id"}, tbl.Columns())
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Encoding = "utf-16"

		_, err := io.NewCSVReader(strings.NewReader("a\n1"), opts, mem).Read()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported encoding "utf-16"`)
	})
}

func TestCSVWriter(t *testing.T) {
	t.Run("writes header and empty cells for nulls", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(testutil.SampleTable(t)))

		assert.Equal(t, "id,price,name,active,day,grade\n"+
			"1,1.5,alpha,true,2024-01-05,a\n"+
			",,,,,\n"+
			"3,-2.25,\"gamma, delta\",false,2024-02-05,b\n", buf.String())
	})

	t.Run("writes CSV without headers and custom delimiter", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Header = false
		opts.Delimiter = '|'

		var buf bytes.Buffer
		require.NoError(t, io.NewCSVWriter(&buf, opts).Write(testutil.SampleTable(t)))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "1|1.5|alpha|true|2024-01-05|a", lines[0])
	})

	t.Run("encodes windows-1252", func(t *testing.T) {
		opts := io.DefaultCSVOptions()
		opts.Encoding = "windows-1252"
		opts.Header = false

		in, err := io.NewCSVReader(strings.NewReader("name\ncafé\n"), io.DefaultCSVOptions(), memory.NewGoAllocator()).Read()
		require.NoError(t, err)
		defer in.Release()

		var buf bytes.Buffer
		require.NoError(t, io.NewCSVWriter(&buf, opts).Write(in))
		assert.Equal(t, []byte("caf\xe9\n"), buf.Bytes())
	})

	t.Run("nil table", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(nil))
	})
}

func TestCSV_RoundTrip(t *testing.T) {
	src := testutil.SampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(src))

	got, err := io.NewCSVReader(&buf, io.DefaultCSVOptions(), memory.NewGoAllocator()).Read()
	require.NoError(t, err)
	defer got.Release()

	for _, name := range []string{"id", "price", "name", "active"} {
		assert.Equal(t, testutil.Values(t, src, name), testutil.Values(t, got, name), name)
	}
	// categorical is not representable in CSV and reads back as string
	kind, _ := got.KindOf("grade")
	assert.Equal(t, series.KindString, kind)
	assert.Equal(t, []any{"a", nil, "b"}, testutil.Values(t, got, "grade"))
}
