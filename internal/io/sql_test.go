package io_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/paveg/tablekit/internal/io"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open(io.SQLiteDriver, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE trades (
		id INTEGER, price REAL, ticker TEXT, settled BOOLEAN, created DATETIME)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO trades VALUES
		(1, 10.5, 'AAA', 1, '2024-01-05 10:00:00'),
		(2, NULL, NULL, 0, NULL),
		(3, 7, 'BBB', 1, '2024-01-06 09:30:00')`)
	require.NoError(t, err)
	return db
}

func TestReadSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("maps result columns to kinds", func(t *testing.T) {
		tbl, err := io.ReadSQL(ctx, db, "SELECT * FROM trades ORDER BY id")
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []string{"id", "price", "ticker", "settled", "created"}, tbl.Columns())
		assert.Equal(t, []series.Kind{
			series.KindInteger, series.KindFloat, series.KindString, series.KindBoolean, series.KindDatetime,
		}, tbl.Kinds())

		assert.Equal(t, []any{int64(1), int64(2), int64(3)}, testutil.Values(t, tbl, "id"))
		assert.Equal(t, []any{10.5, nil, 7.0}, testutil.Values(t, tbl, "price"))
		assert.Equal(t, []any{"AAA", nil, "BBB"}, testutil.Values(t, tbl, "ticker"))
		assert.Equal(t, []any{true, false, true}, testutil.Values(t, tbl, "settled"))

		created := testutil.Values(t, tbl, "created")
		assert.True(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC).Equal(created[0].(time.Time)))
		assert.Nil(t, created[1])
	})

	t.Run("binds arguments", func(t *testing.T) {
		tbl, err := io.ReadSQL(ctx, db, "SELECT ticker FROM trades WHERE id = ?", 3)
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []any{"BBB"}, testutil.Values(t, tbl, "ticker"))
	})

	t.Run("empty result keeps declared kinds", func(t *testing.T) {
		tbl, err := io.ReadSQL(ctx, db, "SELECT id, price FROM trades WHERE id > 100")
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, []series.Kind{series.KindInteger, series.KindFloat}, tbl.Kinds())
	})

	t.Run("computed columns", func(t *testing.T) {
		tbl, err := io.ReadSQL(ctx, db, "SELECT COUNT(*) AS n, AVG(price) AS avg_price FROM trades")
		require.NoError(t, err)
		defer tbl.Release()

		assert.Equal(t, []any{int64(3)}, testutil.Values(t, tbl, "n"))
		assert.Equal(t, []any{8.75}, testutil.Values(t, tbl, "avg_price"))
	})

	t.Run("bad query", func(t *testing.T) {
		_, err := io.ReadSQL(ctx, db, "SELECT * FROM missing")
		assert.Error(t, err)
	})
}
