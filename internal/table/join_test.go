package table //nolint:testpackage // shares column helpers

import (
	"strings"
	"testing"

	tkerrors "github.com/paveg/tablekit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinTables(t *testing.T) (*Table, *Table) {
	left := newTable(t,
		intCol("id", 1, 2, 3, nil),
		strCol("lv", "a", "b", "c", "d"),
	)
	right := newTable(t,
		floatCol("rid", 1.0, 1.0, 3.0, 5.0, nil),
		strCol("rv", "x", "y", "z", "w", "n"),
	)
	return left, right
}

func TestJoin_Types(t *testing.T) {
	left, right := joinTables(t)

	tests := []struct {
		name string
		how  JoinType
		id   []any
		lv   []any
		rid  []any
		rv   []any
	}{
		{
			name: "inner",
			how:  InnerJoin,
			id:   []any{int64(1), int64(1), int64(3), nil},
			lv:   []any{"a", "a", "c", "d"},
			rid:  []any{1.0, 1.0, 3.0, nil},
			rv:   []any{"x", "y", "z", "n"},
		},
		{
			name: "left",
			how:  LeftJoin,
			id:   []any{int64(1), int64(1), int64(2), int64(3), nil},
			lv:   []any{"a", "a", "b", "c", "d"},
			rid:  []any{1.0, 1.0, nil, 3.0, nil},
			rv:   []any{"x", "y", nil, "z", "n"},
		},
		{
			name: "right",
			how:  RightJoin,
			id:   []any{int64(1), int64(1), int64(3), nil, nil},
			lv:   []any{"a", "a", "c", nil, "d"},
			rid:  []any{1.0, 1.0, 3.0, 5.0, nil},
			rv:   []any{"x", "y", "z", "w", "n"},
		},
		{
			name: "outer",
			how:  OuterJoin,
			id:   []any{int64(1), int64(1), int64(2), int64(3), nil, nil},
			lv:   []any{"a", "a", "b", "c", "d", nil},
			rid:  []any{1.0, 1.0, nil, 3.0, nil, 5.0},
			rv:   []any{"x", "y", nil, "z", "n", "w"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Join(left, right, JoinOptions{LeftKey: "id", RightKey: "rid", How: tt.how})
			require.NoError(t, err)
			defer result.Release()

			assert.Equal(t, []string{"id", "lv", "rid", "rv"}, result.Columns())
			assert.Equal(t, tt.id, values(t, result, "id"))
			assert.Equal(t, tt.lv, values(t, result, "lv"))
			assert.Equal(t, tt.rid, values(t, result, "rid"))
			assert.Equal(t, tt.rv, values(t, result, "rv"))
		})
	}
}

func TestJoin_Projection(t *testing.T) {
	left, right := joinTables(t)

	result, err := Join(left, right, JoinOptions{
		LeftKey:      "id",
		RightKey:     "rid",
		LeftColumns:  []string{"lv"},
		RightColumns: []string{"rv"},
	})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"lv", "id", "rv", "rid"}, result.Columns())
}

func TestJoin_Suffixes(t *testing.T) {
	left := newTable(t, intCol("id", 1, 2), strCol("name", "a", "b"), intCol("only_left", 1, 2))
	right := newTable(t, intCol("id", 2, 1), strCol("name", "B", "A"))

	t.Run("defaults", func(t *testing.T) {
		result, err := Join(left, right, JoinOptions{LeftKey: "id", RightKey: "id"})
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, []string{"id_x", "name_x", "only_left", "id_y", "name_y"}, result.Columns())
		assert.Equal(t, []any{"A", "B"}, values(t, result, "name_y"))
	})

	t.Run("custom", func(t *testing.T) {
		result, err := Join(left, right, JoinOptions{LeftKey: "id", RightKey: "id", LeftSuffix: "_l", RightSuffix: "_r"})
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, []string{"id_l", "name_l", "only_left", "id_r", "name_r"}, result.Columns())
	})
}

func TestJoin_InnerRowCountIsSumOfProducts(t *testing.T) {
	left := newTable(t, intCol("k", 1, 1, 2, 3), intCol("lrow", 0, 1, 2, 3))
	right := newTable(t, intCol("rk", 1, 2, 2, 2, 4), intCol("rrow", 0, 1, 2, 3, 4))

	result, err := Join(left, right, JoinOptions{LeftKey: "k", RightKey: "rk"})
	require.NoError(t, err)
	defer result.Release()

	// key 1: 2x1, key 2: 1x3, key 3: 1x0
	assert.Equal(t, 5, result.Len())
	assert.Equal(t, values(t, result, "k"), values(t, result, "rk"))
}

func TestJoin_LeftWithUniqueRightKeys(t *testing.T) {
	left := newTable(t, strCol("code", "a", "b", "c", "a"))
	right := newTable(t, strCol("ref", "a", "c"), intCol("score", 1, 3))

	result, err := Join(left, right, JoinOptions{LeftKey: "code", RightKey: "ref", How: LeftJoin})
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, left.Len(), result.Len())
	assert.Equal(t, []any{"a", "b", "c", "a"}, values(t, result, "code"))
	assert.Equal(t, []any{int64(1), nil, int64(3), int64(1)}, values(t, result, "score"))
}

func TestJoin_Validation(t *testing.T) {
	left, right := joinTables(t)

	tests := []struct {
		name    string
		left    *Table
		right   *Table
		opts    JoinOptions
		wantErr error
	}{
		{"nil left", nil, right, JoinOptions{LeftKey: "id", RightKey: "rid"}, tkerrors.ErrInputType},
		{"nil right", left, nil, JoinOptions{LeftKey: "id", RightKey: "rid"}, tkerrors.ErrInputType},
		{"missing left key", left, right, JoinOptions{LeftKey: "nope", RightKey: "rid"}, tkerrors.ErrMissingColumn},
		{"missing right key", left, right, JoinOptions{LeftKey: "id", RightKey: "nope"}, tkerrors.ErrMissingColumn},
		{
			"missing projected columns", left, right,
			JoinOptions{LeftKey: "id", RightKey: "rid", RightColumns: []string{"rv", "a", "b"}},
			tkerrors.ErrMissingColumn,
		},
		{"unknown join type", left, right, JoinOptions{LeftKey: "id", RightKey: "rid", How: JoinType(9)}, tkerrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Join(tt.left, tt.right, tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseJoinType(t *testing.T) {
	tests := []struct {
		input    string
		expected JoinType
		wantErr  bool
	}{
		{"inner", InnerJoin, false},
		{"LEFT", LeftJoin, false},
		{"right", RightJoin, false},
		{"outer", OuterJoin, false},
		{"cross", InnerJoin, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseJoinType(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, tkerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, strings.ToLower(tt.input), got.String())
		})
	}
}
