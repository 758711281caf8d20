package table

import (
	"fmt"
	"slices"
	"strings"

	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/validation"
)

// JoinType represents the type of join operation
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	OuterJoin
)

// Default suffixes for column names present on both sides of a join
const (
	DefaultLeftSuffix  = "_x"
	DefaultRightSuffix = "_y"
)

func (jt JoinType) String() string {
	switch jt {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case RightJoin:
		return "right"
	case OuterJoin:
		return "outer"
	default:
		return fmt.Sprintf("JoinType(%d)", int(jt))
	}
}

// ParseJoinType parses "inner", "left", "right" or "outer"
func ParseJoinType(s string) (JoinType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return InnerJoin, nil
	case "left":
		return LeftJoin, nil
	case "right":
		return RightJoin, nil
	case "outer", "full":
		return OuterJoin, nil
	default:
		return InnerJoin, errors.NewInvalidInputError("ParseJoinType", fmt.Sprintf("unknown join type %q", s))
	}
}

// JoinOptions specifies join parameters
type JoinOptions struct {
	LeftKey      string
	RightKey     string
	LeftColumns  []string // nil: every left column; the key is appended when absent
	RightColumns []string // nil: every right column; the key is appended when absent
	How          JoinType
	LeftSuffix   string // defaults to DefaultLeftSuffix
	RightSuffix  string // defaults to DefaultRightSuffix
}

// Join combines left and right on LeftKey == RightKey. Both key columns are
// kept. Integer and float keys compare numerically and null keys match null keys.
func Join(left, right *Table, opts JoinOptions) (*Table, error) {
	const op = "Join"

	if err := requireTable(op, left, right); err != nil {
		return nil, err
	}
	if err := validation.NewCompoundValidator(
		validation.NewColumnValidator(left, op, opts.LeftKey),
		validation.NewColumnValidator(right, op, opts.RightKey),
		validation.NewColumnValidator(left, op, opts.LeftColumns...),
		validation.NewColumnValidator(right, op, opts.RightColumns...),
	).Validate(); err != nil {
		return nil, err
	}
	if opts.How < InnerJoin || opts.How > OuterJoin {
		return nil, errors.NewInvalidInputError(op, fmt.Sprintf("unknown join type %s", opts.How))
	}

	leftIdx, rightIdx, err := matchRows(left, right, opts)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	leftCols := projection(left, opts.LeftColumns, opts.LeftKey)
	rightCols := projection(right, opts.RightColumns, opts.RightKey)

	leftSuffix, rightSuffix := opts.LeftSuffix, opts.RightSuffix
	if leftSuffix == "" {
		leftSuffix = DefaultLeftSuffix
	}
	if rightSuffix == "" {
		rightSuffix = DefaultRightSuffix
	}

	cols := make([]series.Column, 0, len(leftCols)+len(rightCols))
	cols = appendJoined(cols, left, leftCols, leftIdx, rightCols, leftSuffix)
	cols = appendJoined(cols, right, rightCols, rightIdx, leftCols, rightSuffix)

	result, err := New(cols...)
	if err != nil {
		for _, c := range cols {
			c.Release()
		}
		return nil, err
	}
	return result, nil
}

// projection returns the selected column names, with key appended when absent
func projection(t *Table, columns []string, key string) []string {
	if columns == nil {
		return t.Columns()
	}
	names := slices.Clone(columns)
	if !slices.Contains(names, key) {
		names = append(names, key)
	}
	return names
}

// appendJoined takes the rows at idx from each named column of t, renaming
// names that also appear on the other side
func appendJoined(cols []series.Column, t *Table, names []string, idx []int, other []string, suffix string) []series.Column {
	for _, name := range names {
		src, _ := t.Column(name)
		col := series.Take(src, idx, nil)
		if slices.Contains(other, name) {
			renamed := col.Rename(name + suffix)
			col.Release()
			col = renamed
		}
		cols = append(cols, col)
	}
	return cols
}

// matchRows pairs left and right row indices per opts.How; -1 marks the
// missing side of an unmatched row
func matchRows(left, right *Table, opts JoinOptions) ([]int, []int, error) {
	leftKey, _ := left.Column(opts.LeftKey)
	rightKey, _ := right.Column(opts.RightKey)

	var leftIdx, rightIdx []int

	if opts.How == RightJoin {
		ix, err := indexRows([]series.Column{leftKey}, left.Len(), true)
		if err != nil {
			return nil, nil, err
		}
		enc := newKeyEncoder([]series.Column{rightKey}, true)
		for r := 0; r < right.Len(); r++ {
			key, err := enc.encode(r)
			if err != nil {
				return nil, nil, err
			}
			g, ok := ix.lookup(key)
			if !ok {
				leftIdx = append(leftIdx, -1)
				rightIdx = append(rightIdx, r)
				continue
			}
			for _, l := range ix.rows[g] {
				leftIdx = append(leftIdx, l)
				rightIdx = append(rightIdx, r)
			}
		}
		return leftIdx, rightIdx, nil
	}

	ix, err := indexRows([]series.Column{rightKey}, right.Len(), true)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]bool, ix.groups())
	enc := newKeyEncoder([]series.Column{leftKey}, true)
	for l := 0; l < left.Len(); l++ {
		key, err := enc.encode(l)
		if err != nil {
			return nil, nil, err
		}
		g, ok := ix.lookup(key)
		if !ok {
			if opts.How != InnerJoin {
				leftIdx = append(leftIdx, l)
				rightIdx = append(rightIdx, -1)
			}
			continue
		}
		matched[g] = true
		for _, r := range ix.rows[g] {
			leftIdx = append(leftIdx, l)
			rightIdx = append(rightIdx, r)
		}
	}

	if opts.How == OuterJoin {
		var unmatched []int
		for g, rows := range ix.rows {
			if !matched[g] {
				unmatched = append(unmatched, rows...)
			}
		}
		slices.Sort(unmatched)
		for _, r := range unmatched {
			leftIdx = append(leftIdx, -1)
			rightIdx = append(rightIdx, r)
		}
	}
	return leftIdx, rightIdx, nil
}
