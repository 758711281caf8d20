package table

import (
	"slices"

	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/validation"
)

// compareNullsLast orders two cells; nulls sort after every value whichever
// the direction
func compareNullsLast(a, b any, ascending bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := series.Compare(a, b)
	if !ascending {
		c = -c
	}
	return c
}

// sortDirections expands ascending to one flag per sort column
func sortDirections(op string, n int, ascending []bool) ([]bool, error) {
	dirs := make([]bool, n)
	switch len(ascending) {
	case 0:
		for i := range dirs {
			dirs[i] = true
		}
	case 1:
		for i := range dirs {
			dirs[i] = ascending[0]
		}
	case n:
		copy(dirs, ascending)
	default:
		return nil, errors.NewInvalidInputError(op, "ascending must be empty, a single flag, or one flag per sort column")
	}
	return dirs, nil
}

// Sort returns t stably sorted by the given columns. ascending is empty
// (all ascending), a single flag for every column, or one flag per column.
func Sort(t *Table, by []string, ascending []bool) (*Table, error) {
	const op = "Sort"

	if err := requireTable(op, t); err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(t, op, by...); err != nil {
		return nil, err
	}

	dirs, err := sortDirections(op, len(by), ascending)
	if err != nil {
		return nil, err
	}

	cols := make([]series.Column, len(by))
	for i, name := range by {
		cols[i], _ = t.Column(name)
	}

	perm := allRows(t.Len())
	slices.SortStableFunc(perm, func(a, b int) int {
		for i, c := range cols {
			if cmp := compareNullsLast(c.Value(a), c.Value(b), dirs[i]); cmp != 0 {
				return cmp
			}
		}
		return 0
	})
	return t.Take(perm), nil
}
