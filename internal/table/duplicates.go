package table

import (
	"github.com/paveg/tablekit/internal/errors"
)

// FindDuplicates returns every occurrence of each row that has at least one
// identical row, in original order. Rows compare on all columns; null equals
// null and NaN equals NaN. A table without duplicates yields an empty table
// with the same schema.
func FindDuplicates(t *Table) (*Table, error) {
	const op = "FindDuplicates"

	if err := requireTable(op, t); err != nil {
		return nil, err
	}

	ix, err := indexRows(t.columns, t.Len(), false)
	if err != nil {
		return nil, errors.NewInternalError(op, err)
	}

	groupOf := make([]int, t.Len())
	for g, rows := range ix.rows {
		for _, r := range rows {
			groupOf[r] = g
		}
	}

	var dupRows []int
	for r, g := range groupOf {
		if len(ix.rows[g]) > 1 {
			dupRows = append(dupRows, r)
		}
	}
	if len(dupRows) == 0 {
		return t.Empty(), nil
	}
	return t.Take(dupRows), nil
}
