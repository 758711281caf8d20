// Package table provides an immutable, column-typed in-memory table and the
// operations over it: grouped aggregation, profiling, joins, column set
// comparison, duplicate detection and unique value listing.
//
// Every operation returns a new Table; inputs are never mutated. Tables own
// reference-counted Arrow memory and must be released by the caller.
package table

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/validation"
)

// Table is an ordered set of uniquely named columns of equal length
type Table struct {
	columns []series.Column
	index   map[string]int
	length  int
}

// New creates a Table from columns, taking ownership of them.
// It fails when two columns share a name or lengths differ.
func New(cols ...series.Column) (*Table, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	if err := validation.ValidateUniqueNames(names, "New", "column name"); err != nil {
		return nil, err
	}

	length := 0
	if len(cols) > 0 {
		length = cols[0].Len()
	}
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if err := validation.ValidateLength(length, c.Len(), "New", "column "+c.Name()); err != nil {
			return nil, err
		}
		index[c.Name()] = i
	}

	return &Table{columns: cols, index: index, length: length}, nil
}

// mustNew is New for column sets built internally, where a failure is a bug
func mustNew(cols ...series.Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// Columns returns the names of all columns in order
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of rows
func (t *Table) Len() int {
	return t.length
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.columns)
}

// Column returns the column with the given name
func (t *Table) Column(name string) (series.Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the i-th column
func (t *Table) ColumnAt(i int) series.Column {
	return t.columns[i]
}

// HasColumn checks if a column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// KindOf returns the kind of the named column
func (t *Table) KindOf(name string) (series.Kind, bool) {
	c, ok := t.Column(name)
	if !ok {
		return series.KindOther, false
	}
	return c.Kind(), true
}

// Kinds returns the column kinds in column order
func (t *Table) Kinds() []series.Kind {
	kinds := make([]series.Kind, len(t.columns))
	for i, c := range t.columns {
		kinds[i] = c.Kind()
	}
	return kinds
}

// Select returns a new Table with only the named columns, in the given order
func (t *Table) Select(names ...string) (*Table, error) {
	if err := validation.ValidateColumns(t, "Select", names...); err != nil {
		return nil, err
	}
	cols := make([]series.Column, 0, len(names))
	for _, name := range names {
		c, _ := t.Column(name)
		cols = append(cols, c.Clone())
	}
	return New(cols...)
}

// Drop returns a new Table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	cols := make([]series.Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !dropSet[c.Name()] {
			cols = append(cols, c.Clone())
		}
	}
	out := mustNew(cols...)
	if len(cols) == 0 {
		out.length = t.length
	}
	return out
}

// Take returns a new Table holding the rows at indices, in order.
// An index of -1 yields a row of nulls.
func (t *Table) Take(indices []int) *Table {
	mem := memory.NewGoAllocator()
	cols := make([]series.Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = series.Take(c, indices, mem)
	}
	out := mustNew(cols...)
	out.length = len(indices)
	return out
}

// Row returns the canonical values of row i (nil for nulls)
func (t *Table) Row(i int) ([]any, error) {
	if err := validation.ValidateIndex(i, t.length, "Row"); err != nil {
		return nil, err
	}
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Value(i)
	}
	return row, nil
}

// Empty returns a zero-row Table with the same schema
func (t *Table) Empty() *Table {
	return t.Take(nil)
}

// String returns a string representation of the Table
func (t *Table) String() string {
	if len(t.columns) == 0 {
		return "Table[empty]"
	}

	parts := []string{fmt.Sprintf("Table[%dx%d]", t.Len(), t.Width())}
	for _, c := range t.columns {
		parts = append(parts, fmt.Sprintf("  %s: %s", c.Name(), c.Kind()))
	}
	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (t *Table) Release() {
	if t == nil {
		return
	}
	for _, c := range t.columns {
		c.Release()
	}
}

func requireTable(op string, tables ...*Table) error {
	for _, t := range tables {
		if t == nil {
			return errors.NewInputTypeError(op, "expected a table, got nil")
		}
	}
	return nil
}
