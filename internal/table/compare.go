package table

import (
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/tablekit/internal/series"
	"github.com/paveg/tablekit/internal/validation"
)

// ValueSet is an immutable set of cell values. Null is a member like any
// other value (nil); integers and floats with equal numeric value are the
// same member.
type ValueSet struct {
	kind   series.Kind
	index  map[string]int
	values []any
}

func newValueSet(kind series.Kind) *ValueSet {
	return &ValueSet{kind: kind, index: make(map[string]int)}
}

func (s *ValueSet) add(v any) {
	key, err := appendValue(nil, v, true)
	if err != nil {
		return
	}
	if _, ok := s.index[string(key)]; ok {
		return
	}
	s.index[string(key)] = len(s.values)
	s.values = append(s.values, v)
}

// Len returns the number of members
func (s *ValueSet) Len() int {
	return len(s.values)
}

// Contains reports whether v is a member
func (s *ValueSet) Contains(v any) bool {
	switch x := v.(type) {
	case int:
		v = int64(x)
	case int32:
		v = int64(x)
	case float32:
		v = float64(x)
	}
	key, err := appendValue(nil, v, true)
	if err != nil {
		return false
	}
	_, ok := s.index[string(key)]
	return ok
}

// Kind returns the kind of the column the members were drawn from
func (s *ValueSet) Kind() series.Kind {
	return s.kind
}

// Values returns the members sorted for display, null first
func (s *ValueSet) Values() []any {
	out := slices.Clone(s.values)
	slices.SortStableFunc(out, func(a, b any) int {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		case b == nil:
			return 1
		}
		return series.Compare(a, b)
	})
	return out
}

// distinctValues collects the distinct values of col
func distinctValues(col series.Column) *ValueSet {
	set := newValueSet(col.Kind())
	for i := 0; i < col.Len(); i++ {
		set.add(col.Value(i))
	}
	return set
}

// CompareColumns compares the distinct values of t1[col1] with those of
// t2[col2]. With excludeMatches it returns the values of col1 absent from
// col2, otherwise the values present in both. Members keep col1's types.
func CompareColumns(t1 *Table, col1 string, t2 *Table, col2 string, excludeMatches bool) (*ValueSet, error) {
	const op = "CompareColumns"

	if err := requireTable(op, t1, t2); err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(t1, op, col1); err != nil {
		return nil, err
	}
	if err := validation.ValidateColumns(t2, op, col2); err != nil {
		return nil, err
	}

	c1, _ := t1.Column(col1)
	c2, _ := t2.Column(col2)
	left, right := distinctValues(c1), distinctValues(c2)

	result := newValueSet(c1.Kind())
	for _, v := range left.values {
		if right.Contains(v) != excludeMatches {
			result.add(v)
		}
	}
	return result, nil
}

// ToTable returns the members, in Values order, as a one-column Table
func (s *ValueSet) ToTable(name string) *Table {
	b := series.NewBuilder(name, s.kind, memory.NewGoAllocator())
	b.Reserve(len(s.values))
	for _, v := range s.Values() {
		b.Append(v)
	}
	return mustNew(b.Finish())
}
