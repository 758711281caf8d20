// Package series provides typed data columns backed by Apache Arrow arrays.
package series

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// TimestampType is the Arrow type used for datetime columns built from time.Time values
var TimestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// Column is the type-erased view of a Series used by table operations
type Column interface {
	Name() string
	Len() int
	Kind() Kind
	DataType() arrow.DataType
	IsNull(index int) bool
	NullCount() int
	Value(index int) any
	GetAsString(index int) string
	Array() arrow.Array
	Clone() Column
	Rename(name string) Column
	String() string
	Release()
}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	kind  Kind
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls.
// It panics on unsupported element types; use NewSafe to get an error instead.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, nil, mem)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewWithValidity creates a Series where valid[i] == false marks a null.
// A nil valid slice means every value is present.
func NewWithValidity[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, valid, mem)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// NewSafe creates a Series and reports unsupported types or a validity
// slice of the wrong length as an error.
func NewSafe[T any](name string, values []T, valid []bool, mem memory.Allocator) (*Series[T], error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if valid != nil && len(valid) != len(values) {
		return nil, fmt.Errorf("series %s: validity length %d does not match %d values", name, len(valid), len(values))
	}

	var (
		arr  arrow.Array
		kind Kind
	)

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindString
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindInteger
	case []int32:
		builder := array.NewInt32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindInteger
	case []float32:
		builder := array.NewFloat32Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindFloat
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindFloat
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		builder.AppendValues(v, valid)
		arr, kind = builder.NewArray(), KindBoolean
	case []time.Time:
		builder := array.NewTimestampBuilder(mem, TimestampType)
		defer builder.Release()
		for i, ts := range v {
			if valid != nil && !valid[i] {
				builder.AppendNull()
				continue
			}
			builder.Append(arrow.Timestamp(ts.UnixNano()))
		}
		arr, kind = builder.NewArray(), KindDatetime
	default:
		return nil, fmt.Errorf("series %s: unsupported type %T", name, values)
	}

	return &Series[T]{name: name, kind: kind, array: arr}, nil
}

// NewCategorical creates a string Series tagged as categorical
func NewCategorical(name string, values []string, valid []bool, mem memory.Allocator) *Series[string] {
	s := NewWithValidity(name, values, valid, mem)
	s.kind = KindCategorical
	return s
}

// FromArray wraps an existing Arrow array, retaining it. The kind is inferred
// from the Arrow type.
func FromArray(name string, arr arrow.Array) Column {
	return FromArrayWithKind(name, KindOf(arr.DataType()), arr)
}

// FromArrayWithKind wraps an existing Arrow array under an explicit kind, retaining it
func FromArrayWithKind(name string, kind Kind, arr arrow.Array) Column {
	arr.Retain()
	switch arr.DataType().ID() {
	case arrow.INT64:
		return &Series[int64]{name: name, kind: kind, array: arr}
	case arrow.FLOAT64:
		return &Series[float64]{name: name, kind: kind, array: arr}
	case arrow.STRING:
		return &Series[string]{name: name, kind: kind, array: arr}
	case arrow.BOOL:
		return &Series[bool]{name: name, kind: kind, array: arr}
	case arrow.TIMESTAMP:
		return &Series[time.Time]{name: name, kind: kind, array: arr}
	default:
		return &Series[any]{name: name, kind: kind, array: arr}
	}
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Kind returns the semantic type tag of the column
func (s *Series[T]) Kind() Kind {
	return s.kind
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the data as a Go slice. Nulls become the zero value of T.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())
	for i := range result {
		if v, ok := CellValue(s.array, i).(T); ok {
			result[i] = v
		}
	}
	return result
}

// Value returns the canonical Go value at index, or nil for a null
func (s *Series[T]) Value(index int) any {
	if index < 0 || index >= s.array.Len() {
		return nil
	}
	return CellValue(s.array, index)
}

// GetAsString returns the formatted value at index; nulls format as ""
func (s *Series[T]) GetAsString(index int) string {
	return FormatValue(s.Value(index))
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullCount returns the number of null values
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.kind, s.name, s.Len())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Clone returns a new handle sharing the same Arrow data
func (s *Series[T]) Clone() Column {
	return s.Rename(s.name)
}

// Rename returns a new handle on the same Arrow data under another name
func (s *Series[T]) Rename(name string) Column {
	s.array.Retain()
	return &Series[T]{name: name, kind: s.kind, array: s.array}
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}
