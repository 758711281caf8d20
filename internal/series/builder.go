package series

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Builder accumulates canonical values for a column of a fixed kind.
// Integer columns accept int64 and int, float columns accept float64 and
// int64, text-stored kinds (string, categorical, other) accept anything and
// format it. Appending a value the kind cannot hold panics.
type Builder struct {
	name  string
	kind  Kind
	mem   memory.Allocator
	ints  []int64
	flts  []float64
	strs  []string
	bools []bool
	times []time.Time
	valid []bool
	nulls int
}

// NewBuilder creates a builder for a column of the given kind
func NewBuilder(name string, kind Kind, mem memory.Allocator) *Builder {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Builder{name: name, kind: kind, mem: mem}
}

// Reserve grows the builder's buffers for n more values
func (b *Builder) Reserve(n int) {
	b.valid = growBools(b.valid, n)
	switch b.kind {
	case KindInteger:
		b.ints = append(make([]int64, 0, len(b.ints)+n), b.ints...)
	case KindFloat:
		b.flts = append(make([]float64, 0, len(b.flts)+n), b.flts...)
	case KindBoolean:
		b.bools = append(make([]bool, 0, len(b.bools)+n), b.bools...)
	case KindDatetime:
		b.times = append(make([]time.Time, 0, len(b.times)+n), b.times...)
	default:
		b.strs = append(make([]string, 0, len(b.strs)+n), b.strs...)
	}
}

func growBools(s []bool, n int) []bool {
	return append(make([]bool, 0, len(s)+n), s...)
}

// Len returns the number of values appended so far
func (b *Builder) Len() int {
	return len(b.valid)
}

// Kind returns the kind of the column being built
func (b *Builder) Kind() Kind {
	return b.kind
}

// AppendNull appends a null
func (b *Builder) AppendNull() {
	b.nulls++
	b.valid = append(b.valid, false)
	switch b.kind {
	case KindInteger:
		b.ints = append(b.ints, 0)
	case KindFloat:
		b.flts = append(b.flts, 0)
	case KindBoolean:
		b.bools = append(b.bools, false)
	case KindDatetime:
		b.times = append(b.times, time.Time{})
	default:
		b.strs = append(b.strs, "")
	}
}

// Append appends a canonical value; nil appends a null
func (b *Builder) Append(v any) {
	if v == nil {
		b.AppendNull()
		return
	}

	switch b.kind {
	case KindInteger:
		switch x := v.(type) {
		case int64:
			b.ints = append(b.ints, x)
		case int:
			b.ints = append(b.ints, int64(x))
		default:
			panic(b.mismatch(v))
		}
	case KindFloat:
		f, ok := ToFloat(v)
		if !ok {
			panic(b.mismatch(v))
		}
		b.flts = append(b.flts, f)
	case KindBoolean:
		x, ok := v.(bool)
		if !ok {
			panic(b.mismatch(v))
		}
		b.bools = append(b.bools, x)
	case KindDatetime:
		x, ok := v.(time.Time)
		if !ok {
			panic(b.mismatch(v))
		}
		b.times = append(b.times, x)
	default:
		b.strs = append(b.strs, FormatValue(v))
	}
	b.valid = append(b.valid, true)
}

func (b *Builder) mismatch(v any) string {
	return fmt.Sprintf("series %s: cannot append %T to %s column", b.name, v, b.kind)
}

// Finish builds the column. The builder must not be reused afterwards.
func (b *Builder) Finish() Column {
	valid := b.valid
	if b.nulls == 0 {
		valid = nil
	}

	switch b.kind {
	case KindInteger:
		return NewWithValidity(b.name, b.ints, valid, b.mem)
	case KindFloat:
		return NewWithValidity(b.name, b.flts, valid, b.mem)
	case KindBoolean:
		return NewWithValidity(b.name, b.bools, valid, b.mem)
	case KindDatetime:
		return NewWithValidity(b.name, b.times, valid, b.mem)
	default:
		s := NewWithValidity(b.name, b.strs, valid, b.mem)
		s.kind = b.kind
		return s
	}
}

// Take builds a new column holding the rows of col at indices, in order.
// An index of -1 produces a null.
func Take(col Column, indices []int, mem memory.Allocator) Column {
	b := NewBuilder(col.Name(), col.Kind(), mem)
	b.Reserve(len(indices))
	for _, idx := range indices {
		if idx < 0 {
			b.AppendNull()
			continue
		}
		b.Append(col.Value(idx))
	}
	return b.Finish()
}
