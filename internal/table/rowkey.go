package table

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/paveg/tablekit/internal/series"
)

// Tags prefixing each encoded value, so values of different types never collide.
const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagString
	tagBool
	tagTime
)

// appendValue appends the binary key form of a canonical value. With numeric
// set, integral floats encode like integers so 1 and 1.0 produce the same key.
// NaN encodes as null: both are missing values.
func appendValue(buf []byte, v any, numeric bool) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(buf, tagNull), nil
	case int64:
		buf = append(buf, tagInt)
		return binary.LittleEndian.AppendUint64(buf, uint64(x)), nil
	case float64:
		if math.IsNaN(x) {
			return append(buf, tagNull), nil
		}
		if numeric && x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			buf = append(buf, tagInt)
			return binary.LittleEndian.AppendUint64(buf, uint64(int64(x))), nil
		}
		bits := math.Float64bits(x)
		if x == 0 {
			bits = 0
		}
		buf = append(buf, tagFloat)
		return binary.LittleEndian.AppendUint64(buf, bits), nil
	case string:
		buf = append(buf, tagString)
		buf = binary.AppendUvarint(buf, uint64(len(x)))
		return append(buf, x...), nil
	case bool:
		if x {
			return append(buf, tagBool, 1), nil
		}
		return append(buf, tagBool, 0), nil
	case time.Time:
		buf = append(buf, tagTime)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(x.Unix()))
		return binary.LittleEndian.AppendUint32(buf, uint32(x.Nanosecond())), nil
	default:
		return buf, fmt.Errorf("cannot encode value of type %T", v)
	}
}

// keyEncoder encodes the values of a fixed set of columns at a row
type keyEncoder struct {
	cols    []series.Column
	numeric bool
	buf     []byte
}

func newKeyEncoder(cols []series.Column, numeric bool) *keyEncoder {
	return &keyEncoder{cols: cols, numeric: numeric, buf: make([]byte, 0, 16*len(cols))}
}

// encode returns the key of row. The slice is reused by the next call.
func (e *keyEncoder) encode(row int) ([]byte, error) {
	e.buf = e.buf[:0]
	for _, c := range e.cols {
		var err error
		e.buf, err = appendValue(e.buf, c.Value(row), e.numeric)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", c.Name(), row, err)
		}
	}
	return e.buf, nil
}

// rowIndex groups rows by encoded key. Keys are hashed with xxhash into
// buckets; colliding keys are told apart by comparing the full key.
// Groups are numbered in first-seen order.
type rowIndex struct {
	buckets map[uint64][]int
	keys    []string
	rows    [][]int
}

func newRowIndex(estimatedSize int) *rowIndex {
	return &rowIndex{buckets: make(map[uint64][]int, estimatedSize)}
}

// add records row under key and returns the key's group id
func (ix *rowIndex) add(key []byte, row int) int {
	hash := xxhash.Sum64(key)
	for _, g := range ix.buckets[hash] {
		if ix.keys[g] == string(key) {
			ix.rows[g] = append(ix.rows[g], row)
			return g
		}
	}

	g := len(ix.keys)
	ix.keys = append(ix.keys, string(key))
	ix.rows = append(ix.rows, []int{row})
	ix.buckets[hash] = append(ix.buckets[hash], g)
	return g
}

// lookup returns the group id for key
func (ix *rowIndex) lookup(key []byte) (int, bool) {
	for _, g := range ix.buckets[xxhash.Sum64(key)] {
		if ix.keys[g] == string(key) {
			return g, true
		}
	}
	return -1, false
}

// groups returns the number of distinct keys
func (ix *rowIndex) groups() int {
	return len(ix.keys)
}

// indexRows builds a rowIndex over every row of cols
func indexRows(cols []series.Column, length int, numeric bool) (*rowIndex, error) {
	enc := newKeyEncoder(cols, numeric)
	ix := newRowIndex(length)
	for row := 0; row < length; row++ {
		key, err := enc.encode(row)
		if err != nil {
			return nil, err
		}
		ix.add(key, row)
	}
	return ix, nil
}
