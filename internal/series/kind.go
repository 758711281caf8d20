package series

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the semantic type tag of a column. It is fixed when the column is
// constructed; operations branch on it instead of inspecting values.
type Kind uint8

const (
	KindInteger Kind = iota
	KindFloat
	KindString
	KindBoolean
	KindCategorical
	KindDatetime
	KindOther
)

var kindNames = [...]string{
	KindInteger:     "integer",
	KindFloat:       "float",
	KindString:      "string",
	KindBoolean:     "boolean",
	KindCategorical: "categorical",
	KindDatetime:    "datetime",
	KindOther:       "other",
}

// String returns the lower-case name of the kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsNumeric reports whether the kind is integer or float
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// IsText reports whether values of the kind are stored as strings
func (k Kind) IsText() bool {
	return k == KindString || k == KindCategorical
}

// ParseKind parses a kind name as produced by Kind.String
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return Kind(k), nil
		}
	}
	return KindOther, fmt.Errorf("unknown column kind %q", name)
}

// KindOf maps an Arrow data type to its semantic kind
func KindOf(dt arrow.DataType) Kind {
	if dt == nil {
		return KindOther
	}
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return KindInteger
	case arrow.UINT64, arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		// uint64 does not fit int64
		return KindFloat
	case arrow.STRING, arrow.LARGE_STRING:
		return KindString
	case arrow.BOOL:
		return KindBoolean
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return KindDatetime
	case arrow.DICTIONARY:
		return KindCategorical
	default:
		return KindOther
	}
}
