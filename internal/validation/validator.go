// Package validation provides eager input validation for table operations.
// Validators report every problem they can see at once (all missing columns,
// not just the first) and always return *errors.TableError values.
package validation

import (
	"fmt"

	"github.com/paveg/tablekit/internal/errors"
	"github.com/paveg/tablekit/internal/series"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// ColumnProvider interface for types that provide column information
type ColumnProvider interface {
	HasColumn(name string) bool
	Columns() []string
	Len() int
	Width() int
}

// KindProvider is a ColumnProvider that also exposes column kinds
type KindProvider interface {
	ColumnProvider
	KindOf(name string) (series.Kind, bool)
}

// ColumnValidator validates column existence
type ColumnValidator struct {
	table   ColumnProvider
	columns []string
	op      string
}

// NewColumnValidator creates a validator for column operations
func NewColumnValidator(table ColumnProvider, op string, columns ...string) *ColumnValidator {
	return &ColumnValidator{
		table:   table,
		columns: columns,
		op:      op,
	}
}

// Validate checks that all columns exist, reporting every missing name
func (v *ColumnValidator) Validate() error {
	var missing []string
	seen := make(map[string]bool, len(v.columns))
	for _, column := range v.columns {
		if seen[column] {
			continue
		}
		seen[column] = true
		if !v.table.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingColumnsError(v.op, missing)
	}
	return nil
}

// LengthValidator validates array length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		message := fmt.Sprintf("%s: expected length %d, got %d", v.context, v.expected, v.actual)
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// NumericValidator checks that columns have a numeric kind
type NumericValidator struct {
	table   KindProvider
	columns []string
	op      string
	reason  string
}

// NewNumericValidator creates a validator requiring numeric columns; reason
// names what needs them (e.g. "metric sum")
func NewNumericValidator(table KindProvider, op, reason string, columns ...string) *NumericValidator {
	return &NumericValidator{
		table:   table,
		columns: columns,
		op:      op,
		reason:  reason,
	}
}

// Validate checks that every column is integer or float
func (v *NumericValidator) Validate() error {
	for _, column := range v.columns {
		kind, ok := v.table.KindOf(column)
		if !ok {
			return errors.NewMissingColumnsError(v.op, []string{column})
		}
		if !kind.IsNumeric() {
			message := fmt.Sprintf("%s requires a numeric column, got %s", v.reason, kind)
			return errors.NewValidationError(v.op, column, message)
		}
	}
	return nil
}

// UniqueNamesValidator rejects repeated names
type UniqueNamesValidator struct {
	names   []string
	op      string
	context string
}

// NewUniqueNamesValidator creates a validator for name uniqueness
func NewUniqueNamesValidator(names []string, op, context string) *UniqueNamesValidator {
	return &UniqueNamesValidator{names: names, op: op, context: context}
}

// Validate checks that no name appears twice
func (v *UniqueNamesValidator) Validate() error {
	seen := make(map[string]bool, len(v.names))
	for _, name := range v.names {
		if seen[name] {
			return errors.NewValidationError(v.op, name, fmt.Sprintf("duplicate %s", v.context))
		}
		seen[name] = true
	}
	return nil
}

// IndexValidator validates index bounds
type IndexValidator struct {
	index int
	max   int
	op    string
}

// NewIndexValidator creates a validator for index operations
func NewIndexValidator(index, maxIndex int, op string) *IndexValidator {
	return &IndexValidator{
		index: index,
		max:   maxIndex,
		op:    op,
	}
}

// Validate checks if index is within bounds
func (v *IndexValidator) Validate() error {
	if v.index < 0 || v.index >= v.max {
		message := fmt.Sprintf("index %d out of bounds [0, %d)", v.index, v.max)
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateColumns is a convenience function for column validation
func ValidateColumns(table ColumnProvider, op string, columns ...string) error {
	return NewColumnValidator(table, op, columns...).Validate()
}

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateNumeric is a convenience function for numeric kind validation
func ValidateNumeric(table KindProvider, op, reason string, columns ...string) error {
	return NewNumericValidator(table, op, reason, columns...).Validate()
}

// ValidateUniqueNames is a convenience function for name uniqueness
func ValidateUniqueNames(names []string, op, context string) error {
	return NewUniqueNamesValidator(names, op, context).Validate()
}

// ValidateIndex is a convenience function for index validation
func ValidateIndex(index, maxIndex int, op string) error {
	return NewIndexValidator(index, maxIndex, op).Validate()
}
