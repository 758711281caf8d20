// Package errors provides standardized error types for table operations.
// TableError carries the operation, the column involved and a sentinel
// cause, so callers can branch with errors.Is(err, errors.ErrMissingColumn).
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Sentinel causes. Every TableError wraps exactly one of them.
var (
	ErrInputType     = stderrors.New("input type error")
	ErrMissingColumn = stderrors.New("missing column")
	ErrMissingSheet  = stderrors.New("missing sheet")
	ErrEmptyInput    = stderrors.New("empty input")
	ErrInvalidInput  = stderrors.New("invalid input")
	ErrInternal      = stderrors.New("internal error")
)

// TableError represents standardized errors across all table operations
type TableError struct {
	Op      string // Operation name (e.g., "Aggregate", "Join")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *TableError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s operation failed on column '%s': %s", e.Op, e.Column, e.Message)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *TableError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *TableError) Is(target error) bool {
	if te, ok := target.(*TableError); ok {
		return e.Op == te.Op && e.Column == te.Column && e.Message == te.Message
	}
	return false
}

// NewInputTypeError reports an argument that is not a usable table
func NewInputTypeError(op, message string) *TableError {
	return &TableError{
		Op:      op,
		Message: message,
		Cause:   ErrInputType,
	}
}

// NewMissingColumnsError reports every name in missing that the table lacks.
// The Column field is set when exactly one column is missing.
func NewMissingColumnsError(op string, missing []string) *TableError {
	err := &TableError{
		Op:      op,
		Message: fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")),
		Cause:   ErrMissingColumn,
	}
	if len(missing) == 1 {
		err.Column = missing[0]
		err.Message = "column does not exist"
	}
	return err
}

// NewMissingSheetError reports a sheet that is not in the workbook
func NewMissingSheetError(op, sheet string, available []string) *TableError {
	return &TableError{
		Op:      op,
		Message: fmt.Sprintf("sheet %q not found; available sheets: %s", sheet, strings.Join(available, ", ")),
		Cause:   ErrMissingSheet,
	}
}

// NewEmptyInputError reports an empty collection where at least one item is required
func NewEmptyInputError(op, message string) *TableError {
	return &TableError{
		Op:      op,
		Message: message,
		Cause:   ErrEmptyInput,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *TableError {
	return &TableError{
		Op:      op,
		Message: message,
		Cause:   ErrInvalidInput,
	}
}

// NewValidationError creates an invalid-input error tied to a column
func NewValidationError(op, column, message string) *TableError {
	return &TableError{
		Op:      op,
		Column:  column,
		Message: message,
		Cause:   ErrInvalidInput,
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *TableError {
	return &TableError{
		Op:      op,
		Message: fmt.Sprintf("internal error occurred: %v", cause),
		Cause:   fmt.Errorf("%w: %w", ErrInternal, cause),
	}
}
