// Package pipeline runs declarative table-cleaning jobs: inputs are loaded,
// steps (aggregate, profile, duplicates, join, compare, uniques, sort) run in
// order, and every step result is written to one workbook sheet.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Step operations
const (
	OpAggregate  = "aggregate"
	OpProfile    = "profile"
	OpDuplicates = "duplicates"
	OpJoin       = "join"
	OpCompare    = "compare"
	OpUniques    = "uniques"
	OpSort       = "sort"
)

// Job is a pipeline definition, usually loaded from YAML
type Job struct {
	Name   string  `yaml:"name"`
	Inputs []Input `yaml:"inputs" validate:"required,min=1,dive"`
	Steps  []Step  `yaml:"steps" validate:"required,min=1,dive"`
	Output Output  `yaml:"output"`
}

// Input is a named table loaded from a file
type Input struct {
	Name  string `yaml:"name" validate:"required"`
	Path  string `yaml:"path" validate:"required"`
	Sheet string `yaml:"sheet"` // workbook sheet; empty reads the first
	Query string `yaml:"query"` // SQL query for SQLite inputs
}

// ColumnMetrics selects metrics for one column of a per-column aggregation
type ColumnMetrics struct {
	Column  string   `yaml:"column" validate:"required"`
	Metrics []string `yaml:"metrics" validate:"required,min=1"`
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Name string `yaml:"name" validate:"required"`
	Op   string `yaml:"op" validate:"required,oneof=aggregate profile duplicates join compare uniques sort"`

	// Input names the table for single-table operations
	Input string `yaml:"input"`

	// aggregate
	Keys          []string        `yaml:"keys" validate:"required_if=Op aggregate"`
	MetricColumns []string        `yaml:"metric_columns"`
	Metrics       []string        `yaml:"metrics"`
	PerColumn     []ColumnMetrics `yaml:"per_column" validate:"omitempty,dive"`
	IncludeTotal  bool            `yaml:"include_total"`
	TotalLabel    string          `yaml:"total_label"`
	TotalFiller   string          `yaml:"total_filler"`

	// aggregate and sort
	OrderBy   []string `yaml:"order_by" validate:"required_if=Op sort"`
	Ascending []bool   `yaml:"ascending"`

	// join and compare
	Left  string `yaml:"left"`
	Right string `yaml:"right"`

	// join
	LeftKey      string   `yaml:"left_key" validate:"required_if=Op join"`
	RightKey     string   `yaml:"right_key" validate:"required_if=Op join"`
	LeftColumns  []string `yaml:"left_columns"`
	RightColumns []string `yaml:"right_columns"`
	How          string   `yaml:"how"`

	// compare
	LeftColumn     string `yaml:"left_column" validate:"required_if=Op compare"`
	RightColumn    string `yaml:"right_column" validate:"required_if=Op compare"`
	ExcludeMatches bool   `yaml:"exclude_matches"`
}

// Output is where step results are written
type Output struct {
	Path string `yaml:"path" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseJob decodes a YAML job and validates it. Unknown fields are rejected.
func ParseJob(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("parsing job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// LoadJob reads and validates the YAML job at path
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file %s: %w", path, err)
	}
	return ParseJob(data)
}

// Validate checks the job's structure and that every step refers to an
// input or an earlier step
func (j *Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating job: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("invalid job: %s", strings.Join(msgs, "; "))
	}

	known := make(map[string]bool, len(j.Inputs)+len(j.Steps))
	for _, in := range j.Inputs {
		if known[in.Name] {
			return fmt.Errorf("invalid job: duplicate table name %q", in.Name)
		}
		known[in.Name] = true
	}

	for _, step := range j.Steps {
		for _, ref := range step.references() {
			if ref.name == "" {
				return fmt.Errorf("invalid job: step %q (%s) requires %s", step.Name, step.Op, ref.field)
			}
			if !known[ref.name] {
				return fmt.Errorf("invalid job: step %q refers to unknown table %q", step.Name, ref.name)
			}
		}
		if step.Op == OpAggregate && len(step.Metrics) == 0 && len(step.PerColumn) == 0 {
			return fmt.Errorf("invalid job: step %q (aggregate) requires metrics or per_column", step.Name)
		}
		if known[step.Name] {
			return fmt.Errorf("invalid job: duplicate table name %q", step.Name)
		}
		known[step.Name] = true
	}
	return nil
}

type reference struct {
	field string
	name  string
}

// references lists the tables a step reads, with the field naming each
func (s Step) references() []reference {
	if slices.Contains([]string{OpJoin, OpCompare}, s.Op) {
		return []reference{{"left", s.Left}, {"right", s.Right}}
	}
	return []reference{{"input", s.Input}}
}

func fieldMessage(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", path)
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
