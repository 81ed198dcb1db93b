package input

import (
	"fmt"
)

// RowError describes a row of the input file that could not be turned into a
// transaction record.
type RowError struct {
	Filename   string
	Line       int
	Field      string // column name, empty for row-level errors
	Message    string
	Underlying error
}

func (e *RowError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Filename, e.Line)
	if e.Filename == "" {
		location = fmt.Sprintf("line %d", e.Line)
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", location, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", location, e.Field, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Underlying
}

func (e *RowError) GetLine() int {
	return e.Line
}

func (e *RowError) GetFilename() string {
	return e.Filename
}

// Errors collects every RowError found while reading a file.
type Errors struct {
	Errors []error
}

func (e *Errors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d invalid rows", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping.
func (e *Errors) Unwrap() []error {
	return e.Errors
}
