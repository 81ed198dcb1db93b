// Package errors provides error formatting for input and engine failures.
// It separates error formatting from domain logic, allowing errors to be
// rendered in multiple formats (text, JSON) for different consumers (CLI, web API).
//
// The package defines a Formatter interface and provides two implementations:
//   - TextFormatter: Formats errors for command-line output, followed by the
//     offending record or the surrounding input lines
//   - JSONFormatter: Formats errors as structured JSON for APIs
//
// Domain-specific error types remain in their respective packages (ledger,
// input, tx); this package only relies on their accessor methods.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Accessors recognised on domain errors.
type (
	withLine     interface{ GetLine() int }
	withFilename interface{ GetFilename() string }
	withAsset    interface{ GetAsset() string }
	withRecord   interface{ GetRecord() fmt.Stringer }
	withTime     interface{ GetTimestamp() time.Time }
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// Flatten expands error collections (anything with Unwrap() []error, such as
// ledger.BatchErrors or input.Errors) into their leaf errors, in order.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range multi.Unwrap() {
			out = append(out, Flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// TextFormatter formats errors for command-line output.
type TextFormatter struct {
	sourceContent []byte // Optional input file content for row error context
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithSource sets the input file content used to show lines around row errors.
func WithSource(source []byte) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.sourceContent = source
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error. Errors carrying a record are followed by the
// record; errors carrying only a line are followed by the source lines around it
// when source content is available.
func (tf *TextFormatter) Format(err error) string {
	var rec withRecord
	if stderrors.As(err, &rec) {
		if record := rec.GetRecord(); record != nil {
			return tf.formatWithRecord(err.Error(), record)
		}
	}

	var line withLine
	if tf.sourceContent != nil && stderrors.As(err, &line) && line.GetLine() > 0 {
		return tf.formatWithSourceContext(line.GetLine(), err.Error(), tf.sourceContent)
	}

	// Fallback to standard error formatting
	return err.Error()
}

// FormatAll formats multiple errors, separating them with blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(strings.TrimRight(tf.Format(err), "\n"))

		// Add blank line between errors (but not after the last one)
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

// formatWithRecord writes the message followed by the indented record.
func (tf *TextFormatter) formatWithRecord(message string, record fmt.Stringer) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	for _, line := range strings.Split(record.String(), "\n") {
		if line == "" {
			continue
		}
		buf.WriteString("   ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return buf.String()
}

// formatWithSourceContext shows the message followed by the input lines
// around line, marking the offending one.
func (tf *TextFormatter) formatWithSourceContext(line int, message string, sourceContent []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	// 0-based range: two lines before, one after
	startLine := max(line-3, 0)
	endLine := min(line, len(sourceLines)-1)

	for i := startLine; i <= endLine; i++ {
		if i == line-1 {
			buf.WriteString(" > ")
		} else {
			buf.WriteString("   ")
		}
		buf.WriteString(sourceLines[i])
		buf.WriteByte('\n')
	}

	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON represents a position in the input file.
type PositionJSON struct {
	Filename string `json:"filename,omitempty"`
	Line     int    `json:"line"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	return encodeJSON(jf.toJSON(err), "")
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	return encodeJSON(jf.FormatAllToSlice(errs), "  ")
}

// encodeJSON marshals v without HTML escaping so messages stay readable.
func encodeJSON(v any, indent string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	_ = enc.Encode(v)
	return strings.TrimSuffix(buf.String(), "\n")
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.toJSON(err))
	}
	return result
}

// toJSON converts an error to ErrorJSON.
func (jf *JSONFormatter) toJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    typeName(err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	var line withLine
	if stderrors.As(err, &line) && line.GetLine() > 0 {
		errJSON.Position = &PositionJSON{Line: line.GetLine()}
		var file withFilename
		if stderrors.As(err, &file) {
			errJSON.Position.Filename = file.GetFilename()
		}
	}

	var asset withAsset
	if stderrors.As(err, &asset) {
		errJSON.Details["asset"] = asset.GetAsset()
	}

	var ts withTime
	if stderrors.As(err, &ts) && !ts.GetTimestamp().IsZero() {
		errJSON.Details["timestamp"] = ts.GetTimestamp().Format(time.RFC3339Nano)
	}

	var rec withRecord
	if stderrors.As(err, &rec) {
		if record := rec.GetRecord(); record != nil {
			errJSON.Details["record"] = record.String()
		}
	}

	if len(errJSON.Details) == 0 {
		errJSON.Details = nil
	}

	return errJSON
}

// typeName returns the type of the innermost single-wrapped error.
func typeName(err error) string {
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
