// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/muesli/termenv"
	"github.com/shopspring/decimal"
)

// Styles provides styled output helpers for the CLI and text reports.
type Styles struct {
	output *termenv.Output
}

// NewStyles creates a new Styles instance for the given writer. Color is
// detected from the writer; non-terminals get plain text.
func NewStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w),
	}
}

// NewPlainStyles creates a Styles instance that never emits escape codes.
func NewPlainStyles(w io.Writer) *Styles {
	return &Styles{
		output: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii)),
	}
}

// Success returns a styled success string (green + bold).
func (s *Styles) Success(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("2")).
		Bold().
		String()
}

// Error returns a styled error string (red + bold).
func (s *Styles) Error(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("1")).
		Bold().
		String()
}

// FilePath returns a styled file path (cyan).
func (s *Styles) FilePath(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("6")).
		String()
}

// Asset returns a styled asset symbol (yellow + bold).
func (s *Styles) Asset(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		Bold().
		String()
}

// Gain colors text by the sign of amount: green for gains, red for losses,
// unstyled for zero.
func (s *Styles) Gain(text string, amount decimal.Decimal) string {
	switch amount.Sign() {
	case 1:
		return s.output.String(text).Foreground(s.output.Color("2")).String()
	case -1:
		return s.output.String(text).Foreground(s.output.Color("1")).String()
	}
	return text
}

// Term returns the holding term label, long-term in magenta.
func (s *Styles) Term(longTerm bool) string {
	if longTerm {
		return s.output.String("LONG").
			Foreground(s.output.Color("5")).
			String()
	}
	return s.output.String("SHORT").String()
}

// Keyword returns a styled keyword (bold).
func (s *Styles) Keyword(text string) string {
	return s.output.String(text).
		Bold().
		String()
}

// Dim returns dimmed text (for secondary information).
func (s *Styles) Dim(text string) string {
	return s.output.String(text).
		Faint().
		String()
}

// Warning returns a styled warning (yellow + bold).
func (s *Styles) Warning(text string) string {
	return s.output.String(text).
		Foreground(s.output.Color("3")).
		Bold().
		String()
}

// Output returns the underlying termenv Output for advanced usage.
func (s *Styles) Output() *termenv.Output {
	return s.output
}
