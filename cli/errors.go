package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	gainserrors "github.com/robinvdvleuten/gains/errors"
)

var (
	errCaretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// ErrorRenderer renders errors with terminal styling and context: the
// offending record for engine errors, the surrounding input lines for row
// errors.
type ErrorRenderer struct {
	formatter *gainserrors.TextFormatter
}

// NewErrorRenderer creates a renderer with source content for context.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	var opts []gainserrors.TextFormatterOption
	if source != nil {
		opts = append(opts, gainserrors.WithSource(source))
	}
	return &ErrorRenderer{formatter: gainserrors.NewTextFormatter(opts...)}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	plain := strings.TrimRight(r.formatter.Format(err), "\n")

	message, context, found := strings.Cut(plain, "\n\n")
	if !found {
		return errorStyle.Render(plain)
	}

	var buf strings.Builder
	buf.WriteString(errorStyle.Render(message))
	buf.WriteString("\n\n")

	for _, line := range strings.Split(context, "\n") {
		if rest, ok := strings.CutPrefix(line, " > "); ok {
			buf.WriteString(errCaretStyle.Render(" > "))
			buf.WriteString(rest)
		} else {
			buf.WriteString(errContextStyle.Render(line))
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// RenderAll formats every leaf error of err, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(err error) string {
	errs := gainserrors.Flatten(err)
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, e := range errs {
		buf.WriteString(strings.TrimRight(r.Render(e), "\n"))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}
