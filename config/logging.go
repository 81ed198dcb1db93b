package config

import (
	"io"
	"strings"

	"github.com/phuslu/log"
)

// ParseLevel maps a level name to a log level. Unknown names fall back to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLogger creates a console logger writing to w.
func NewLogger(level string, w io.Writer, color bool) *log.Logger {
	return &log.Logger{
		Level:      ParseLevel(level),
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    color,
			EndWithMessage: true,
		},
	}
}

// NewLogger creates a console logger at the configured level.
func (f *File) NewLogger(w io.Writer, color bool) *log.Logger {
	return NewLogger(f.Logging.Level, w, color)
}
