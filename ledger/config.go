package ledger

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/phuslu/log"
)

// DefaultLongTermThreshold is the holding period at which a gain becomes long-term.
const DefaultLongTermThreshold = 365 * 24 * time.Hour

// DefaultPrecision is the number of decimal places used when pro-rating fees.
const DefaultPrecision int32 = 8

// Boundary controls how a holding period exactly equal to the long-term
// threshold is classified.
type Boundary int

const (
	// Inclusive classifies held >= threshold as long-term.
	Inclusive Boundary = iota
	// Exclusive classifies only held > threshold as long-term.
	Exclusive
)

func (b Boundary) String() string {
	if b == Exclusive {
		return "exclusive"
	}
	return "inclusive"
}

// ParseBoundary parses "inclusive" or "exclusive" case-insensitively.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inclusive":
		return Inclusive, nil
	case "exclusive":
		return Exclusive, nil
	}
	return Inclusive, fmt.Errorf("invalid boundary %q, expected inclusive or exclusive", s)
}

// Config is the read-only context handed to an engine run.
type Config struct {
	// Method names the lot-selection strategy. Only "FIFO" is supported.
	Method string

	LongTermThreshold time.Duration
	Boundary          Boundary

	// Precision is the number of decimal places pro-rated fees are rounded to.
	Precision int32

	// Workers bounds how many assets ComputeAll runs at once.
	Workers int

	// Logger receives debug output from the engine. Nil discards it.
	Logger *log.Logger
}

// NewConfig creates a Config with the default FIFO settings.
func NewConfig() *Config {
	return &Config{
		Method:            MethodFIFO,
		LongTermThreshold: DefaultLongTermThreshold,
		Boundary:          Inclusive,
		Precision:         DefaultPrecision,
		Workers:           runtime.NumCPU(),
	}
}

// Validate checks that the configuration can drive an engine run.
func (c *Config) Validate() error {
	if _, err := StrategyFor(c.Method); err != nil {
		return err
	}
	if c.LongTermThreshold <= 0 {
		return fmt.Errorf("long-term threshold must be positive, got %s", c.LongTermThreshold)
	}
	if c.Precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", c.Precision)
	}
	if c.Boundary != Inclusive && c.Boundary != Exclusive {
		return fmt.Errorf("invalid boundary %d", c.Boundary)
	}
	return nil
}

// IsLongTerm classifies a holding period against the threshold.
func (c *Config) IsLongTerm(held time.Duration) bool {
	if c.Boundary == Exclusive {
		return held > c.LongTermThreshold
	}
	return held >= c.LongTermThreshold
}

var discardLogger = &log.Logger{
	Level:  log.PanicLevel,
	Writer: &log.IOWriter{Writer: io.Discard},
}

func (c *Config) logger() *log.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Config attached.
func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ConfigFromContext retrieves the Config from context.
// Returns a default Config if not found.
func ConfigFromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg
	}
	return NewConfig()
}
