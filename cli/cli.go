// Package cli implements the gains command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/phuslu/log"
	"golang.org/x/term"

	"github.com/robinvdvleuten/gains/config"
	"github.com/robinvdvleuten/gains/input"
	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		successStyle.Render(successSymbol),
		message,
	)
}

func printError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		errorStyle.Render(errorSymbol),
		errorStyle.Render(message),
	)
}

func printInfof(w io.Writer, format string, args ...any) {
	formatted := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(w, "%s %s\n",
		infoStyle.Render(infoSymbol),
		formatted,
	)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runEnv holds what every command needs before it starts working.
type runEnv struct {
	ctx    context.Context
	config *config.File
	ledger *ledger.Config
	logger *log.Logger

	once      sync.Once
	collector telemetry.Collector
	timer     telemetry.Timer
	stderr    io.Writer
}

// setup loads the configuration, builds the logger and, when requested,
// starts a telemetry timer named after the command and its file.
func (g *Globals) setup(ctx *kong.Context, command, file string) (*runEnv, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}

	logger := cfg.NewLogger(ctx.Stderr, isTerminal(ctx.Stderr))

	ledgerCfg, err := cfg.Ledger()
	if err != nil {
		return nil, err
	}
	ledgerCfg.Logger = logger

	env := &runEnv{
		ctx:    ledgerCfg.WithContext(context.Background()),
		config: cfg,
		ledger: ledgerCfg,
		logger: logger,
		stderr: ctx.Stderr,
	}

	if g.Telemetry {
		env.collector = telemetry.NewTimingCollector()
		env.ctx = telemetry.WithCollector(env.ctx, env.collector)

		name := command
		if file != "" {
			name = fmt.Sprintf("%s %s", command, filepath.Base(file))
		}
		env.timer = env.collector.Start(name)
		env.ctx = telemetry.WithRootTimer(env.ctx, env.timer)
	}

	return env, nil
}

// reportTelemetry prints the timing tree once, if telemetry is enabled.
func (e *runEnv) reportTelemetry() {
	e.once.Do(func() {
		if e.collector != nil {
			e.timer.End()
			_, _ = fmt.Fprintln(e.stderr)
			e.collector.Report(e.stderr)
		}
	})
}

// loader builds an input loader restricted to the configured known values.
func (e *runEnv) loader(sorted bool) *input.Loader {
	opts := []input.Option{
		input.WithAssets(e.config.Assets...),
		input.WithExchanges(e.config.Exchanges...),
		input.WithHolders(e.config.Holders...),
	}
	if sorted {
		opts = append(opts, input.WithSort())
	}
	return input.New(opts...)
}
