package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/gains/archive"
	gainserrors "github.com/robinvdvleuten/gains/errors"
	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/output"
	"github.com/robinvdvleuten/gains/report"
)

// ReportFlags are shared by the commands that render a report.
type ReportFlags struct {
	Format  string   `help:"Output format (text, json)." enum:"text,json" default:"text" short:"f"`
	Asset   []string `help:"Only report these assets." short:"a" placeholder:"ASSET"`
	Summary bool     `help:"Only print the totals."`
	Sort    bool     `help:"Sort each asset's records by timestamp and line instead of rejecting unsorted input."`
}

type ComputeCmd struct {
	File string `help:"CSV ledger file." arg:"" type:"existingfile"`
	ReportFlags
	Archive string `help:"Also store the result in this SQLite archive. Defaults to the configured archive." type:"path" placeholder:"DB"`
}

func (cmd *ComputeCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "compute", cmd.File)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	batch, result := compute(env, ctx.Stdout, ctx.Stderr, cmd.File, cmd.ReportFlags)
	if result.ExitCode != 0 {
		return result.AsError()
	}

	path := cmd.Archive
	if path == "" {
		path = env.config.Archive.Path
	}
	if path == "" {
		return nil
	}

	store, err := archive.Open(env.ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.Save(env.ctx, cmd.File, batch)
	if err != nil {
		return err
	}
	printInfof(ctx.Stderr, "Archived run %s in %s", run.ID, pathStyle.Render(path))

	return nil
}

// compute loads file, runs every asset and writes the report to stdout.
// Failures that were already printed come back as a Failure carrying a
// *CommandError; assets that succeeded are still reported and returned.
func compute(env *runEnv, stdout, stderr io.Writer, file string, flags ReportFlags) (*ledger.Batch, CommandResult) {
	format, err := report.ParseFormat(flags.Format)
	if err != nil {
		return nil, Failure(err)
	}

	source, err := os.ReadFile(file)
	if err != nil {
		return nil, Failure(fmt.Errorf("failed to read %s: %w", file, err))
	}

	result, err := env.loader(flags.Sort).Parse(env.ctx, file, bytes.NewReader(source))
	if err != nil {
		n := len(gainserrors.Flatten(err))
		if format == report.FormatJSON {
			_, _ = fmt.Fprintln(stdout, gainserrors.NewJSONFormatter().FormatAll(gainserrors.Flatten(err)))
		} else {
			_, _ = fmt.Fprintln(stderr, NewErrorRenderer(source).RenderAll(err))
			_, _ = fmt.Fprintln(stderr)
		}
		printError(stderr, fmt.Sprintf("%d invalid row(s)", n))
		return nil, Failure(NewCommandError(1))
	}

	env.logger.Debug().Str("file", file).Int("rows", result.Rows).Int("assets", len(result.Inputs)).Msg("ledger loaded")

	batch, err := ledger.ComputeAll(env.ctx, env.ledger, result.Inputs)
	var batchErrs *ledger.BatchErrors
	if err != nil && !errors.As(err, &batchErrs) {
		return nil, Failure(err)
	}

	opts := []report.Option{report.WithAssets(flags.Asset...)}
	if flags.Summary {
		opts = append(opts, report.WithSummaryOnly())
	}

	switch format {
	case report.FormatJSON:
		if err := report.New(opts...).JSON(stdout, batch, err); err != nil {
			return batch, Failure(err)
		}
	default:
		opts = append(opts, report.WithStyles(output.NewStyles(stdout)))
		if err := report.New(opts...).Text(stdout, batch); err != nil {
			return batch, Failure(err)
		}
	}

	sum := batch.Summary()
	env.logger.Debug().
		Str("file", file).
		Int("assets", len(batch.Sets())).
		Int("records", sum.Records).
		Str("total_gain", sum.TotalGain().StringFixed(report.USDPlaces)).
		Msg("gains computed")

	if batchErrs != nil {
		if format != report.FormatJSON {
			_, _ = fmt.Fprintln(stderr)
			_, _ = fmt.Fprintln(stderr, NewErrorRenderer(source).RenderAll(batchErrs))
			_, _ = fmt.Fprintln(stderr)
		}
		printError(stderr, fmt.Sprintf("%d asset(s) failed", len(batchErrs.Errors)))
		return batch, Failure(NewCommandError(1))
	}

	return batch, Success()
}
