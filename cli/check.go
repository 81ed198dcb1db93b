package cli

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	gainserrors "github.com/robinvdvleuten/gains/errors"
	"github.com/robinvdvleuten/gains/ledger"
)

type CheckCmd struct {
	File string `help:"CSV ledger file." arg:"" type:"existingfile"`
	Sort bool   `help:"Sort each asset's records by timestamp and line instead of rejecting unsorted input."`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "check", cmd.File)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	sourceContent, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}

	result, err := env.loader(cmd.Sort).Parse(env.ctx, cmd.File, bytes.NewReader(sourceContent))
	if err != nil {
		renderer := NewErrorRenderer(sourceContent)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(err))

		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d invalid row(s)", len(gainserrors.Flatten(err))))
		return NewCommandError(1)
	}

	batch, err := ledger.ComputeAll(env.ctx, env.ledger, result.Inputs)
	var batchErrs *ledger.BatchErrors
	if err != nil && !stdErrors.As(err, &batchErrs) {
		return err
	}

	for _, set := range batch.Sets() {
		sum := set.Summary()
		printSuccess(ctx.Stdout, fmt.Sprintf("%s: %d disposal(s), %d record(s)", set.Asset(), sum.Disposals, sum.Records))
	}

	if batchErrs != nil {
		renderer := NewErrorRenderer(sourceContent)
		for _, e := range batchErrs.Errors {
			var assetErr *ledger.AssetError
			if stdErrors.As(e, &assetErr) {
				printError(ctx.Stdout, fmt.Sprintf("%s: failed", assetErr.Asset))
			}
		}

		_, _ = fmt.Fprintln(ctx.Stderr)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(batchErrs))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d asset(s) failed", len(batchErrs.Errors)))
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, "Check passed")

	return nil
}
