package cli

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/alecthomas/kong"
	"github.com/alecthomas/repr"

	gainserrors "github.com/robinvdvleuten/gains/errors"
)

// DumpCmd prints the per-asset inputs exactly as the engine receives them.
type DumpCmd struct {
	File  string   `help:"CSV ledger file." arg:"" type:"existingfile"`
	Asset []string `help:"Only dump these assets." short:"a" placeholder:"ASSET"`
	Sort  bool     `help:"Sort each asset's records by timestamp and line."`
}

func (cmd *DumpCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "dump", cmd.File)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	source, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}

	result, err := env.loader(cmd.Sort).Parse(env.ctx, cmd.File, bytes.NewReader(source))
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(source).RenderAll(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("%d invalid row(s)", len(gainserrors.Flatten(err))))
		return NewCommandError(1)
	}

	printer := repr.New(ctx.Stdout, repr.Indent("  "), repr.OmitEmpty(true))
	for _, in := range result.Inputs {
		if len(cmd.Asset) > 0 && !slices.Contains(cmd.Asset, in.Asset) {
			continue
		}
		printer.Println(in)
	}
	return nil
}
