package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/gains/archive"
	"github.com/robinvdvleuten/gains/report"
)

type HistoryCmd struct {
	Database string `help:"SQLite archive. Defaults to the configured archive." arg:"" optional:"" type:"path" placeholder:"DB"`
	RunID    string `help:"Show the records of this run." arg:"" optional:"" name:"run" placeholder:"RUN"`
	Format   string `help:"Output format (text, json)." enum:"text,json" default:"text" short:"f"`
}

func (cmd *HistoryCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "history", cmd.Database)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	path := cmd.Database
	if path == "" {
		path = env.config.Archive.Path
	}
	if path == "" {
		return errors.New("no archive given and none configured")
	}

	store, err := archive.Open(env.ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cmd.RunID == "" {
		runs, err := store.Runs(env.ctx)
		if err != nil {
			return err
		}
		if cmd.Format == "json" {
			return writeJSON(ctx.Stdout, runs)
		}
		if len(runs) == 0 {
			printInfof(ctx.Stdout, "No runs archived in %s", pathStyle.Render(path))
			return nil
		}
		writeRuns(ctx.Stdout, runs)
		return nil
	}

	records, err := store.Records(env.ctx, cmd.RunID)
	if errors.Is(err, archive.ErrRunNotFound) {
		printError(ctx.Stderr, err.Error())
		return NewCommandError(1)
	}
	if err != nil {
		return err
	}
	if cmd.Format == "json" {
		return writeJSON(ctx.Stdout, records)
	}
	writeRecords(ctx.Stdout, records)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeRuns(w io.Writer, runs []archive.Run) {
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.ID,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Source,
			strconv.Itoa(run.Assets),
			strconv.Itoa(run.Records),
			run.ShortTermGain.StringFixed(report.USDPlaces),
			run.LongTermGain.StringFixed(report.USDPlaces),
			run.TotalGain().StringFixed(report.USDPlaces),
		}
	}
	writeTable(w, []string{"RUN", "CREATED", "SOURCE", "ASSETS", "RECORDS", "SHORT-TERM", "LONG-TERM", "TOTAL"}, rows, 3, 4, 5, 6, 7)
}

func writeRecords(w io.Writer, records []archive.Record) {
	rows := make([][]string, len(records))
	for i, r := range records {
		term := "SHORT"
		if r.LongTerm {
			term = "LONG"
		}
		rows[i] = []string{
			r.Asset,
			r.DisposedAt.Format(report.DateFormat),
			r.DisposalType,
			strconv.Itoa(r.DisposalLine),
			r.AcquiredAt.Format(report.DateFormat),
			strconv.Itoa(r.AcquisitionLine),
			r.Quantity.StringFixed(report.QuantityPlaces),
			r.CostBasis.StringFixed(report.USDPlaces),
			r.Proceeds.StringFixed(report.USDPlaces),
			r.Gain.StringFixed(report.USDPlaces),
			term,
		}
	}
	writeTable(w, []string{"ASSET", "SOLD", "TYPE", "LINE", "ACQUIRED", "LOT LINE", "QUANTITY", "COST BASIS", "PROCEEDS", "GAIN", "TERM"}, rows, 3, 5, 6, 7, 8, 9)
}

// writeTable writes an aligned table with the given columns right aligned.
func writeTable(w io.Writer, titles []string, rows [][]string, right ...int) {
	widths := make([]int, len(titles))
	for i, title := range titles {
		widths[i] = runewidth.StringWidth(title)
	}
	for _, cells := range rows {
		for i, cell := range cells {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if slices.Contains(right, i) {
				parts[i] = runewidth.FillLeft(cell, widths[i])
			} else {
				parts[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(titles)
	for _, cells := range rows {
		line(cells)
	}
}
