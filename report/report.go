// Package report renders computed gain/loss batches as aligned text tables
// or as JSON documents.
//
// Quantities are printed with 8 decimal places and USD amounts with 4, the
// same precision the transaction records use in their string form.
//
// Example usage:
//
//	r := report.New(report.WithStyles(output.NewStyles(os.Stdout)))
//	if err := r.Text(os.Stdout, batch); err != nil {
//	    return err
//	}
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/output"
)

const (
	// QuantityPlaces is the number of decimal places used for crypto quantities.
	QuantityPlaces = 8
	// USDPlaces is the number of decimal places used for USD amounts.
	USDPlaces = 4

	// DateFormat is the layout of the date columns.
	DateFormat = "2006-01-02"
)

// Format selects the report renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown report format %q, expected text or json", s)
}

// Reporter renders batches. Configure it with functional options passed to New.
type Reporter struct {
	// Styles colors the text report. Nil renders plain text.
	Styles *output.Styles

	// Assets limits the report to the listed assets. Empty reports all.
	Assets []string

	// SummaryOnly omits the per-record rows.
	SummaryOnly bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithStyles colors the text report.
func WithStyles(styles *output.Styles) Option {
	return func(r *Reporter) {
		r.Styles = styles
	}
}

// WithAssets limits the report to the given assets.
func WithAssets(assets ...string) Option {
	return func(r *Reporter) {
		r.Assets = assets
	}
}

// WithSummaryOnly omits the per-record rows from the text report.
func WithSummaryOnly() Option {
	return func(r *Reporter) {
		r.SummaryOnly = true
	}
}

// New creates a Reporter with the given options.
func New(opts ...Option) *Reporter {
	r := &Reporter{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// sets returns the sets of batch selected for reporting, sorted by asset.
func (r *Reporter) sets(batch *ledger.Batch) []*ledger.GainLossSet {
	if batch == nil {
		return nil
	}
	if len(r.Assets) == 0 {
		return batch.Sets()
	}
	var out []*ledger.GainLossSet
	for _, s := range batch.Sets() {
		for _, asset := range r.Assets {
			if s.Asset() == asset {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func total(sets []*ledger.GainLossSet) ledger.Summary {
	sum := ledger.Summary{
		Quantity:      decimal.Zero,
		CostBasis:     decimal.Zero,
		Proceeds:      decimal.Zero,
		ShortTermGain: decimal.Zero,
		LongTermGain:  decimal.Zero,
	}
	for i, s := range sets {
		if i == 0 {
			sum = s.Summary()
			continue
		}
		sum = sum.Add(s.Summary())
	}
	return sum
}

func usd(d decimal.Decimal) string {
	return d.StringFixed(USDPlaces)
}

func quantity(d decimal.Decimal) string {
	return d.StringFixed(QuantityPlaces)
}
