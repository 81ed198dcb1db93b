package report

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/tx"
)

// Document is the JSON form of a batch. Amounts are fixed-point strings so
// that no precision is lost in transit.
type Document struct {
	Summary SummaryReport `json:"summary"`
	Assets  []AssetReport `json:"assets"`
	Errors  []ErrorReport `json:"errors,omitempty"`
}

// AssetReport is the JSON form of one gain/loss set.
type AssetReport struct {
	Asset   string         `json:"asset"`
	Summary SummaryReport  `json:"summary"`
	Records []RecordReport `json:"records"`
}

// SummaryReport is the JSON form of ledger.Summary.
type SummaryReport struct {
	Records       int    `json:"records"`
	Disposals     int    `json:"disposals"`
	Quantity      string `json:"quantity"`
	CostBasis     string `json:"cost_basis"`
	Proceeds      string `json:"proceeds"`
	ShortTermGain string `json:"short_term_gain"`
	LongTermGain  string `json:"long_term_gain"`
	TotalGain     string `json:"total_gain"`
}

// RecordReport is the JSON form of ledger.GainLoss.
type RecordReport struct {
	Lot             int       `json:"lot"`
	DisposalLine    int       `json:"disposal_line"`
	DisposalType    tx.Kind   `json:"disposal_type"`
	DisposedAt      time.Time `json:"disposed_at"`
	AcquisitionLine int       `json:"acquisition_line"`
	AcquisitionType tx.Kind   `json:"acquisition_type"`
	AcquiredAt      time.Time `json:"acquired_at"`
	Exchange        string    `json:"exchange,omitempty"`
	Holder          string    `json:"holder,omitempty"`
	Quantity        string    `json:"quantity"`
	AcquisitionFee  string    `json:"acquisition_fee"`
	DisposalFee     string    `json:"disposal_fee"`
	CostBasis       string    `json:"cost_basis"`
	Proceeds        string    `json:"proceeds"`
	Gain            string    `json:"gain"`
	HeldDays        int       `json:"held_days"`
	Term            string    `json:"term"`
}

// ErrorReport is the JSON form of an asset failure.
type ErrorReport struct {
	Asset   string `json:"asset,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Build creates the document for batch. err, when non-nil, is flattened
// into the document's error list.
func (r *Reporter) Build(batch *ledger.Batch, err error) Document {
	sets := r.sets(batch)

	doc := Document{
		Summary: summaryReport(total(sets)),
		Assets:  make([]AssetReport, 0, len(sets)),
		Errors:  ErrorReports(err),
	}
	for _, set := range sets {
		records := set.Records()
		asset := AssetReport{
			Asset:   set.Asset(),
			Summary: summaryReport(set.Summary()),
			Records: make([]RecordReport, len(records)),
		}
		for i := range records {
			asset.Records[i] = recordReport(&records[i])
		}
		doc.Assets = append(doc.Assets, asset)
	}
	return doc
}

// JSON writes the indented document for batch and err.
func (r *Reporter) JSON(w io.Writer, batch *ledger.Batch, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r.Build(batch, err))
}

// ErrorReports flattens err into one entry per underlying failure.
func ErrorReports(err error) []ErrorReport {
	if err == nil {
		return nil
	}

	var batchErrs *ledger.BatchErrors
	if errors.As(err, &batchErrs) {
		out := make([]ErrorReport, 0, len(batchErrs.Errors))
		for _, e := range batchErrs.Errors {
			out = append(out, errorReport(e))
		}
		return out
	}

	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var out []ErrorReport
		for _, e := range multi.Unwrap() {
			out = append(out, errorReport(e))
		}
		return out
	}

	return []ErrorReport{errorReport(err)}
}

func errorReport(err error) ErrorReport {
	report := ErrorReport{Message: err.Error()}

	var withAsset interface{ GetAsset() string }
	if errors.As(err, &withAsset) {
		report.Asset = withAsset.GetAsset()
	}
	var withLine interface{ GetLine() int }
	if errors.As(err, &withLine) {
		report.Line = withLine.GetLine()
	}
	return report
}

func summaryReport(s ledger.Summary) SummaryReport {
	return SummaryReport{
		Records:       s.Records,
		Disposals:     s.Disposals,
		Quantity:      quantity(s.Quantity),
		CostBasis:     usd(s.CostBasis),
		Proceeds:      usd(s.Proceeds),
		ShortTermGain: usd(s.ShortTermGain),
		LongTermGain:  usd(s.LongTermGain),
		TotalGain:     usd(s.TotalGain()),
	}
}

func recordReport(g *ledger.GainLoss) RecordReport {
	return RecordReport{
		Lot:             int(g.Lot),
		DisposalLine:    g.Disposal.Line,
		DisposalType:    g.Disposal.Kind,
		DisposedAt:      g.Disposal.Timestamp,
		AcquisitionLine: g.Acquisition.Line,
		AcquisitionType: g.Acquisition.Kind,
		AcquiredAt:      g.Acquisition.Timestamp,
		Exchange:        g.Disposal.Exchange,
		Holder:          g.Disposal.Holder,
		Quantity:        quantity(g.Quantity),
		AcquisitionFee:  usd(g.AcquisitionFee),
		DisposalFee:     usd(g.DisposalFee),
		CostBasis:       usd(g.CostBasis),
		Proceeds:        usd(g.Proceeds),
		Gain:            usd(g.Gain),
		HeldDays:        int(g.Held / (24 * time.Hour)),
		Term:            g.Term(),
	}
}
