package ledger

import (
	"errors"
	"strings"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

var errSetFinalized = errors.New("gain/loss set is finalized")

// GainLossSet is the ordered output of one engine run for one asset.
// Records are kept in disposal order, then in lot consumption order within a
// disposal. Once finalized the set is read-only.
type GainLossSet struct {
	asset   string
	records []GainLoss

	finalized bool
	summary   Summary
}

// Summary aggregates a GainLossSet.
type Summary struct {
	Asset     string
	Records   int
	Disposals int

	Quantity      decimal.Decimal
	CostBasis     decimal.Decimal
	Proceeds      decimal.Decimal
	ShortTermGain decimal.Decimal
	LongTermGain  decimal.Decimal
}

// TotalGain returns the sum of short and long term gains.
func (s Summary) TotalGain() decimal.Decimal {
	return s.ShortTermGain.Add(s.LongTermGain)
}

// Add combines two summaries. The asset is kept only if both agree.
func (s Summary) Add(other Summary) Summary {
	asset := s.Asset
	if asset != other.Asset {
		asset = ""
	}
	return Summary{
		Asset:         asset,
		Records:       s.Records + other.Records,
		Disposals:     s.Disposals + other.Disposals,
		Quantity:      s.Quantity.Add(other.Quantity),
		CostBasis:     s.CostBasis.Add(other.CostBasis),
		Proceeds:      s.Proceeds.Add(other.Proceeds),
		ShortTermGain: s.ShortTermGain.Add(other.ShortTermGain),
		LongTermGain:  s.LongTermGain.Add(other.LongTermGain),
	}
}

func newGainLossSet(asset string) *GainLossSet {
	return &GainLossSet{asset: asset}
}

func (s *GainLossSet) add(g GainLoss) error {
	if s.finalized {
		return errSetFinalized
	}
	if g.Asset != s.asset {
		return &AssetMismatchError{Asset: s.asset, Header: g.Disposal.Header}
	}
	s.records = append(s.records, g)
	return nil
}

// finalize checks quantity conservation against the disposals that were
// matched and the lots they consumed, computes the aggregates and freezes the set.
func (s *GainLossSet) finalize(disposals []*tx.Disposal, lots []*Lot) error {
	if s.finalized {
		return errSetFinalized
	}

	declared := make(map[*tx.Disposal]bool, len(disposals))
	for _, d := range disposals {
		declared[d] = true
	}

	perDisposal := make(map[*tx.Disposal]decimal.Decimal, len(disposals))
	perLot := make(map[LotID]decimal.Decimal, len(lots))
	for i := range s.records {
		g := &s.records[i]
		if !declared[g.Disposal] {
			return &ConservationError{Asset: s.asset, Line: g.Disposal.Line, Expected: decimal.Zero, Matched: g.Quantity, Record: g.Disposal}
		}
		perDisposal[g.Disposal] = perDisposal[g.Disposal].Add(g.Quantity)
		perLot[g.Lot] = perLot[g.Lot].Add(g.Quantity)
	}

	for _, d := range disposals {
		matched := perDisposal[d]
		if !matched.Equal(d.Quantity) {
			return &ConservationError{Asset: s.asset, Line: d.Line, Expected: d.Quantity, Matched: matched, Record: d}
		}
	}

	for _, lot := range lots {
		matched := perLot[lot.ID]
		if matched.GreaterThan(lot.Original) || !matched.Equal(lot.Consumed()) {
			return &ConservationError{Asset: s.asset, Line: lot.Acquisition.Line, Expected: lot.Consumed(), Matched: matched, Record: lot.Acquisition}
		}
	}

	sum := Summary{
		Asset:         s.asset,
		Records:       len(s.records),
		Disposals:     len(disposals),
		Quantity:      decimal.Zero,
		CostBasis:     decimal.Zero,
		Proceeds:      decimal.Zero,
		ShortTermGain: decimal.Zero,
		LongTermGain:  decimal.Zero,
	}
	for i := range s.records {
		g := &s.records[i]
		sum.Quantity = sum.Quantity.Add(g.Quantity)
		sum.CostBasis = sum.CostBasis.Add(g.CostBasis)
		sum.Proceeds = sum.Proceeds.Add(g.Proceeds)
		if g.LongTerm {
			sum.LongTermGain = sum.LongTermGain.Add(g.Gain)
		} else {
			sum.ShortTermGain = sum.ShortTermGain.Add(g.Gain)
		}
	}

	s.summary = sum
	s.finalized = true
	return nil
}

// Asset returns the asset the set was computed for.
func (s *GainLossSet) Asset() string {
	return s.asset
}

// Len returns the number of records.
func (s *GainLossSet) Len() int {
	return len(s.records)
}

// Records returns a copy of the records in order.
func (s *GainLossSet) Records() []GainLoss {
	out := make([]GainLoss, len(s.records))
	copy(out, s.records)
	return out
}

// ForDisposal returns the records that cover the disposal on the given input line.
func (s *GainLossSet) ForDisposal(line int) []GainLoss {
	var out []GainLoss
	for _, g := range s.records {
		if g.Disposal.Line == line {
			out = append(out, g)
		}
	}
	return out
}

// ForLot returns the records that consumed the given lot.
func (s *GainLossSet) ForLot(id LotID) []GainLoss {
	var out []GainLoss
	for _, g := range s.records {
		if g.Lot == id {
			out = append(out, g)
		}
	}
	return out
}

// Summary returns the aggregates of the set.
func (s *GainLossSet) Summary() Summary {
	return s.summary
}

// ShortTermGain returns the total gain of records held shorter than the threshold.
func (s *GainLossSet) ShortTermGain() decimal.Decimal {
	return s.summary.ShortTermGain
}

// LongTermGain returns the total gain of long-term records.
func (s *GainLossSet) LongTermGain() decimal.Decimal {
	return s.summary.LongTermGain
}

// TotalProceeds returns the sum of proceeds over all records.
func (s *GainLossSet) TotalProceeds() decimal.Decimal {
	return s.summary.Proceeds
}

// TotalCostBasis returns the sum of cost basis over all records.
func (s *GainLossSet) TotalCostBasis() decimal.Decimal {
	return s.summary.CostBasis
}

// Equal reports whether two sets hold the same records in the same order.
func (s *GainLossSet) Equal(other *GainLossSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.asset != other.asset || len(s.records) != len(other.records) {
		return false
	}
	for i := range s.records {
		if !s.records[i].Equal(&other.records[i]) {
			return false
		}
	}
	return true
}

// String returns a stable, order-preserving representation of the set.
func (s *GainLossSet) String() string {
	var buf strings.Builder
	buf.WriteString("GainLossSet ")
	buf.WriteString(s.asset)
	buf.WriteString(":\n")
	for i := range s.records {
		buf.WriteString("  ")
		buf.WriteString(s.records[i].String())
		buf.WriteByte('\n')
	}
	buf.WriteString("  short_term_gain=")
	buf.WriteString(s.summary.ShortTermGain.String())
	buf.WriteString("\n  long_term_gain=")
	buf.WriteString(s.summary.LongTermGain.String())
	buf.WriteString("\n  proceeds=")
	buf.WriteString(s.summary.Proceeds.String())
	buf.WriteString("\n  cost_basis=")
	buf.WriteString(s.summary.CostBasis.String())
	return buf.String()
}
