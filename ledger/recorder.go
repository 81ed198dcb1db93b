package ledger

import (
	"fmt"
	"time"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

// GainLoss is one reconciled unit of accounting: the part of a disposal
// covered by one lot. Values are final once recorded.
type GainLoss struct {
	Asset       string
	Lot         LotID
	Acquisition *tx.Acquisition
	Disposal    *tx.Disposal

	Quantity decimal.Decimal

	// AcquisitionFee and DisposalFee are the pro-rated shares of each event's fee.
	AcquisitionFee decimal.Decimal
	DisposalFee    decimal.Decimal

	CostBasis decimal.Decimal // Quantity * lot price + AcquisitionFee
	Proceeds  decimal.Decimal // Quantity * disposal price - DisposalFee
	Gain      decimal.Decimal // Proceeds - CostBasis

	Held     time.Duration
	LongTerm bool
}

// Term returns "LONG" or "SHORT".
func (g *GainLoss) Term() string {
	if g.LongTerm {
		return "LONG"
	}
	return "SHORT"
}

// String returns a single-line, stable representation of the record.
// Amounts are printed exactly.
func (g *GainLoss) String() string {
	return fmt.Sprintf("%s %s line=%d lot=%d(line=%d) qty=%s fees=%s/%s cost=%s proceeds=%s gain=%s term=%s",
		g.Disposal.Timestamp.Format(tx.TimestampFormat),
		g.Disposal.Kind,
		g.Disposal.Line,
		g.Lot,
		g.Acquisition.Line,
		g.Quantity.String(),
		g.AcquisitionFee.String(),
		g.DisposalFee.String(),
		g.CostBasis.String(),
		g.Proceeds.String(),
		g.Gain.String(),
		g.Term(),
	)
}

// Equal reports whether two records match the same lot against the same
// disposal with identical amounts.
func (g *GainLoss) Equal(other *GainLoss) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.Asset == other.Asset &&
		g.Lot == other.Lot &&
		sameHeader(g.Acquisition.Header, other.Acquisition.Header) &&
		sameHeader(g.Disposal.Header, other.Disposal.Header) &&
		g.Quantity.Equal(other.Quantity) &&
		g.AcquisitionFee.Equal(other.AcquisitionFee) &&
		g.DisposalFee.Equal(other.DisposalFee) &&
		g.CostBasis.Equal(other.CostBasis) &&
		g.Proceeds.Equal(other.Proceeds) &&
		g.Gain.Equal(other.Gain) &&
		g.Held == other.Held &&
		g.LongTerm == other.LongTerm
}

func sameHeader(a, b tx.Header) bool {
	return a.Line == b.Line && a.Kind == b.Kind && a.Timestamp.Equal(b.Timestamp)
}

// feeAllocation tracks how much of one event's quantity and fee has already
// been handed out to records.
type feeAllocation struct {
	matched decimal.Decimal
	fee     decimal.Decimal
}

// Recorder turns matches into GainLoss records. The last slice of an event
// receives whatever part of its fee was not yet allocated, so the fee shares
// of a fully matched event always sum to its fee.
type Recorder struct {
	cfg *Config
	set *GainLossSet

	lotFees      map[LotID]*feeAllocation
	disposalFees map[*tx.Disposal]*feeAllocation
}

// NewRecorder creates a recorder that appends to set.
func NewRecorder(cfg *Config, set *GainLossSet) *Recorder {
	return &Recorder{
		cfg:          cfg,
		set:          set,
		lotFees:      make(map[LotID]*feeAllocation),
		disposalFees: make(map[*tx.Disposal]*feeAllocation),
	}
}

// Record computes the GainLoss for m and appends it to the set.
func (r *Recorder) Record(m Match) error {
	acq := m.Lot.Acquisition
	d := m.Disposal

	if !m.Quantity.IsPositive() {
		return &InvariantError{Asset: d.Asset, Lot: m.Lot.ID, Disposal: d, Message: "matched quantity must be positive"}
	}

	lotAlloc := r.lotFees[m.Lot.ID]
	if lotAlloc == nil {
		lotAlloc = &feeAllocation{}
		r.lotFees[m.Lot.ID] = lotAlloc
	}
	dispAlloc := r.disposalFees[d]
	if dispAlloc == nil {
		dispAlloc = &feeAllocation{}
		r.disposalFees[d] = dispAlloc
	}

	acqFee, err := r.share(lotAlloc, acq.Fee, m.Quantity, m.Lot.Original)
	if err != nil {
		return &InvariantError{Asset: d.Asset, Lot: m.Lot.ID, Disposal: d, Message: "lot " + err.Error()}
	}
	dispFee, err := r.share(dispAlloc, d.Fee, m.Quantity, d.Quantity)
	if err != nil {
		return &InvariantError{Asset: d.Asset, Lot: m.Lot.ID, Disposal: d, Message: "disposal " + err.Error()}
	}

	costBasis := m.Quantity.Mul(acq.UnitCost()).Add(acqFee)
	proceeds := m.Quantity.Mul(d.SpotPrice).Sub(dispFee)
	held := d.Timestamp.Sub(acq.Timestamp)

	return r.set.add(GainLoss{
		Asset:          d.Asset,
		Lot:            m.Lot.ID,
		Acquisition:    acq,
		Disposal:       d,
		Quantity:       m.Quantity,
		AcquisitionFee: acqFee,
		DisposalFee:    dispFee,
		CostBasis:      costBasis,
		Proceeds:       proceeds,
		Gain:           proceeds.Sub(costBasis),
		Held:           held,
		LongTerm:       r.cfg.IsLongTerm(held),
	})
}

// share returns the part of fee attributable to quantity out of total and
// updates the allocation.
func (r *Recorder) share(alloc *feeAllocation, fee, quantity, total decimal.Decimal) (decimal.Decimal, error) {
	matched := alloc.matched.Add(quantity)
	if matched.GreaterThan(total) {
		return decimal.Zero, fmt.Errorf("matched %s exceeds quantity %s", matched.String(), total.String())
	}

	var part decimal.Decimal
	if matched.Equal(total) {
		part = fee.Sub(alloc.fee)
	} else {
		part = decimal.Min(fee.Mul(quantity).DivRound(total, r.cfg.Precision), fee.Sub(alloc.fee))
	}

	alloc.matched = matched
	alloc.fee = alloc.fee.Add(part)

	return part, nil
}
