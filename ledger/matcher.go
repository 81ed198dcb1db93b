package ledger

import (
	"github.com/phuslu/log"
	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

// Match assigns part of a disposal to one lot.
type Match struct {
	Lot      *Lot
	Disposal *tx.Disposal
	Quantity decimal.Decimal
}

// MatchSink receives every match the Matcher produces, in order.
type MatchSink interface {
	Record(m Match) error
}

// Matcher consumes lots from a lot ledger to cover disposals, one disposal at
// a time and in chronological order.
type Matcher struct {
	lots   *Lots
	sink   MatchSink
	logger *log.Logger

	last *tx.Disposal
}

// NewMatcher creates a matcher that consumes from lots and reports to sink.
func NewMatcher(lots *Lots, sink MatchSink, logger *log.Logger) *Matcher {
	if logger == nil {
		logger = discardLogger
	}
	return &Matcher{
		lots:   lots,
		sink:   sink,
		logger: logger,
	}
}

// Match covers the full quantity of d from the lot ledger. A lot acquired after
// d is never eligible; meeting one is treated the same as running out of lots.
func (m *Matcher) Match(d *tx.Disposal) error {
	asset := m.lots.Asset()

	if d.Asset != asset {
		return &AssetMismatchError{Asset: asset, Header: d.Header}
	}
	if m.last != nil && d.Before(m.last.Header) {
		return &ReorderError{Asset: asset, List: "disposals", Previous: m.last.Header, Current: d.Header}
	}
	m.last = d

	remaining := d.Quantity
	for remaining.IsPositive() {
		lot, ok := m.lots.PeekEarliestAvailable()
		if !ok {
			return &InsufficientLotsError{Asset: asset, Disposal: d, Unmatched: remaining}
		}
		// Lots acquired at the same instant as the disposal are eligible.
		if lot.Acquisition.Timestamp.After(d.Timestamp) {
			return &InsufficientLotsError{Asset: asset, Disposal: d, Unmatched: remaining, Next: lot}
		}

		take := decimal.Min(remaining, lot.Remaining)
		if err := m.lots.Consume(lot.ID, take); err != nil {
			if ierr, ok := err.(*InvariantError); ok {
				ierr.Disposal = d
			}
			return err
		}

		m.logger.Debug().
			Str("asset", asset).
			Int("disposal", d.Line).
			Int("lot", int(lot.ID)).
			Int("acquisition", lot.Acquisition.Line).
			Str("quantity", take.String()).
			Str("lot_remaining", lot.Remaining.String()).
			Msg("matched")

		if err := m.sink.Record(Match{Lot: lot, Disposal: d, Quantity: take}); err != nil {
			return err
		}

		remaining = remaining.Sub(take)
	}

	return nil
}
