package ledger

import (
	"fmt"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

// Lots is the lot ledger for a single asset. It owns every Lot created from a
// registered acquisition for the lifetime of one run. Lots are kept in
// registration order, which must be chronological (timestamp, then input
// line). Not safe for concurrent use.
type Lots struct {
	asset    string
	strategy Strategy

	lots   []*Lot
	byLine map[int]LotID
	byAcq  map[*tx.Acquisition]LotID

	// head is the index of the first lot that is not exhausted. Every lot
	// before it has Remaining == 0, so selection never needs to look there.
	head int
}

// NewLots creates an empty lot ledger for asset using the given strategy.
func NewLots(asset string, strategy Strategy) *Lots {
	if strategy == nil {
		strategy = FIFO{}
	}
	return &Lots{
		asset:    asset,
		strategy: strategy,
		byLine:   make(map[int]LotID),
		byAcq:    make(map[*tx.Acquisition]LotID),
	}
}

// Asset returns the asset this ledger tracks.
func (ls *Lots) Asset() string {
	return ls.asset
}

// Register appends a new lot for acq with its full quantity remaining.
func (ls *Lots) Register(acq *tx.Acquisition) (LotID, error) {
	if acq.Asset != ls.asset {
		return 0, &AssetMismatchError{Asset: ls.asset, Header: acq.Header}
	}
	if id, ok := ls.byAcq[acq]; ok {
		return 0, &DuplicateError{Asset: ls.asset, Acquisition: acq, Existing: id}
	}
	if id, ok := ls.byLine[acq.Line]; ok {
		return 0, &DuplicateError{Asset: ls.asset, Acquisition: acq, Existing: id}
	}
	if n := len(ls.lots); n > 0 {
		last := ls.lots[n-1].Acquisition.Header
		if acq.Before(last) {
			return 0, &ReorderError{Asset: ls.asset, List: "acquisitions", Previous: last, Current: acq.Header}
		}
	}

	id := LotID(len(ls.lots))
	ls.lots = append(ls.lots, newLot(id, acq))
	ls.byLine[acq.Line] = id
	ls.byAcq[acq] = id

	return id, nil
}

// PeekEarliestAvailable returns the next lot to consume according to the
// strategy, or false when every lot is exhausted.
func (ls *Lots) PeekEarliestAvailable() (*Lot, bool) {
	if ls.head >= len(ls.lots) {
		return nil, false
	}
	id, ok := ls.strategy.Select(ls.lots[ls.head:])
	if !ok {
		return nil, false
	}
	return ls.lots[id], true
}

// Consume decrements the remaining quantity of lot id by amount.
// The amount must be positive and no larger than what remains.
func (ls *Lots) Consume(id LotID, amount decimal.Decimal) error {
	lot := ls.Lot(id)
	if lot == nil {
		return &InvariantError{Asset: ls.asset, Lot: id, Message: fmt.Sprintf("lot#%d does not exist", id)}
	}
	if !amount.IsPositive() {
		return &InvariantError{Asset: ls.asset, Lot: id, Message: fmt.Sprintf("consume amount must be positive, got %s", amount.String())}
	}
	if amount.GreaterThan(lot.Remaining) {
		return &InvariantError{
			Asset:   ls.asset,
			Lot:     id,
			Message: fmt.Sprintf("consume %s exceeds remaining %s of lot#%d", amount.String(), lot.Remaining.String(), id),
		}
	}

	lot.Remaining = lot.Remaining.Sub(amount)

	for ls.head < len(ls.lots) && ls.lots[ls.head].IsExhausted() {
		ls.head++
	}

	return nil
}

// Lot returns the lot with the given id, or nil if it does not exist.
func (ls *Lots) Lot(id LotID) *Lot {
	if id < 0 || int(id) >= len(ls.lots) {
		return nil
	}
	return ls.lots[id]
}

// Len returns the number of registered lots.
func (ls *Lots) Len() int {
	return len(ls.lots)
}

// All returns every registered lot in registration order.
func (ls *Lots) All() []*Lot {
	out := make([]*Lot, len(ls.lots))
	copy(out, ls.lots)
	return out
}

// Available returns the total remaining quantity across all lots.
func (ls *Lots) Available() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ls.lots[ls.head:] {
		total = total.Add(lot.Remaining)
	}
	return total
}
