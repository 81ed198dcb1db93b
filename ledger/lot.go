package ledger

import (
	"fmt"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

// LotID addresses a lot within the Lots that registered it. IDs are assigned
// in registration order starting at zero and never reused.
type LotID int

// Lot is the consumable view of one acquisition.
type Lot struct {
	ID          LotID
	Acquisition *tx.Acquisition // shared, never mutated through the lot

	Original  decimal.Decimal
	Remaining decimal.Decimal
}

func newLot(id LotID, acq *tx.Acquisition) *Lot {
	return &Lot{
		ID:          id,
		Acquisition: acq,
		Original:    acq.Quantity,
		Remaining:   acq.Quantity,
	}
}

// IsExhausted reports whether nothing remains to be consumed.
func (l *Lot) IsExhausted() bool {
	return !l.Remaining.IsPositive()
}

// Consumed returns how much of the lot has been matched so far.
func (l *Lot) Consumed() decimal.Decimal {
	return l.Original.Sub(l.Remaining)
}

// String returns a string representation of the lot.
func (l *Lot) String() string {
	return fmt.Sprintf("lot#%d %s/%s %s (line %d, %s)",
		l.ID,
		l.Remaining.String(),
		l.Original.String(),
		l.Acquisition.Asset,
		l.Acquisition.Line,
		l.Acquisition.Timestamp.Format("2006-01-02"),
	)
}
