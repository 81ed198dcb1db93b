package ledger

import (
	"fmt"
	"strings"
)

// MethodFIFO is the identifier of the first-in-first-out strategy.
const MethodFIFO = "FIFO"

// Strategy selects the next lot a disposal consumes.
//
// Select receives the candidate lots in registration (chronological) order.
// Candidates may include exhausted lots; a strategy must never return one.
// It returns the ID of the chosen lot, or false when none has anything left.
type Strategy interface {
	Name() string
	Select(lots []*Lot) (LotID, bool)
}

// FIFO consumes the oldest lot first, regardless of exchange or holder.
type FIFO struct{}

// Name returns "FIFO".
func (FIFO) Name() string {
	return MethodFIFO
}

// Select returns the first lot with a positive remaining quantity.
func (FIFO) Select(lots []*Lot) (LotID, bool) {
	for _, lot := range lots {
		if !lot.IsExhausted() {
			return lot.ID, true
		}
	}
	return 0, false
}

// StrategyFor returns the strategy registered under method.
func StrategyFor(method string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case MethodFIFO:
		return FIFO{}, nil
	}
	return nil, fmt.Errorf("unsupported accounting method %q, expected %s", method, MethodFIFO)
}
