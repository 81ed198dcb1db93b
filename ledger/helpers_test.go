package ledger

import (
	"testing"
	"time"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return epoch.AddDate(0, 0, n-1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(t *testing.T, line int, at time.Time, qty, price, fee string) *tx.Acquisition {
	t.Helper()
	acq, err := tx.NewAcquisition(tx.Header{
		Line:      line,
		Timestamp: at,
		Asset:     "BTC",
		Exchange:  "Coinbase",
		Holder:    "Alice",
		Kind:      tx.Buy,
	}, dec(price), dec(qty), dec(fee))
	if err != nil {
		t.Fatalf("invalid acquisition: %v", err)
	}
	return acq
}

func sell(t *testing.T, line int, at time.Time, qty, price, fee string) *tx.Disposal {
	t.Helper()
	d, err := tx.NewDisposal(tx.Header{
		Line:      line,
		Timestamp: at,
		Asset:     "BTC",
		Exchange:  "Coinbase",
		Holder:    "Alice",
		Kind:      tx.Sell,
	}, dec(price), dec(qty), dec(fee))
	if err != nil {
		t.Fatalf("invalid disposal: %v", err)
	}
	return d
}

func compute(t *testing.T, acqs []*tx.Acquisition, disps []*tx.Disposal) (*GainLossSet, error) {
	t.Helper()
	return Compute(t.Context(), NewConfig(), Input{Asset: "BTC", Acquisitions: acqs, Disposals: disps})
}

func acquisitions(a ...*tx.Acquisition) []*tx.Acquisition {
	return a
}

func disposals(d ...*tx.Disposal) []*tx.Disposal {
	return d
}
