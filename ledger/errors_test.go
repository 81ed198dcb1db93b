package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

type recordError interface {
	error
	GetAsset() string
	GetLine() int
}

func TestErrorAccessors(t *testing.T) {
	acq := buy(t, 3, day(1), "1", "100", "0")
	d := sell(t, 7, day(2), "2", "100", "0")

	tests := []struct {
		name   string
		err    recordError
		line   int
		record fmt.Stringer
	}{
		{name: "duplicate", err: &DuplicateError{Asset: "BTC", Acquisition: acq}, line: 3, record: acq},
		{name: "invariant", err: &InvariantError{Asset: "BTC", Disposal: d, Message: "x"}, line: 7, record: d},
		{name: "insufficient", err: &InsufficientLotsError{Asset: "BTC", Disposal: d, Unmatched: dec("1")}, line: 7, record: d},
		{name: "reorder", err: &ReorderError{Asset: "BTC", List: "disposals", Previous: acq.Header, Current: d.Header}, line: 7},
		{name: "conservation", err: &ConservationError{Asset: "BTC", Line: 7, Record: d}, line: 7, record: d},
		{name: "mismatch", err: &AssetMismatchError{Asset: "BTC", Header: d.Header}, line: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "BTC", tt.err.GetAsset())
			assert.Equal(t, tt.line, tt.err.GetLine())
			if withTime, ok := tt.err.(interface{ GetTimestamp() time.Time }); ok {
				assert.False(t, withTime.GetTimestamp().IsZero())
			}
			if tt.record == nil {
				return
			}
			withRecord, ok := tt.err.(interface{ GetRecord() fmt.Stringer })
			assert.True(t, ok)
			assert.Equal(t, tt.record.String(), withRecord.GetRecord().String())
		})
	}
}

func TestInvariantError_WithoutDisposal(t *testing.T) {
	err := &InvariantError{Asset: "BTC", Message: "lot missing"}
	assert.Equal(t, "BTC: invariant violated: lot missing", err.Error())
	assert.Equal(t, 0, err.GetLine())
	assert.True(t, err.GetTimestamp().IsZero())
}

func TestInsufficientLotsError_Message(t *testing.T) {
	d := sell(t, 9, day(2), "2", "100", "0")

	err := &InsufficientLotsError{Asset: "BTC", Disposal: d, Unmatched: dec("1.5")}
	assert.Contains(t, err.Error(), "BTC: line 9")
	assert.Contains(t, err.Error(), "no lots remain")

	next := newLot(4, buy(t, 12, day(10), "1", "100", "0"))
	err = &InsufficientLotsError{Asset: "BTC", Disposal: d, Unmatched: dec("1.5"), Next: next}
	assert.Contains(t, err.Error(), "(line 12)")
	assert.Contains(t, err.Error(), "after the disposal")
}
