package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/gains/tx"
)

// collectSink records matches without computing gains.
type collectSink struct {
	matches []Match
}

func (s *collectSink) Record(m Match) error {
	s.matches = append(s.matches, m)
	return nil
}

func TestMatcher_Match(t *testing.T) {
	t.Run("splits a disposal across lots oldest first", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 1, day(1), "3", "100", "0"))
		_, _ = lots.Register(buy(t, 2, day(2), "5", "100", "0"))

		sink := &collectSink{}
		m := NewMatcher(lots, sink, nil)
		assert.NoError(t, m.Match(sell(t, 3, day(3), "6", "150", "0")))

		assert.Equal(t, 2, len(sink.matches))
		assert.Equal(t, LotID(0), sink.matches[0].Lot.ID)
		assert.True(t, sink.matches[0].Quantity.Equal(dec("3")))
		assert.Equal(t, LotID(1), sink.matches[1].Lot.ID)
		assert.True(t, sink.matches[1].Quantity.Equal(dec("3")))

		assert.True(t, lots.Lot(0).IsExhausted())
		assert.True(t, lots.Lot(1).Remaining.Equal(dec("2")))
	})

	t.Run("exact consumption advances to the next lot", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 1, day(1), "2", "100", "0"))
		_, _ = lots.Register(buy(t, 2, day(2), "2", "110", "0"))

		sink := &collectSink{}
		m := NewMatcher(lots, sink, nil)
		assert.NoError(t, m.Match(sell(t, 3, day(3), "2", "150", "0")))
		assert.NoError(t, m.Match(sell(t, 4, day(4), "1", "150", "0")))

		assert.Equal(t, 2, len(sink.matches))
		assert.Equal(t, LotID(0), sink.matches[0].Lot.ID)
		assert.Equal(t, LotID(1), sink.matches[1].Lot.ID)
	})

	t.Run("consumes across exchanges and holders", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		other := buy(t, 1, day(1), "1", "100", "0")
		other.Exchange = "Kraken"
		other.Holder = "Bob"
		_, _ = lots.Register(other)
		_, _ = lots.Register(buy(t, 2, day(2), "1", "100", "0"))

		sink := &collectSink{}
		assert.NoError(t, NewMatcher(lots, sink, nil).Match(sell(t, 3, day(3), "1", "100", "0")))
		assert.Equal(t, "Kraken", sink.matches[0].Lot.Acquisition.Exchange)
	})

	t.Run("zero-fee fee disposal is still matched", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 1, day(1), "1", "100", "0"))

		fee := sell(t, 2, day(2), "0.0001", "100", "0")
		fee.Kind = tx.Fee

		sink := &collectSink{}
		assert.NoError(t, NewMatcher(lots, sink, nil).Match(fee))
		assert.Equal(t, 1, len(sink.matches))
		assert.True(t, lots.Lot(0).Remaining.Equal(dec("0.9999")))
	})

	t.Run("insufficient lots", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 1, day(1), "1", "100", "0"))

		err := NewMatcher(lots, &collectSink{}, nil).Match(sell(t, 2, day(2), "2", "100", "0"))
		insufficient, ok := err.(*InsufficientLotsError)
		assert.True(t, ok, "should be InsufficientLotsError")
		assert.True(t, insufficient.Unmatched.Equal(dec("1")))
		assert.True(t, insufficient.Next == nil)
		assert.Contains(t, err.Error(), "no lots remain")
	})

	t.Run("lot dated after the disposal is not eligible", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 5, day(10), "1", "100", "0"))

		sink := &collectSink{}
		err := NewMatcher(lots, sink, nil).Match(sell(t, 2, day(2), "1", "100", "0"))
		insufficient, ok := err.(*InsufficientLotsError)
		assert.True(t, ok, "should be InsufficientLotsError")
		assert.Equal(t, 5, insufficient.Next.Acquisition.Line)
		assert.Equal(t, 0, len(sink.matches))
		assert.True(t, lots.Lot(0).Remaining.Equal(dec("1")))
	})

	t.Run("lot at the same instant is eligible", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 5, day(2), "1", "100", "0"))

		assert.NoError(t, NewMatcher(lots, &collectSink{}, nil).Match(sell(t, 2, day(2), "1", "100", "0")))
	})

	t.Run("disposals out of order", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 1, day(1), "5", "100", "0"))

		m := NewMatcher(lots, &collectSink{}, nil)
		assert.NoError(t, m.Match(sell(t, 3, day(3), "1", "100", "0")))

		err := m.Match(sell(t, 2, day(2), "1", "100", "0"))
		_, ok := err.(*ReorderError)
		assert.True(t, ok, "should be ReorderError")
	})
}
