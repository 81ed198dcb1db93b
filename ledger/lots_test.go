package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func TestLots_Register(t *testing.T) {
	t.Run("new lot has full quantity remaining", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		acq := buy(t, 1, day(1), "10", "100", "0")

		id, err := lots.Register(acq)
		assert.NoError(t, err)
		assert.Equal(t, LotID(0), id)

		lot := lots.Lot(id)
		assert.True(t, lot.Original.Equal(dec("10")))
		assert.True(t, lot.Remaining.Equal(dec("10")))
		assert.Equal(t, acq, lot.Acquisition)
		assert.Equal(t, 1, lots.Len())
	})

	t.Run("same acquisition twice", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		acq := buy(t, 1, day(1), "10", "100", "0")

		_, err := lots.Register(acq)
		assert.NoError(t, err)
		_, err = lots.Register(acq)

		dup, ok := err.(*DuplicateError)
		assert.True(t, ok, "should be DuplicateError")
		assert.Equal(t, LotID(0), dup.Existing)
		assert.Equal(t, 1, lots.Len())
	})

	t.Run("same input line twice", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, err := lots.Register(buy(t, 7, day(1), "1", "100", "0"))
		assert.NoError(t, err)

		_, err = lots.Register(buy(t, 7, day(2), "1", "100", "0"))
		_, ok := err.(*DuplicateError)
		assert.True(t, ok, "should be DuplicateError")
	})

	t.Run("out of chronological order", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, err := lots.Register(buy(t, 2, day(5), "1", "100", "0"))
		assert.NoError(t, err)

		_, err = lots.Register(buy(t, 3, day(4), "1", "100", "0"))
		_, ok := err.(*ReorderError)
		assert.True(t, ok, "should be ReorderError")
	})

	t.Run("other asset", func(t *testing.T) {
		lots := NewLots("ETH", FIFO{})
		_, err := lots.Register(buy(t, 1, day(1), "1", "100", "0"))
		_, ok := err.(*AssetMismatchError)
		assert.True(t, ok, "should be AssetMismatchError")
	})
}

func TestLots_PeekEarliestAvailable(t *testing.T) {
	t.Run("empty ledger", func(t *testing.T) {
		lots := NewLots("BTC", nil)
		_, ok := lots.PeekEarliestAvailable()
		assert.False(t, ok)
	})

	t.Run("skips exhausted lots", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		first, _ := lots.Register(buy(t, 1, day(1), "3", "100", "0"))
		second, _ := lots.Register(buy(t, 2, day(2), "5", "100", "0"))

		lot, ok := lots.PeekEarliestAvailable()
		assert.True(t, ok)
		assert.Equal(t, first, lot.ID)

		assert.NoError(t, lots.Consume(first, dec("3")))

		lot, ok = lots.PeekEarliestAvailable()
		assert.True(t, ok)
		assert.Equal(t, second, lot.ID)

		assert.NoError(t, lots.Consume(second, dec("5")))

		_, ok = lots.PeekEarliestAvailable()
		assert.False(t, ok)
	})

	t.Run("same timestamp breaks ties by line", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		_, _ = lots.Register(buy(t, 4, day(1), "1", "100", "0"))
		_, _ = lots.Register(buy(t, 9, day(1), "1", "200", "0"))

		lot, ok := lots.PeekEarliestAvailable()
		assert.True(t, ok)
		assert.Equal(t, 4, lot.Acquisition.Line)
	})
}

func TestLots_Consume(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"zero amount", "0"},
		{"negative amount", "-1"},
		{"more than remaining", "10.00000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots := NewLots("BTC", FIFO{})
			id, _ := lots.Register(buy(t, 1, day(1), "10", "100", "0"))

			err := lots.Consume(id, dec(tt.amount))
			_, ok := err.(*InvariantError)
			assert.True(t, ok, "should be InvariantError, got %v", err)

			// Never clamped or partially applied
			assert.True(t, lots.Lot(id).Remaining.Equal(dec("10")))
		})
	}

	t.Run("unknown lot", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		err := lots.Consume(LotID(3), decimal.NewFromInt(1))
		_, ok := err.(*InvariantError)
		assert.True(t, ok)
	})

	t.Run("partial consumption", func(t *testing.T) {
		lots := NewLots("BTC", FIFO{})
		id, _ := lots.Register(buy(t, 1, day(1), "10", "100", "0"))
		_, _ = lots.Register(buy(t, 2, day(2), "2.5", "100", "0"))

		assert.NoError(t, lots.Consume(id, dec("4")))
		assert.True(t, lots.Lot(id).Remaining.Equal(dec("6")))
		assert.True(t, lots.Lot(id).Consumed().Equal(dec("4")))
		assert.True(t, lots.Available().Equal(dec("8.5")))
	})
}

func TestStrategyFor(t *testing.T) {
	s, err := StrategyFor("fifo")
	assert.NoError(t, err)
	assert.Equal(t, MethodFIFO, s.Name())

	_, err = StrategyFor("HIFO")
	assert.Error(t, err)
}
