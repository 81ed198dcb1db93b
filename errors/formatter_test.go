package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/gains/input"
	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/tx"
)

func disposal(t *testing.T) *tx.Disposal {
	t.Helper()
	d, err := tx.NewDisposal(tx.Header{
		Line:      7,
		Timestamp: time.Date(2021, time.March, 4, 0, 0, 0, 0, time.UTC),
		Asset:     "BTC",
		Exchange:  "Coinbase",
		Holder:    "Alice",
		Kind:      tx.Sell,
	}, decimal.NewFromInt(50000), decimal.NewFromInt(1), decimal.Zero)
	assert.NoError(t, err)
	return d
}

type lineError struct {
	line int
	msg  string
}

func (e lineError) Error() string { return e.msg }
func (e lineError) GetLine() int  { return e.line }

func TestTextFormatter_Format_Plain(t *testing.T) {
	tf := NewTextFormatter()
	assert.Equal(t, "something went wrong", tf.Format(stderrors.New("something went wrong")))
}

func TestTextFormatter_Format_WithRecord(t *testing.T) {
	tf := NewTextFormatter()
	d := disposal(t)

	err := &ledger.AssetError{Asset: "BTC", Err: &ledger.InsufficientLotsError{Asset: "BTC", Disposal: d, Unmatched: decimal.NewFromInt(1)}}

	output := tf.Format(err)
	assert.Contains(t, output, "BTC: line 7: sell 1 of 1 cannot be matched: no lots remain (balance would go negative)\n\n")
	assert.Contains(t, output, "   Disposal:\n     line=7\n")
	assert.Contains(t, output, "     transaction_type=sell\n")
}

func TestTextFormatter_Format_WithSource(t *testing.T) {
	source := []byte("timestamp,asset,type\n" +
		"2021-01-01T00:00:00Z,BTC,buy\n" +
		"2021-01-02T00:00:00Z,BTC,swap\n" +
		"2021-01-03T00:00:00Z,BTC,sell\n")
	tf := NewTextFormatter(WithSource(source))

	err := &input.RowError{Filename: "ledger.csv", Line: 3, Field: "type", Message: `invalid transaction type "swap"`}

	expected := "ledger.csv:3: type: invalid transaction type \"swap\"\n\n" +
		"   timestamp,asset,type\n" +
		"   2021-01-01T00:00:00Z,BTC,buy\n" +
		" > 2021-01-02T00:00:00Z,BTC,swap\n" +
		"   2021-01-03T00:00:00Z,BTC,sell\n"
	assert.Equal(t, expected, tf.Format(err))
}

func TestTextFormatter_Format_SourceBounds(t *testing.T) {
	tf := NewTextFormatter(WithSource([]byte("only line")))

	output := tf.Format(lineError{line: 1, msg: "bad"})
	assert.Equal(t, "bad\n\n > only line\n", output)

	// errors without a line fall back to the message
	output = tf.Format(lineError{line: 0, msg: "no line"})
	assert.Equal(t, "no line", output)
}

func TestTextFormatter_FormatAll(t *testing.T) {
	tf := NewTextFormatter()

	assert.Equal(t, "", tf.FormatAll(nil))

	errs := []error{stderrors.New("first"), stderrors.New("second")}
	assert.Equal(t, "first\n\nsecond", tf.FormatAll(errs))
}

func TestFlatten(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")
	c := stderrors.New("c")

	batch := &ledger.BatchErrors{Errors: []error{
		&ledger.AssetError{Asset: "BTC", Err: a},
		&input.Errors{Errors: []error{b, c}},
	}}

	flat := Flatten(batch)
	assert.Equal(t, 3, len(flat))
	assert.IsError(t, flat[0], a)
	assert.Equal(t, b, flat[1])
	assert.Equal(t, c, flat[2])

	assert.Equal(t, 0, len(Flatten(nil)))
	assert.Equal(t, []error{a}, Flatten(a))
}

func TestJSONFormatter(t *testing.T) {
	jf := NewJSONFormatter()
	d := disposal(t)

	t.Run("engine error", func(t *testing.T) {
		err := &ledger.AssetError{Asset: "BTC", Err: &ledger.InsufficientLotsError{Asset: "BTC", Disposal: d, Unmatched: decimal.NewFromInt(1)}}

		var got ErrorJSON
		assert.NoError(t, json.Unmarshal([]byte(jf.Format(err)), &got))
		assert.Equal(t, "*ledger.InsufficientLotsError", got.Type)
		assert.Equal(t, 7, got.Position.Line)
		assert.Equal(t, "BTC", got.Details["asset"])
		assert.Equal(t, "2021-03-04T00:00:00Z", got.Details["timestamp"])
		assert.Contains(t, fmt.Sprint(got.Details["record"]), "crypto_out=1.00000000")
	})

	t.Run("row error", func(t *testing.T) {
		err := &input.RowError{Filename: "ledger.csv", Line: 3, Field: "type", Message: "bad"}

		var got ErrorJSON
		assert.NoError(t, json.Unmarshal([]byte(jf.Format(err)), &got))
		assert.Equal(t, "*input.RowError", got.Type)
		assert.Equal(t, &PositionJSON{Filename: "ledger.csv", Line: 3}, got.Position)
		assert.Equal(t, 0, len(got.Details))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, `{"type":"*errors.errorString","message":"boom"}`, jf.Format(stderrors.New("boom")))
	})

	t.Run("all", func(t *testing.T) {
		var got []ErrorJSON
		out := jf.FormatAll([]error{stderrors.New("a"), stderrors.New("b")})
		assert.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, 2, len(got))
		assert.Equal(t, "b", got[1].Message)
	})

	t.Run("unescaped", func(t *testing.T) {
		err := &ledger.StateError{From: ledger.Finalized, To: ledger.Registering}
		assert.Equal(t, `{"type":"*ledger.StateError","message":"illegal engine transition Finalized -> Registering"}`, jf.Format(err))
		assert.Contains(t, jf.FormatAll([]error{err}), `"message": "illegal engine transition Finalized -> Registering"`)
		assert.NotContains(t, jf.FormatAll([]error{err}), `\u003e`)
	})
}
