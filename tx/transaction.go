// Package tx defines the transaction records consumed by the gain/loss engine.
//
// Records are immutable value objects: acquisitions add crypto to a holder
// (buy, earn, move) and disposals remove it (sell, gift, donate, fee). They are
// constructed once by an input collaborator, validated, and then only read.
// Quantities are crypto units and all prices, fees and totals are USD, both
// carried as decimal.Decimal.
package tx

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampFormat is the layout used when printing record timestamps.
const TimestampFormat = "2006-01-02 15:04:05.000000 -0700"

// Header holds the fields shared by every transaction record.
type Header struct {
	Line      int // Line number in the input ledger (1-indexed), unique per record
	Timestamp time.Time
	Asset     string
	Exchange  string
	Holder    string
	Kind      Kind
	Notes     string
}

// Before reports whether h sorts strictly before other: by timestamp first,
// then by input line.
func (h Header) Before(other Header) bool {
	if !h.Timestamp.Equal(other.Timestamp) {
		return h.Timestamp.Before(other.Timestamp)
	}
	return h.Line < other.Line
}

// ID returns a short human-readable identity for error messages.
func (h Header) ID() string {
	return fmt.Sprintf("%s %s line %d", h.Asset, h.Kind, h.Line)
}

// Acquisition is crypto entering a holder's control.
type Acquisition struct {
	Header

	SpotPrice   decimal.Decimal // USD per unit
	Quantity    decimal.Decimal // crypto units acquired
	Fee         decimal.Decimal // USD
	CostNoFee   decimal.Decimal // SpotPrice * Quantity
	CostWithFee decimal.Decimal // CostNoFee + Fee
}

// NewAcquisition validates an acquisition and derives its USD totals.
func NewAcquisition(h Header, spotPrice, quantity, fee decimal.Decimal) (*Acquisition, error) {
	a := &Acquisition{
		Header:    h,
		SpotPrice: spotPrice,
		Quantity:  quantity,
		Fee:       fee,
	}
	a.CostNoFee = spotPrice.Mul(quantity)
	a.CostWithFee = a.CostNoFee.Add(fee)

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the acquisition invariants.
func (a *Acquisition) Validate() error {
	if !a.Kind.IsAcquisition() {
		return &ValueError{Header: a.Header, Field: "type", Message: fmt.Sprintf("%s is not an acquisition type", a.Kind)}
	}
	if err := validateHeader(a.Header); err != nil {
		return err
	}
	if !a.SpotPrice.IsPositive() {
		return &ValueError{Header: a.Header, Field: "spot_price", Message: "must be positive, got " + a.SpotPrice.String()}
	}
	if !a.Quantity.IsPositive() {
		return &ValueError{Header: a.Header, Field: "crypto_in", Message: "must be positive, got " + a.Quantity.String()}
	}
	if a.Fee.IsNegative() {
		return &ValueError{Header: a.Header, Field: "usd_fee", Message: "must not be negative, got " + a.Fee.String()}
	}
	return nil
}

// UnitCost returns the USD cost of one unit excluding fees.
func (a *Acquisition) UnitCost() decimal.Decimal {
	return a.SpotPrice
}

// IsTaxable reports whether receiving this acquisition is itself a taxable event.
func (a *Acquisition) IsTaxable() bool {
	return a.Kind == Earn
}

// TaxableAmount returns the USD income recognised on receipt.
func (a *Acquisition) TaxableAmount() decimal.Decimal {
	if !a.IsTaxable() {
		return decimal.Zero
	}
	return a.CostNoFee
}

// String returns a multi-line description of the acquisition.
func (a *Acquisition) String() string {
	var buf strings.Builder
	buf.WriteString("Acquisition:\n")
	writeHeader(&buf, a.Header)
	writeField(&buf, "spot_price", usd(a.SpotPrice))
	writeField(&buf, "crypto_in", crypto(a.Quantity))
	writeField(&buf, "usd_fee", usd(a.Fee))
	writeField(&buf, "usd_in_no_fee", usd(a.CostNoFee))
	writeField(&buf, "usd_in_with_fee", usd(a.CostWithFee))
	writeField(&buf, "is_taxable", fmt.Sprint(a.IsTaxable()))
	buf.WriteString("  usd_taxable_amount=" + usd(a.TaxableAmount()))
	return buf.String()
}

// Disposal is crypto leaving a holder's control.
type Disposal struct {
	Header

	SpotPrice       decimal.Decimal // USD per unit
	Quantity        decimal.Decimal // crypto units disposed
	Fee             decimal.Decimal // USD
	ProceedsNoFee   decimal.Decimal // SpotPrice * Quantity
	ProceedsWithFee decimal.Decimal // ProceedsNoFee - Fee
}

// NewDisposal validates a disposal and derives its USD totals.
func NewDisposal(h Header, spotPrice, quantity, fee decimal.Decimal) (*Disposal, error) {
	d := &Disposal{
		Header:    h,
		SpotPrice: spotPrice,
		Quantity:  quantity,
		Fee:       fee,
	}
	d.ProceedsNoFee = spotPrice.Mul(quantity)
	d.ProceedsWithFee = d.ProceedsNoFee.Sub(fee)

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the disposal invariants.
func (d *Disposal) Validate() error {
	if !d.Kind.IsDisposal() {
		return &ValueError{Header: d.Header, Field: "type", Message: fmt.Sprintf("%s is not a disposal type", d.Kind)}
	}
	if err := validateHeader(d.Header); err != nil {
		return err
	}
	// Donations and gifts may be recorded at a zero spot price.
	if d.SpotPrice.IsNegative() {
		return &ValueError{Header: d.Header, Field: "spot_price", Message: "must not be negative, got " + d.SpotPrice.String()}
	}
	if !d.Quantity.IsPositive() {
		return &ValueError{Header: d.Header, Field: "crypto_out", Message: "must be positive, got " + d.Quantity.String()}
	}
	if d.Fee.IsNegative() {
		return &ValueError{Header: d.Header, Field: "usd_fee", Message: "must not be negative, got " + d.Fee.String()}
	}
	return nil
}

// IsTaxable reports whether the disposal realizes a gain or loss.
func (d *Disposal) IsTaxable() bool {
	return d.Kind.IsDisposal()
}

// String returns a multi-line description of the disposal.
func (d *Disposal) String() string {
	var buf strings.Builder
	buf.WriteString("Disposal:\n")
	writeHeader(&buf, d.Header)
	writeField(&buf, "spot_price", usd(d.SpotPrice))
	writeField(&buf, "crypto_out", crypto(d.Quantity))
	writeField(&buf, "usd_fee", usd(d.Fee))
	writeField(&buf, "usd_out_no_fee", usd(d.ProceedsNoFee))
	writeField(&buf, "usd_out_with_fee", usd(d.ProceedsWithFee))
	buf.WriteString("  is_taxable=" + fmt.Sprint(d.IsTaxable()))
	return buf.String()
}

// ValueError reports a record field that violates a record invariant.
type ValueError struct {
	Header  Header
	Field   string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("line %d: parameter '%s' %s", e.Header.Line, e.Field, e.Message)
}

// GetLine returns the input line of the offending record.
func (e *ValueError) GetLine() int {
	return e.Header.Line
}

func validateHeader(h Header) error {
	if h.Line <= 0 {
		return &ValueError{Header: h, Field: "line", Message: fmt.Sprintf("has non-positive value %d", h.Line)}
	}
	if h.Timestamp.IsZero() {
		return &ValueError{Header: h, Field: "timestamp", Message: "is missing"}
	}
	if h.Asset == "" {
		return &ValueError{Header: h, Field: "asset", Message: "is empty"}
	}
	return nil
}

func writeHeader(buf *strings.Builder, h Header) {
	writeField(buf, "line", fmt.Sprint(h.Line))
	writeField(buf, "timestamp", h.Timestamp.Format(TimestampFormat))
	writeField(buf, "asset", h.Asset)
	writeField(buf, "exchange", h.Exchange)
	writeField(buf, "holder", h.Holder)
	writeField(buf, "transaction_type", h.Kind.String())
	if h.Notes != "" {
		writeField(buf, "notes", h.Notes)
	}
}

func writeField(buf *strings.Builder, name, value string) {
	buf.WriteString("  ")
	buf.WriteString(name)
	buf.WriteByte('=')
	buf.WriteString(value)
	buf.WriteByte('\n')
}

// usd formats a USD amount with 4 decimal places.
func usd(d decimal.Decimal) string {
	return d.StringFixed(4)
}

// crypto formats a crypto quantity with 8 decimal places.
func crypto(d decimal.Decimal) string {
	return d.StringFixed(8)
}
