package ledger

import (
	"fmt"
	"time"

	"github.com/robinvdvleuten/gains/tx"
	"github.com/shopspring/decimal"
)

// Error types for engine failures. Every one of them aborts the run for the
// asset it names; none is recoverable by the engine.

// DuplicateError is returned when the same acquisition is registered twice.
type DuplicateError struct {
	Asset       string
	Acquisition *tx.Acquisition
	Existing    LotID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: line %d: acquisition already registered as lot#%d",
		e.Asset, e.Acquisition.Line, e.Existing)
}

func (e *DuplicateError) GetAsset() string {
	return e.Asset
}

func (e *DuplicateError) GetLine() int {
	return e.Acquisition.Line
}

func (e *DuplicateError) GetTimestamp() time.Time {
	return e.Acquisition.Timestamp
}

func (e *DuplicateError) GetRecord() fmt.Stringer {
	return e.Acquisition
}

// InvariantError is returned when a contract between the engine components is
// violated, such as consuming more than a lot holds.
type InvariantError struct {
	Asset    string
	Lot      LotID
	Disposal *tx.Disposal // nil when raised outside of matching
	Message  string
}

func (e *InvariantError) Error() string {
	if e.Disposal != nil {
		return fmt.Sprintf("%s: line %d: invariant violated: %s", e.Asset, e.Disposal.Line, e.Message)
	}
	return fmt.Sprintf("%s: invariant violated: %s", e.Asset, e.Message)
}

func (e *InvariantError) GetAsset() string {
	return e.Asset
}

func (e *InvariantError) GetLine() int {
	if e.Disposal == nil {
		return 0
	}
	return e.Disposal.Line
}

func (e *InvariantError) GetTimestamp() time.Time {
	if e.Disposal == nil {
		return time.Time{}
	}
	return e.Disposal.Timestamp
}

func (e *InvariantError) GetRecord() fmt.Stringer {
	if e.Disposal == nil {
		return nil
	}
	return e.Disposal
}

// InsufficientLotsError is returned when a disposal cannot be fully matched
// because no eligible lot remains. Next is the earliest lot still holding
// units, set when lots remain but all were acquired after the disposal.
type InsufficientLotsError struct {
	Asset     string
	Disposal  *tx.Disposal
	Unmatched decimal.Decimal
	Next      *Lot
}

func (e *InsufficientLotsError) Error() string {
	if e.Next != nil {
		return fmt.Sprintf("%s: line %d: %s %s of %s cannot be matched: earliest remaining lot (line %d) is dated %s, after the disposal",
			e.Asset, e.Disposal.Line, e.Disposal.Kind, e.Unmatched.String(), e.Disposal.Quantity.String(),
			e.Next.Acquisition.Line, e.Next.Acquisition.Timestamp.Format(tx.TimestampFormat))
	}
	return fmt.Sprintf("%s: line %d: %s %s of %s cannot be matched: no lots remain (balance would go negative)",
		e.Asset, e.Disposal.Line, e.Disposal.Kind, e.Unmatched.String(), e.Disposal.Quantity.String())
}

func (e *InsufficientLotsError) GetAsset() string {
	return e.Asset
}

func (e *InsufficientLotsError) GetLine() int {
	return e.Disposal.Line
}

func (e *InsufficientLotsError) GetTimestamp() time.Time {
	return e.Disposal.Timestamp
}

func (e *InsufficientLotsError) GetRecord() fmt.Stringer {
	return e.Disposal
}

// ReorderError is returned when an input list is not sorted by timestamp and line.
type ReorderError struct {
	Asset    string
	List     string // "acquisitions" or "disposals"
	Previous tx.Header
	Current  tx.Header
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("%s: line %d: %s out of order: %s precedes line %d at %s",
		e.Asset, e.Current.Line, e.List,
		e.Current.Timestamp.Format(tx.TimestampFormat), e.Previous.Line,
		e.Previous.Timestamp.Format(tx.TimestampFormat))
}

func (e *ReorderError) GetAsset() string {
	return e.Asset
}

func (e *ReorderError) GetLine() int {
	return e.Current.Line
}

func (e *ReorderError) GetTimestamp() time.Time {
	return e.Current.Timestamp
}

// ConservationError is returned when the records of a disposal do not add up
// to its declared quantity, or the records of a lot exceed its original quantity.
type ConservationError struct {
	Asset    string
	Line     int
	Expected decimal.Decimal
	Matched  decimal.Decimal
	Record   fmt.Stringer
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("%s: line %d: matched quantity %s does not reconcile with %s",
		e.Asset, e.Line, e.Matched.String(), e.Expected.String())
}

func (e *ConservationError) GetAsset() string {
	return e.Asset
}

func (e *ConservationError) GetLine() int {
	return e.Line
}

func (e *ConservationError) GetRecord() fmt.Stringer {
	return e.Record
}

// AssetMismatchError is returned when a record for another asset reaches an
// engine or lot ledger.
type AssetMismatchError struct {
	Asset  string
	Header tx.Header
}

func (e *AssetMismatchError) Error() string {
	return fmt.Sprintf("%s: line %d: record is for asset %s", e.Asset, e.Header.Line, e.Header.Asset)
}

func (e *AssetMismatchError) GetAsset() string {
	return e.Asset
}

func (e *AssetMismatchError) GetLine() int {
	return e.Header.Line
}

func (e *AssetMismatchError) GetTimestamp() time.Time {
	return e.Header.Timestamp
}

// StateError is returned when an engine is driven through an illegal transition.
type StateError struct {
	From State
	To   State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal engine transition %s -> %s", e.From, e.To)
}
