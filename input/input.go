// Package input reads transaction ledgers from CSV files and routes their
// records into per-asset engine inputs.
//
// The expected header is
//
//	timestamp,asset,exchange,holder,type,spot_price,crypto,usd_fee,notes
//
// Columns may appear in any order; exchange, holder, usd_fee and notes are
// optional. Every data row becomes one acquisition or disposal whose Line is
// the row's line number in the file. Rows are kept in file order unless the
// loader is created with WithSort, so an unsorted file surfaces as a
// ledger.ReorderError when computed.
//
// Example usage:
//
//	l := input.New(input.WithAssets("BTC", "ETH"))
//	result, err := l.Load(ctx, "ledger.csv")
//	if err != nil {
//	    var rows *input.Errors
//	    if errors.As(err, &rows) {
//	        // report every invalid row
//	    }
//	}
//	batch, err := ledger.ComputeAll(ctx, cfg, result.Inputs)
package input

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/gains/ledger"
	"github.com/robinvdvleuten/gains/telemetry"
	"github.com/robinvdvleuten/gains/tx"
)

// Column names of the input file.
const (
	ColTimestamp = "timestamp"
	ColAsset     = "asset"
	ColExchange  = "exchange"
	ColHolder    = "holder"
	ColType      = "type"
	ColSpotPrice = "spot_price"
	ColCrypto    = "crypto"
	ColFee       = "usd_fee"
	ColNotes     = "notes"
)

var requiredColumns = []string{ColTimestamp, ColAsset, ColType, ColSpotPrice, ColCrypto}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339Nano,
	tx.TimestampFormat,
	"2006-01-02 15:04:05 -0700",
}

// Loader reads CSV ledgers. Configure it with functional options passed to New.
type Loader struct {
	// Known values. An empty list accepts any value.
	Assets    []string
	Exchanges []string
	Holders   []string

	// Sort orders each asset's records by timestamp, then line.
	Sort bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithAssets restricts the accepted assets.
func WithAssets(assets ...string) Option {
	return func(l *Loader) {
		l.Assets = assets
	}
}

// WithExchanges restricts the accepted exchanges.
func WithExchanges(exchanges ...string) Option {
	return func(l *Loader) {
		l.Exchanges = exchanges
	}
}

// WithHolders restricts the accepted holders.
func WithHolders(holders ...string) Option {
	return func(l *Loader) {
		l.Holders = holders
	}
}

// WithSort sorts each asset's records instead of keeping file order.
func WithSort() Option {
	return func(l *Loader) {
		l.Sort = true
	}
}

// New creates a Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result is the content of one loaded file.
type Result struct {
	Filename string
	Rows     int
	Inputs   []ledger.Input // one per asset, sorted by asset
}

// Input returns the records of asset.
func (r *Result) Input(asset string) (ledger.Input, bool) {
	for _, in := range r.Inputs {
		if in.Asset == asset {
			return in, true
		}
	}
	return ledger.Input{}, false
}

// Assets returns the assets present in the file.
func (r *Result) Assets() []string {
	assets := make([]string, len(r.Inputs))
	for i, in := range r.Inputs {
		assets[i] = in.Asset
	}
	return assets
}

// Load reads filename.
func (l *Loader) Load(ctx context.Context, filename string) (*Result, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	return l.Parse(ctx, filename, f)
}

// Parse reads a CSV ledger from r. filename is only used in error messages.
// Invalid rows do not stop parsing; all of them are returned in an *Errors.
func (l *Loader) Parse(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	timer := telemetry.StartTimer(ctx, "input.load "+filepath.Base(filename))
	defer timer.End()

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &RowError{Filename: filename, Line: 1, Message: "missing header"}
	}
	if err != nil {
		return nil, csvError(filename, err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, &RowError{Filename: filename, Line: 1, Message: err.Error()}
	}

	inputs := make(map[string]*ledger.Input)
	errs := &Errors{}
	rows := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(filename, err)
		}
		rows++

		line, _ := reader.FieldPos(0)
		row := row{filename: filename, line: line, columns: columns, record: record}

		acq, d, err := l.parseRow(row)
		if err != nil {
			errs.Errors = append(errs.Errors, err)
			continue
		}

		var asset string
		if acq != nil {
			asset = acq.Asset
		} else {
			asset = d.Asset
		}
		in := inputs[asset]
		if in == nil {
			in = &ledger.Input{Asset: asset}
			inputs[asset] = in
		}
		if acq != nil {
			in.Acquisitions = append(in.Acquisitions, acq)
		} else {
			in.Disposals = append(in.Disposals, d)
		}
	}

	if len(errs.Errors) > 0 {
		return nil, errs
	}

	result := &Result{Filename: filename, Rows: rows}
	for _, in := range inputs {
		if l.Sort {
			Sort(in)
		}
		result.Inputs = append(result.Inputs, *in)
	}
	sort.Slice(result.Inputs, func(i, j int) bool { return result.Inputs[i].Asset < result.Inputs[j].Asset })

	return result, nil
}

// Sort orders both record lists of in by timestamp, then line.
func Sort(in *ledger.Input) {
	sort.SliceStable(in.Acquisitions, func(i, j int) bool {
		return in.Acquisitions[i].Before(in.Acquisitions[j].Header)
	})
	sort.SliceStable(in.Disposals, func(i, j int) bool {
		return in.Disposals[i].Before(in.Disposals[j].Header)
	})
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return columns, nil
}

func csvError(filename string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &RowError{Filename: filename, Line: parseErr.Line, Message: parseErr.Err.Error(), Underlying: err}
	}
	return fmt.Errorf("failed to read %s: %w", filename, err)
}

// row is one data record together with its position.
type row struct {
	filename string
	line     int
	columns  map[string]int
	record   []string
}

func (r row) get(column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r row) fail(field, message string, err error) *RowError {
	return &RowError{Filename: r.filename, Line: r.line, Field: field, Message: message, Underlying: err}
}

func (r row) decimal(column string, optional bool) (decimal.Decimal, error) {
	value := r.get(column)
	if value == "" {
		if optional {
			return decimal.Zero, nil
		}
		return decimal.Zero, r.fail(column, "is required", nil)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, r.fail(column, fmt.Sprintf("invalid number %q", value), err)
	}
	return d, nil
}

func (l *Loader) parseRow(r row) (*tx.Acquisition, *tx.Disposal, error) {
	h := tx.Header{
		Line:     r.line,
		Asset:    r.get(ColAsset),
		Exchange: r.get(ColExchange),
		Holder:   r.get(ColHolder),
		Notes:    r.get(ColNotes),
	}

	ts, err := parseTimestamp(r.get(ColTimestamp))
	if err != nil {
		return nil, nil, r.fail(ColTimestamp, err.Error(), err)
	}
	h.Timestamp = ts

	if err := checkKnown(r, ColAsset, h.Asset, l.Assets); err != nil {
		return nil, nil, err
	}
	if err := checkKnown(r, ColExchange, h.Exchange, l.Exchanges); err != nil {
		return nil, nil, err
	}
	if err := checkKnown(r, ColHolder, h.Holder, l.Holders); err != nil {
		return nil, nil, err
	}

	kind, err := tx.ParseKind(r.get(ColType))
	if err != nil {
		return nil, nil, r.fail(ColType, err.Error(), err)
	}
	h.Kind = kind

	price, err := r.decimal(ColSpotPrice, false)
	if err != nil {
		return nil, nil, err
	}
	quantity, err := r.decimal(ColCrypto, false)
	if err != nil {
		return nil, nil, err
	}
	fee, err := r.decimal(ColFee, true)
	if err != nil {
		return nil, nil, err
	}

	if kind.IsAcquisition() {
		acq, err := tx.NewAcquisition(h, price, quantity, fee)
		if err != nil {
			return nil, nil, valueError(r, err)
		}
		return acq, nil, nil
	}

	d, err := tx.NewDisposal(h, price, quantity, fee)
	if err != nil {
		return nil, nil, valueError(r, err)
	}
	return nil, d, nil
}

func valueError(r row, err error) *RowError {
	var ve *tx.ValueError
	if errors.As(err, &ve) {
		field := ve.Field
		if field == "crypto_in" || field == "crypto_out" {
			field = ColCrypto
		}
		return r.fail(field, ve.Message, err)
	}
	return r.fail("", err.Error(), err)
}

func checkKnown(r row, column, value string, known []string) error {
	if len(known) == 0 || value == "" {
		return nil
	}
	if !slices.Contains(known, value) {
		return r.fail(column, fmt.Sprintf("unknown value %q, expected one of %s", value, strings.Join(known, ", ")), nil)
	}
	return nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("is required")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, expected RFC 3339 with zone", value)
}
