// Package archive stores computed gain/loss batches in a SQLite database so
// that earlier runs can be listed and compared later.
//
// Amounts are stored as decimal strings and timestamps as RFC 3339 text, so
// a record read back is exactly the record that was saved.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/robinvdvleuten/gains/ledger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrRunNotFound is returned when a run ID is not in the archive.
var ErrRunNotFound = errors.New("run not found")

// Store is an open archive database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the archive at path and applies pending
// schema migrations. Use ":memory:" for a throwaway archive.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is one archived batch.
type Run struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Assets    int
	Records   int

	ShortTermGain decimal.Decimal
	LongTermGain  decimal.Decimal
	Proceeds      decimal.Decimal
	CostBasis     decimal.Decimal
}

// TotalGain returns the sum of short and long term gains.
func (r Run) TotalGain() decimal.Decimal {
	return r.ShortTermGain.Add(r.LongTermGain)
}

// Record is one archived gain/loss record.
type Record struct {
	RunID string
	Seq   int
	Asset string
	Lot   int

	DisposalLine    int
	DisposalType    string
	DisposedAt      time.Time
	AcquisitionLine int
	AcquisitionType string
	AcquiredAt      time.Time

	Quantity       decimal.Decimal
	AcquisitionFee decimal.Decimal
	DisposalFee    decimal.Decimal
	CostBasis      decimal.Decimal
	Proceeds       decimal.Decimal
	Gain           decimal.Decimal
	LongTerm       bool
}

// Save writes batch as a new run in a single transaction.
func (s *Store) Save(ctx context.Context, source string, batch *ledger.Batch) (Run, error) {
	sets := batch.Sets()
	sum := batch.Summary()

	run := Run{
		ID:            uuid.New().String(),
		Source:        source,
		CreatedAt:     s.now().UTC(),
		Assets:        len(sets),
		Records:       sum.Records,
		ShortTermGain: sum.ShortTermGain,
		LongTermGain:  sum.LongTermGain,
		Proceeds:      sum.Proceeds,
		CostBasis:     sum.CostBasis,
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO runs (id, source, created_at, assets, records, short_term_gain, long_term_gain, proceeds, cost_basis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, formatTime(run.CreatedAt), run.Assets, run.Records,
		run.ShortTermGain.String(), run.LongTermGain.String(), run.Proceeds.String(), run.CostBasis.String(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO gain_loss (run_id, seq, asset, lot, disposal_line, disposal_type, disposed_at,
			acquisition_line, acquisition_type, acquired_at, quantity, acquisition_fee, disposal_fee,
			cost_basis, proceeds, gain, long_term)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	seq := 0
	for _, set := range sets {
		for _, g := range set.Records() {
			_, err := stmt.ExecContext(ctx,
				run.ID, seq, g.Asset, int(g.Lot),
				g.Disposal.Line, g.Disposal.Kind.String(), formatTime(g.Disposal.Timestamp),
				g.Acquisition.Line, g.Acquisition.Kind.String(), formatTime(g.Acquisition.Timestamp),
				g.Quantity.String(), g.AcquisitionFee.String(), g.DisposalFee.String(),
				g.CostBasis.String(), g.Proceeds.String(), g.Gain.String(), g.LongTerm,
			)
			if err != nil {
				return Run{}, fmt.Errorf("failed to insert record %d: %w", seq, err)
			}
			seq++
		}
	}

	if err := dbTx.Commit(); err != nil {
		return Run{}, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// Runs returns every archived run, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, created_at, assets, records, short_term_gain, long_term_gain, proceeds, cost_basis
		FROM runs
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Run returns the run with the given ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, created_at, assets, records, short_term_gain, long_term_gain, proceeds, cost_basis
		FROM runs
		WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Records returns the records of a run in the order they were saved.
func (s *Store) Records(ctx context.Context, runID string) ([]Record, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, asset, lot, disposal_line, disposal_type, disposed_at,
			acquisition_line, acquisition_type, acquired_at, quantity, acquisition_fee, disposal_fee,
			cost_basis, proceeds, gain, long_term
		FROM gain_loss
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			r                      Record
			disposedAt, acquiredAt string
		)
		err := rows.Scan(
			&r.RunID, &r.Seq, &r.Asset, &r.Lot,
			&r.DisposalLine, &r.DisposalType, &disposedAt,
			&r.AcquisitionLine, &r.AcquisitionType, &acquiredAt,
			&r.Quantity, &r.AcquisitionFee, &r.DisposalFee,
			&r.CostBasis, &r.Proceeds, &r.Gain, &r.LongTerm,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if r.DisposedAt, err = parseTime(disposedAt); err != nil {
			return nil, err
		}
		if r.AcquiredAt, err = parseTime(acquiredAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		createdAt string
	)
	err := row.Scan(
		&run.ID, &run.Source, &createdAt, &run.Assets, &run.Records,
		&run.ShortTermGain, &run.LongTermGain, &run.Proceeds, &run.CostBasis,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return Run{}, err
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
	}
	return t, nil
}
