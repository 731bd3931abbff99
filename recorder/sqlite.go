/*
sqlite.go - SQLite-backed execution record store

PURPOSE:
  Persists the period audit trail to SQLite. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  periods:  One row per closed period (collections in, cash remaining)
  steps:    One row per waterfall step outcome, ordered by position
  triggers: OC/IC snapshots per period
  fees:     Fee snapshots per period

APPEND-ONLY ENFORCEMENT:
  Records are inserted once, inside one transaction per period. There are
  no UPDATE or DELETE statements; re-running a deal into the same database
  fails on the (deal, period) primary key.

AMOUNT ENCODING:
  Amounts and rates are stored as TEXT in decimal string form so no
  precision is lost round-tripping through the database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block
  the single writer, and crash recovery is cleaner.

USAGE:
  rec, err := recorder.NewSQLite("./data/run.db")
  if err != nil {
      log.Fatal(err)
  }
  defer rec.Close()

SEE ALSO:
  - recorder.go: the Recorder interface
  - engine/record.go: the record types persisted here
*/
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/cashflow-engine/engine"
)

// SQLite implements Recorder on a SQLite database.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Recorder = (*SQLite)(nil)

// NewSQLite opens (or creates) a record database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}

	r := &SQLite{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate record database: %w", err)
	}
	return r, nil
}

func (r *SQLite) Close() error {
	return r.db.Close()
}

// migrate creates the database schema.
func (r *SQLite) migrate() error {
	schema := `
	-- One row per closed period (append-only)
	CREATE TABLE IF NOT EXISTS periods (
		deal TEXT NOT NULL,
		period INTEGER NOT NULL,
		payment_date TEXT NOT NULL,
		liquidating BOOLEAN NOT NULL,
		interest_collected TEXT NOT NULL,
		principal_collected TEXT NOT NULL,
		reinvested TEXT NOT NULL,
		interest_remaining TEXT NOT NULL,
		principal_remaining TEXT NOT NULL,
		PRIMARY KEY (deal, period)
	);

	CREATE TABLE IF NOT EXISTS steps (
		deal TEXT NOT NULL,
		period INTEGER NOT NULL,
		position INTEGER NOT NULL,
		step TEXT NOT NULL,
		source TEXT NOT NULL,
		gated BOOLEAN NOT NULL,
		amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		paid_in_kind BOOLEAN NOT NULL,
		remaining_after TEXT NOT NULL,
		PRIMARY KEY (deal, period, position)
	);

	CREATE TABLE IF NOT EXISTS triggers (
		deal TEXT NOT NULL,
		period INTEGER NOT NULL,
		trigger_id TEXT NOT NULL,
		numerator TEXT NOT NULL,
		denominator TEXT NOT NULL,
		ratio TEXT NOT NULL,
		ratio_defined BOOLEAN NOT NULL,
		pass BOOLEAN NOT NULL,
		cure_needed TEXT NOT NULL,
		cure_paid TEXT NOT NULL,
		carried_cure TEXT NOT NULL,
		PRIMARY KEY (deal, period, trigger_id)
	);

	CREATE TABLE IF NOT EXISTS fees (
		deal TEXT NOT NULL,
		period INTEGER NOT NULL,
		fee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		accrued TEXT NOT NULL,
		unpaid TEXT NOT NULL,
		due TEXT NOT NULL,
		PRIMARY KEY (deal, period, fee_id)
	);

	CREATE INDEX IF NOT EXISTS idx_steps_deal_period
		ON steps(deal, period);
	CREATE INDEX IF NOT EXISTS idx_periods_deal
		ON periods(deal);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Record persists one period's execution record in a single transaction.
func (r *SQLite) Record(ctx context.Context, deal string, rec engine.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin record transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO periods
		(deal, period, payment_date, liquidating, interest_collected,
		 principal_collected, reinvested, interest_remaining, principal_remaining)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		deal,
		rec.Period,
		rec.PaymentDate.String(),
		rec.Liquidating,
		rec.InterestCollected.String(),
		rec.PrincipalCollected.String(),
		rec.Reinvested.String(),
		rec.InterestRemaining.String(),
		rec.PrincipalRemaining.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert period %d: %w", rec.Period, err)
	}

	for i, s := range rec.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO steps
			(deal, period, position, step, source, gated, amount_due,
			 amount_paid, paid_in_kind, remaining_after)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			deal, rec.Period, i,
			s.Step,
			string(s.Source),
			s.Gated,
			s.AmountDue.String(),
			s.AmountPaid.String(),
			s.PaidInKind,
			s.RemainingAfter.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %q: %w", s.Step, err)
		}
	}

	for _, t := range rec.Triggers {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO triggers
			(deal, period, trigger_id, numerator, denominator, ratio,
			 ratio_defined, pass, cure_needed, cure_paid, carried_cure)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			deal, rec.Period,
			string(t.ID),
			t.Numerator.String(),
			t.Denominator.String(),
			t.Ratio.String(),
			t.RatioDefined,
			t.Pass,
			t.CureNeeded.String(),
			t.CurePaid.String(),
			t.CarriedCure.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert trigger %q: %w", t.ID, err)
		}
	}

	for _, f := range rec.Fees {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fees
			(deal, period, fee_id, name, accrued, unpaid, due)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			deal, rec.Period,
			string(f.ID),
			f.Name,
			f.Accrued.String(),
			f.Unpaid.String(),
			f.Due.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert fee %q: %w", f.ID, err)
		}
	}

	return tx.Commit()
}

// Periods returns the recorded period indexes for a deal, in order.
func (r *SQLite) Periods(ctx context.Context, deal string) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx,
		"SELECT period FROM periods WHERE deal = ? ORDER BY period ASC", deal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}
