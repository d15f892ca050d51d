// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thUser005/project-stocks-profits/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Journal of emitted state-change events
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trade_date TEXT NOT NULL,
		symbol TEXT NOT NULL,
		kind TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		emitted_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events(trade_date);
	CREATE INDEX IF NOT EXISTS idx_events_symbol ON events(trade_date, symbol);

	-- End-of-day report rows
	CREATE TABLE IF NOT EXISTS daily_results (
		trade_date TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		phase TEXT NOT NULL,
		exit_reason TEXT,
		entry_price REAL,
		final_price REAL,
		profit INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (trade_date, symbol, side)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveEvent appends one emitted event to the journal.
func (s *SQLiteStore) SaveEvent(ctx context.Context, date string, event models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (trade_date, symbol, kind, side, price, emitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		date, event.Symbol, string(event.Kind), string(event.Side), event.Price, event.Timestamp)
	if err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	return nil
}

// GetEvents returns a day's journal in emission order.
func (s *SQLiteStore) GetEvents(ctx context.Context, date string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, kind, side, price, emitted_at
		FROM events WHERE trade_date = ? ORDER BY emitted_at, id`,
		date)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var kind, side string
		if err := rows.Scan(&e.Symbol, &kind, &side, &e.Price, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		e.Side = models.Side(side)
		events = append(events, e)
	}

	return events, rows.Err()
}

// SaveDailyResults upserts the end-of-day report. Re-running the report
// for the same date replaces the previous rows.
func (s *SQLiteStore) SaveDailyResults(ctx context.Context, results []models.DailyResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_results (trade_date, symbol, side, phase, exit_reason, entry_price, final_price, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_date, symbol, side) DO UPDATE SET
			phase = excluded.phase,
			exit_reason = excluded.exit_reason,
			entry_price = excluded.entry_price,
			final_price = excluded.final_price,
			profit = excluded.profit`)
	if err != nil {
		return fmt.Errorf("preparing daily result statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		profit := 0
		if r.Profit {
			profit = 1
		}
		if _, err := stmt.ExecContext(ctx,
			r.Date, r.Symbol, string(r.Side), string(r.Phase), string(r.ExitReason),
			r.EntryPrice, r.FinalPrice, profit); err != nil {
			return fmt.Errorf("saving daily result for %s: %w", r.Symbol, err)
		}
	}

	return tx.Commit()
}

// GetDailyResults returns the report rows for a date.
func (s *SQLiteStore) GetDailyResults(ctx context.Context, date string) ([]models.DailyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_date, symbol, side, phase, exit_reason, entry_price, final_price, profit
		FROM daily_results WHERE trade_date = ? ORDER BY symbol`,
		date)
	if err != nil {
		return nil, fmt.Errorf("querying daily results: %w", err)
	}
	defer rows.Close()

	var results []models.DailyResult
	for rows.Next() {
		var r models.DailyResult
		var side, phase, reason string
		var profit int
		if err := rows.Scan(&r.Date, &r.Symbol, &side, &phase, &reason, &r.EntryPrice, &r.FinalPrice, &profit); err != nil {
			return nil, fmt.Errorf("scanning daily result: %w", err)
		}
		r.Side = models.Side(side)
		r.Phase = models.Phase(phase)
		r.ExitReason = models.ExitReason(reason)
		r.Profit = profit != 0
		results = append(results, r)
	}

	return results, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
