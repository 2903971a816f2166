package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for audit log persistence.
type Repository interface {
	Append(ctx context.Context, entry *LogEntry) error
	List(ctx context.Context, limit int) ([]LogEntry, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite. The rowid
// sequence gives append order; retention trims by it.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed audit log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts an entry and evicts the oldest rows beyond
// MaxEntries, both in one transaction.
func (r *SQLiteRepository) Append(ctx context.Context, entry *LogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting log append: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO logs (timestamp, type, source, message) VALUES (?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339), string(entry.Type), entry.Source, entry.Message)
	if err != nil {
		tx.Rollback() //nolint:errcheck // Best effort on error path
		return fmt.Errorf("inserting log entry: %w", err)
	}
	if entry.ID, err = result.LastInsertId(); err != nil {
		tx.Rollback() //nolint:errcheck // Best effort on error path
		return fmt.Errorf("reading log entry id: %w", err)
	}

	// FIFO truncation: keep only the newest MaxEntries rows.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM logs WHERE id NOT IN (SELECT id FROM logs ORDER BY id DESC LIMIT ?)`,
		MaxEntries)
	if err != nil {
		tx.Rollback() //nolint:errcheck // Best effort on error path
		return fmt.Errorf("truncating log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing log append: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of 0 or less returns all
// retained entries.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > MaxEntries {
		limit = MaxEntries
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp, type, source, message FROM logs ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var entryType, timestamp string
		if err := rows.Scan(&e.ID, &timestamp, &entryType, &e.Source, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		e.Type = EntryType(entryType)
		if t, err := time.Parse(time.RFC3339, timestamp); err == nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log rows: %w", err)
	}
	return entries, nil
}

// Count returns the number of retained entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting logs: %w", err)
	}
	return count, nil
}

// DeleteAll clears the log. Used by the reset operation and the log
// view's clear action.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM logs`)
	if err != nil {
		return 0, fmt.Errorf("clearing logs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking clear result: %w", err)
	}
	return affected, nil
}
