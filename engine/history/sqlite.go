package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/zester4/fixium/engine/domain"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS repair_history (
	position     INTEGER PRIMARY KEY,
	id           TEXT NOT NULL,
	completed_at INTEGER NOT NULL,
	rating       INTEGER NOT NULL DEFAULT 0,
	guide        TEXT NOT NULL
);`

// SQLiteStore keeps the list in a single table, replaced wholesale on every
// save so the on-disk state always mirrors the in-memory list.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("history: chmod db path: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, completed_at, rating, guide FROM repair_history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.ID, &e.CompletedAt, &e.Rating, &raw); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		var guide domain.RepairGuide
		if err := json.Unmarshal([]byte(raw), &guide); err != nil {
			return nil, fmt.Errorf("history: decode guide %s: %w", e.ID, err)
		}
		e.Guide = guide
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repair_history`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	for i, e := range entries {
		raw, err := json.Marshal(e.Guide)
		if err != nil {
			return fmt.Errorf("history: encode guide %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO repair_history(position, id, completed_at, rating, guide) VALUES (?, ?, ?, ?, ?)`,
			i, e.ID, e.CompletedAt, e.Rating, string(raw),
		); err != nil {
			return fmt.Errorf("history: insert %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}
