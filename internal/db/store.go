package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding folder-screen state that survives
// restarts: per-account expand/collapse state and cached account colors.
type Store struct {
	db *sql.DB
}

// Open opens (and creates/migrates) the database at the given path.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	// v1: expand/collapse state per account group
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS group_state (
  account_id  INTEGER PRIMARY KEY,
  expanded    INTEGER NOT NULL DEFAULT 0,
  updated_at  INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=1;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = 1
	}

	// v2: cached account colors
	if ver == 1 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS account_colors (
  account_id  INTEGER PRIMARY KEY,
  color       TEXT NOT NULL,
  updated_at  INTEGER NOT NULL DEFAULT (strftime('%s','now'))
);
`)
		if err == nil {
			_, err = tx.ExecContext(ctx, "PRAGMA user_version=2;")
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v2: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		ver = 2
	}

	_ = ver
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveExpanded upserts an account group's expand state.
func (s *Store) SaveExpanded(ctx context.Context, accountID int64, expanded bool) error {
	val := 0
	if expanded {
		val = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO group_state (account_id, expanded, updated_at)
VALUES (?, ?, strftime('%s','now'))
ON CONFLICT(account_id) DO UPDATE SET expanded=excluded.expanded, updated_at=excluded.updated_at;
`, accountID, val)
	if err != nil {
		return fmt.Errorf("save expand state: %w", err)
	}
	return nil
}

// LoadExpanded returns the persisted expand state keyed by account id.
func (s *Store) LoadExpanded(ctx context.Context) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT account_id, expanded FROM group_state;")
	if err != nil {
		return nil, fmt.Errorf("load expand state: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var accountID int64
		var expanded int
		if err := rows.Scan(&accountID, &expanded); err != nil {
			return nil, fmt.Errorf("scan expand state: %w", err)
		}
		out[accountID] = expanded != 0
	}
	return out, rows.Err()
}

// SaveAccountColor upserts an account's cached color.
func (s *Store) SaveAccountColor(ctx context.Context, accountID int64, color string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO account_colors (account_id, color, updated_at)
VALUES (?, ?, strftime('%s','now'))
ON CONFLICT(account_id) DO UPDATE SET color=excluded.color, updated_at=excluded.updated_at;
`, accountID, color)
	if err != nil {
		return fmt.Errorf("save account color: %w", err)
	}
	return nil
}

// LoadAccountColors returns the cached colors keyed by account id.
func (s *Store) LoadAccountColors(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT account_id, color FROM account_colors;")
	if err != nil {
		return nil, fmt.Errorf("load account colors: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var accountID int64
		var color string
		if err := rows.Scan(&accountID, &color); err != nil {
			return nil, fmt.Errorf("scan account color: %w", err)
		}
		out[accountID] = color
	}
	return out, rows.Err()
}

// DeleteAccount removes all persisted state for an account.
func (s *Store) DeleteAccount(ctx context.Context, accountID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM group_state WHERE account_id = ?;", accountID); err != nil {
		return fmt.Errorf("delete group state: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM account_colors WHERE account_id = ?;", accountID); err != nil {
		return fmt.Errorf("delete account color: %w", err)
	}
	return nil
}
