package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS sheet_rows (
	position INTEGER PRIMARY KEY,
	cells    TEXT    NOT NULL DEFAULT '[]'
);
`

// SQLite implements Provider with a local SQLite table holding one JSON
// array of cells per row. Replacement runs in a single transaction.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// ReadRows returns all rows ordered by position.
func (s *SQLite) ReadRows(ctx context.Context) ([][]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT cells FROM sheet_rows ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage: query rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("storage: decode row %d: %w", len(out)+1, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// ReplaceRows deletes every stored row and inserts rows in order.
func (s *SQLite) ReplaceRows(ctx context.Context, rows [][]string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_rows`); err != nil {
		return fmt.Errorf("storage: clear rows: %w", err)
	}
	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO sheet_rows (position, cells) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("storage: prepare row insert: %w", err)
		}
		defer stmt.Close()
		for i, cells := range rows {
			if cells == nil {
				cells = []string{}
			}
			raw, err := json.Marshal(cells)
			if err != nil {
				return fmt.Errorf("storage: encode row %d: %w", i+1, err)
			}
			if _, err := stmt.ExecContext(ctx, i+1, string(raw)); err != nil {
				return fmt.Errorf("storage: insert row %d: %w", i+1, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
