// Package sqlite persists the directory snapshot in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"persondir/internal/directory/models"
	"persondir/pkg/platform/sentinel"
	"persondir/pkg/platform/tx"
)

const schema = `CREATE TABLE IF NOT EXISTS directory_records (
	position INTEGER PRIMARY KEY,
	body     TEXT NOT NULL
)`

// Sink stores one row per record, ordered by position. Each write replaces
// every row inside a single transaction.
type Sink struct {
	db     *sql.DB
	runner *tx.Runner
}

// Open creates the database file (and parent directories) if needed.
func Open(path string) (*Sink, error) {
	if path == "" {
		path = "persondir.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between the pool's connections
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create directory_records table: %w", err)
	}
	return &Sink{db: db, runner: tx.New(db, 0)}, nil
}

func (s *Sink) Close() error {
	return s.db.Close()
}

func (s *Sink) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM directory_records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("select records: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	out := []json.RawMessage{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w: %w", sentinel.ErrMalformed, err)
		}
		out = append(out, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *Sink) WriteAll(ctx context.Context, records []*models.Record) error {
	return s.runner.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM directory_records`); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO directory_records (position, body) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, rec := range records {
			body, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
			if _, err := stmt.ExecContext(ctx, i, string(body)); err != nil {
				return fmt.Errorf("insert record %d: %w", i, err)
			}
		}
		return nil
	})
}
