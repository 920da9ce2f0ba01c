// Package postgres persists the directory snapshot in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"persondir/internal/directory/models"
	"persondir/pkg/platform/sentinel"
	"persondir/pkg/platform/tx"
)

const schema = `CREATE TABLE IF NOT EXISTS directory_records (
	position INTEGER PRIMARY KEY,
	body     JSONB   NOT NULL
)`

// Sink keeps one JSONB row per record. WriteAll swaps the whole table
// contents in one transaction.
type Sink struct {
	db     *sql.DB
	runner *tx.Runner
}

// New ensures the table exists.
func New(ctx context.Context, db *sql.DB) (*Sink, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create directory_records table: %w", err)
	}
	return &Sink{db: db, runner: tx.New(db, 0)}, nil
}

func (s *Sink) ReadAll(ctx context.Context) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body::text FROM directory_records ORDER BY position`)
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
	positions := make([]int64, len(records))
	bodies := make([]string, len(records))
	for i, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
		positions[i] = int64(i)
		bodies[i] = string(body)
	}

	return s.runner.RunInTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM directory_records`); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		// single round trip regardless of record count
		query := `
			INSERT INTO directory_records (position, body)
			SELECT p, b::jsonb FROM unnest($1::int[], $2::text[]) AS t(p, b)
		`
		if _, err := tx.ExecContext(ctx, query, pq.Array(positions), pq.Array(bodies)); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
		return nil
	})
}
