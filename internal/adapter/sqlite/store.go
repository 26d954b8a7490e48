// Package sqlite archives spot events in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS spots (
	id           TEXT PRIMARY KEY,
	category     TEXT NOT NULL,
	dialect      TEXT NOT NULL,
	originator   TEXT NOT NULL,
	processed_at TEXT NOT NULL,
	payload      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS spots_category_idx ON spots (category);
CREATE INDEX IF NOT EXISTS spots_originator_idx ON spots (originator);
`

// Store writes events into the spots table. It implements pipeline.BatchLoader.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// LoadBatch inserts the batch in one transaction. Events already stored under
// the same ID are left untouched, so a retried batch is not duplicated.
func (s *Store) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO spots
		(id, category, dialect, originator, processed_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i := range events {
		ev := &events[i]
		res, err := stmt.ExecContext(ctx,
			string(ev.Key),
			ev.Headers["category"],
			ev.Headers["dialect"],
			ev.Headers["originator"],
			ev.Headers["processed_at"],
			string(ev.Value),
		)
		if err != nil {
			return fmt.Errorf("insert spot %s: %w", ev.Key, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if skipped := int64(len(events)) - inserted; skipped > 0 {
		s.logger.Debug("spots already stored", "skipped", skipped)
	}
	return nil
}

// CountByCategory returns the number of stored spots per category.
func (s *Store) CountByCategory(ctx context.Context) (map[domain.Category]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM spots GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count spots: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Category]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.Category(category)] = n
	}
	return counts, rows.Err()
}

// Payload returns the stored JSON document for id, or sql.ErrNoRows.
func (s *Store) Payload(ctx context.Context, id string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM spots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("load spot %s: %w", id, err)
	}
	return []byte(payload), nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite %s: %w", s.path, err)
	}
	s.logger.Info("sqlite store closed", "path", s.path)
	return nil
}
