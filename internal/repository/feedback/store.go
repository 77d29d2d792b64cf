// Package feedback persists feedback records in an append-only SQLite table.
// The serving path never reads it back; analysis happens offline.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration

	dom "github.com/semref/wdsearch/internal/domain/feedback"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	query      TEXT    NOT NULL,
	entity_id  TEXT    NOT NULL,
	sentiment  TEXT    NOT NULL,
	position   INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

// Store appends feedback records to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the feedback database at path.
// busy_timeout makes concurrent appends queue instead of failing with
// SQLITE_BUSY; database/sql additionally serializes access per connection.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create feedback dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open feedback db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init feedback schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Append durably writes one feedback record. Records are never updated or
// deleted; duplicate submissions produce additional rows.
func (s *Store) Append(ctx context.Context, rec dom.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (query, entity_id, sentiment, position, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Query(), rec.EntityID(), string(rec.Sentiment()), rec.Position(), rec.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// Ping verifies the database file is still writable-reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping feedback db: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close feedback db: %w", err)
	}
	return nil
}
