// Package history provides the question history adapter.
// Implements ports.HistoryStore with SQLite persistence.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

const defaultRecentLimit = 20

// SQLiteStore persists answered questions in a single table.
type SQLiteStore struct {
	db *sqlx.DB
}

// row mirrors the queries table.
type row struct {
	ID         string    `db:"id"`
	AskedAt    time.Time `db:"asked_at"`
	DatasetKey string    `db:"dataset_key"`
	Method     string    `db:"method"`
	Question   string    `db:"question"`
	Answer     string    `db:"answer"`
	Failed     bool      `db:"failed"`
	DurationMS int64     `db:"duration_ms"`
}

// NewSQLiteStore opens (or creates) the history database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queries (
		id TEXT PRIMARY KEY,
		asked_at DATETIME NOT NULL,
		dataset_key TEXT NOT NULL,
		method TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		failed BOOLEAN NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_queries_asked_at ON queries(asked_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores one answered question.
func (s *SQLiteStore) Record(ctx context.Context, entry entities.HistoryEntry) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO queries (id, asked_at, dataset_key, method, question, answer, failed, duration_ms)
		VALUES (:id, :asked_at, :dataset_key, :method, :question, :answer, :failed, :duration_ms)
	`, row{
		ID:         entry.ID,
		AskedAt:    entry.AskedAt.UTC(),
		DatasetKey: entry.DatasetKey,
		Method:     entry.Method,
		Question:   entry.Question,
		Answer:     entry.Answer,
		Failed:     entry.Failed,
		DurationMS: entry.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]entities.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, asked_at, dataset_key, method, question, answer, failed, duration_ms
		FROM queries
		ORDER BY asked_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	entries := make([]entities.HistoryEntry, len(rows))
	for i, r := range rows {
		entries[i] = entities.HistoryEntry{
			ID:         r.ID,
			AskedAt:    r.AskedAt,
			DatasetKey: r.DatasetKey,
			Method:     r.Method,
			Question:   r.Question,
			Answer:     r.Answer,
			Failed:     r.Failed,
			Duration:   time.Duration(r.DurationMS) * time.Millisecond,
		}
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM queries")
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
