package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Config tunes the metrics store and its background workers.
type Config struct {
	// Path is the sqlite database file.
	Path string
	// BatchSize is how many events accumulate before an early flush.
	BatchSize int
	// FlushInterval is how often buffered events are written regardless
	// of batch size.
	FlushInterval time.Duration
	// Retention is how long finished sessions and their events are kept.
	Retention time.Duration
	// SweepInterval is how often expired rows are deleted.
	SweepInterval time.Duration
}

// DefaultConfig returns the store defaults for a database path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		BatchSize:     50,
		FlushInterval: 10 * time.Second,
		Retention:     30 * 24 * time.Hour,
		SweepInterval: 6 * time.Hour,
	}
}

// Store owns the sqlite handle for playback metrics.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the metrics database and ensures
// the schema exists.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping metrics database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metrics schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS playback_sessions (
			id TEXT PRIMARY KEY,
			guild_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			end_reason TEXT,
			tracks_played INTEGER DEFAULT 0,
			tracks_failed INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS playback_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			track_title TEXT,
			detail TEXT,
			timestamp DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_playback_sessions_guild ON playback_sessions(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_sessions_started ON playback_sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_events_session ON playback_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_events_guild ON playback_events(guild_id)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_events_type ON playback_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_playback_events_timestamp ON playback_events(timestamp)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for the query layer and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
