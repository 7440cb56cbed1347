package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS session_threads (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	thread_id  TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

type sqliteDirectory struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a sqlite-backed Directory at path.
func OpenSQLite(path string) (Directory, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure directory database: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate directory database: %w", err)
	}

	return &sqliteDirectory{db: db}, nil
}

func (d *sqliteDirectory) Get(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySession
	}

	var threadID string
	err := d.db.QueryRowContext(ctx,
		`SELECT thread_id FROM session_threads WHERE id = ?`, sessionID,
	).Scan(&threadID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && threadID == "") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return "", fmt.Errorf("directory lookup failed: %w", err)
	}
	return threadID, nil
}

func (d *sqliteDirectory) Upsert(ctx context.Context, sessionID, threadID string) error {
	if err := validate(sessionID, threadID); err != nil {
		return err
	}

	rec := NewRecord(sessionID, threadID)
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO session_threads (id, session_id, thread_id, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   thread_id = excluded.thread_id,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.SessionID, rec.ThreadID, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("directory upsert failed: %w", err)
	}
	return nil
}

func (d *sqliteDirectory) Close() error {
	return d.db.Close()
}
