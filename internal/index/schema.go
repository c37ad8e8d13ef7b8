// Package index provides a SQLite-backed finding cache.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS findings (
	seq  INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	ref  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_ref ON findings(ref);
`

// DB wraps a sql.DB holding the findings table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. A database file that did not exist is seeded from seed.
func Open(path string, seed storage.Seeder, logger *slog.Logger) (*DB, error) {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", classify(err))
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", classify(err))
	}
	db := &DB{conn: conn}

	if fresh {
		logger.Info("cache: generating", slog.String("path", path))
		if err := db.seed(seed); err != nil {
			conn.Close()
			removeDB(path)
			return nil, err
		}
	}
	n, err := db.count()
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("cache: loaded", slog.String("path", path), slog.Int("findings", n))
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM findings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// classify maps "not a database" failures to apperr.ErrCorruptCache.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt) {
		return fmt.Errorf("%w: %v", apperr.ErrCorruptCache, err)
	}
	return err
}

// removeDB deletes a half-created database so the next start seeds again.
func removeDB(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}
