package index

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/models"
)

const insertSQL = `INSERT INTO findings (path, name, date, time, ref) VALUES (?, ?, ?, ?, ?)`

// Append inserts a finding for path.
func (db *DB) Append(path string) (models.Finding, error) {
	f := models.NewFinding(path)
	_, err := db.conn.Exec(insertSQL, f.Path, f.Name, f.Date, f.Time, f.Ref)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.Finding{}, fmt.Errorf("index: %s: %w", f.Path, apperr.ErrAlreadyExists)
		}
		return models.Finding{}, fmt.Errorf("index: insert finding: %w", err)
	}
	return f, nil
}

// Contains reports whether path has been recorded.
func (db *DB) Contains(path string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM findings WHERE path = ?`, path).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("index: contains %s: %w", path, err)
	}
	return true, nil
}

// All returns every finding in insertion order.
func (db *DB) All() []models.Finding {
	out, err := db.query(`SELECT name, path, date, time, ref FROM findings ORDER BY seq`)
	if err != nil {
		slog.Warn("index: all failed", slog.String("error", err.Error()))
	}
	return out
}

// Lookup returns every finding with the given ref, in insertion order.
func (db *DB) Lookup(ref string) []models.Finding {
	out, err := db.query(`SELECT name, path, date, time, ref FROM findings WHERE ref = ? ORDER BY seq`, ref)
	if err != nil {
		slog.Warn("index: lookup failed", slog.String("ref", ref), slog.String("error", err.Error()))
	}
	return out
}

func (db *DB) query(q string, args ...any) ([]models.Finding, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.Name, &f.Path, &f.Date, &f.Time, &f.Ref); err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
