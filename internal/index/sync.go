package index

import (
	"fmt"

	"github.com/starford/pfnbot/internal/models"
	"github.com/starford/pfnbot/internal/storage"
)

// seed inserts one finding per seeded path within a single transaction.
func (db *DB) seed(seed storage.Seeder) error {
	paths, err := seed()
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		f := models.NewFinding(p)
		if _, err := stmt.Exec(f.Path, f.Name, f.Date, f.Time, f.Ref); err != nil {
			return fmt.Errorf("index: seed %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}
