// Package storage defines the finding cache and its JSON file driver.
package storage

import "github.com/starford/pfnbot/internal/models"

// Store is the append-only cache of recorded findings.
// Implementations are safe for concurrent use.
type Store interface {
	// All returns every finding in insertion order.
	All() []models.Finding
	// Contains reports whether path has been recorded. An error means the
	// answer is unknown.
	Contains(path string) (bool, error)
	// Lookup returns every finding whose ref equals ref.
	Lookup(ref string) []models.Finding
	// Append records path as a new finding and persists the cache.
	Append(path string) (models.Finding, error)
	// Close releases the underlying resources.
	Close() error
}

// Seeder lists the paths used to populate a cache that does not exist yet.
type Seeder func() ([]string, error)

// Driver names accepted by the storage.driver setting.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)
