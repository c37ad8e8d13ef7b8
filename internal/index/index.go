package index

import "github.com/starford/pfnbot/internal/storage"

// Verify *DB satisfies storage.Store at compile time.
var _ storage.Store = (*DB)(nil)
