package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/models"
)

// JSONFile implements Store as a single JSON array on disk. Every Append
// rewrites the whole file.
type JSONFile struct {
	path string

	mu       sync.RWMutex
	findings []models.Finding
	paths    map[string]struct{}
}

var _ Store = (*JSONFile)(nil)

// Load opens the cache at path. If the file does not exist it is first
// materialised from seed, one finding per path, then read back.
func Load(path string, seed Seeder, logger *slog.Logger) (*JSONFile, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("cache: generating", slog.String("path", path))
		if err := generate(path, seed); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	var findings []models.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w: %v", path, apperr.ErrCorruptCache, err)
	}

	s := &JSONFile{
		path:     path,
		findings: findings,
		paths:    make(map[string]struct{}, len(findings)),
	}
	for _, f := range findings {
		s.paths[f.Path] = struct{}{}
	}
	logger.Info("cache: loaded", slog.String("path", path), slog.Int("findings", len(findings)))
	return s, nil
}

func generate(path string, seed Seeder) error {
	paths, err := seed()
	if err != nil {
		return err
	}
	findings := make([]models.Finding, 0, len(paths))
	for _, p := range paths {
		findings = append(findings, models.NewFinding(p))
	}
	return writeFindings(path, findings)
}

// All returns a copy of the cached findings.
func (s *JSONFile) All() []models.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

// Contains reports whether path has been recorded.
func (s *JSONFile) Contains(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[path]
	return ok, nil
}

// Lookup returns every finding with the given ref.
func (s *JSONFile) Lookup(ref string) []models.Finding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Finding
	for _, f := range s.findings {
		if f.Ref == ref {
			out = append(out, f)
		}
	}
	return out
}

// Append records path and rewrites the cache file.
func (s *JSONFile) Append(path string) (models.Finding, error) {
	f := models.NewFinding(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[f.Path]; ok {
		return models.Finding{}, fmt.Errorf("storage: %s: %w", f.Path, apperr.ErrAlreadyExists)
	}
	next := append(s.findings, f)
	if err := writeFindings(s.path, next); err != nil {
		return models.Finding{}, err
	}
	s.findings = next
	s.paths[f.Path] = struct{}{}
	return f, nil
}

// Close is a no-op; the file is closed after every write.
func (s *JSONFile) Close() error { return nil }

// writeFindings atomically replaces path: tmp file → fsync → rename.
func writeFindings(path string, findings []models.Finding) error {
	if findings == nil {
		findings = []models.Finding{}
	}
	content, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pfnbot-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
