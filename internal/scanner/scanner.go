// Package scanner finds capture images in the watch directory.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/pfnbot/internal/apperr"
)

// suffix marks a processed capture ("_P") in the device's BMP output.
const suffix = "_P.bmp"

// excluded holds two known spurious capture windows (11:00 and 23:00), each
// with the following second to tolerate an off-by-one in the timestamp.
var excluded = []string{"_110000_", "_110001_", "_230000_", "_230001_"}

// Known reports whether a path has already been recorded.
type Known interface {
	Contains(path string) (bool, error)
}

// Scan walks watchDir recursively and returns the set of capture paths that
// match the naming convention and fall outside the excluded windows.
// Symlinked directories, watchDir included, are followed; hidden entries are
// ignored. Paths use forward slashes and keep watchDir as their prefix.
//
// Scan returns apperr.ErrNoObservations if watchDir has no visible entries.
func Scan(watchDir string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if _, err := os.Stat(watchDir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("scanner: %s: %w", watchDir, apperr.ErrNoObservations)
	}

	entries := 0
	err := walk(watchDir, func(p, name string, isDir bool) error {
		entries++
		if !isDir && Match(name) {
			out[filepath.ToSlash(p)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: walk %s: %w", watchDir, err)
	}
	if entries == 0 {
		return nil, fmt.Errorf("scanner: %s: %w", watchDir, apperr.ErrNoObservations)
	}
	return out, nil
}

// Match reports whether a file name is a capture worth announcing.
func Match(name string) bool {
	if !strings.HasSuffix(name, suffix) {
		return false
	}
	for _, s := range excluded {
		if strings.Contains(name, s) {
			return false
		}
	}
	return true
}

// FilterNew returns the scanned paths that known does not contain, sorted.
// A lookup failure aborts the filter rather than reporting the path as new.
func FilterNew(known Known, watchDir string) ([]string, error) {
	current, err := Scan(watchDir)
	if err != nil {
		return nil, err
	}
	var fresh []string
	for p := range current {
		ok, err := known.Contains(p)
		if err != nil {
			return nil, fmt.Errorf("scanner: %w", err)
		}
		if !ok {
			fresh = append(fresh, p)
		}
	}
	sort.Strings(fresh)
	return fresh, nil
}

// List returns every scanned path, sorted. It is used to seed a new cache.
func List(watchDir string) ([]string, error) {
	current, err := Scan(watchDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(current))
	for p := range current {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
