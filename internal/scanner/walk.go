package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// visitFunc is called for every entry below the walk root. isDir is true
// for directories and for symlinks that resolve to one.
type visitFunc func(path, name string, isDir bool) error

// walk enumerates root recursively, following symlinks to directories the
// way a shell glob does. Reported paths stay under root as given; only the
// cycle check uses resolved paths. Hidden entries (leading dot) are skipped
// and not descended into.
func walk(root string, visit visitFunc) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{})
	return walkDir(root, resolved, seen, visit)
}

func walkDir(dir, resolved string, seen map[string]struct{}, visit visitFunc) error {
	seen[resolved] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)
		childReal := filepath.Join(resolved, name)
		isDir := e.IsDir()

		if e.Type()&os.ModeSymlink != 0 {
			// Dangling links are reported as plain entries.
			if target, err := filepath.EvalSymlinks(p); err == nil {
				if info, err := os.Stat(target); err == nil && info.IsDir() {
					isDir = true
					childReal = target
				}
			}
		}

		if err := visit(p, name, isDir); err != nil {
			return err
		}
		if !isDir {
			continue
		}
		if _, ok := seen[childReal]; ok {
			continue
		}
		if err := walkDir(p, childReal, seen, visit); err != nil {
			return err
		}
	}
	return nil
}
