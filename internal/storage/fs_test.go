package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/models"
	"github.com/starford/pfnbot/internal/scanner"
	"github.com/starford/pfnbot/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func staticSeed(paths ...string) Seeder {
	return func() ([]string, error) { return paths, nil }
}

func tempCache(t *testing.T, seed ...string) (*JSONFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(path, staticSeed(seed...), quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s, path
}

func TestLoadMaterialisesFromScan(t *testing.T) {
	dir := testutil.WatchDir(t)
	testutil.WriteFile(t, dir, "P20230615_223045_P.bmp", []byte("x"))
	testutil.WriteFile(t, dir, "sub/P20230616_013000_P.bmp", []byte("x"))
	testutil.WriteFile(t, dir, "P20230615_110000_P.bmp", []byte("x"))

	cachePath := filepath.Join(t.TempDir(), "cache.json")
	s, err := Load(cachePath, func() ([]string, error) { return scanner.List(dir) }, quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	scanned, err := scanner.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	all := s.All()
	if len(all) != len(scanned) {
		t.Fatalf("cache has %d findings, scan has %d", len(all), len(scanned))
	}
	for _, f := range all {
		if _, ok := scanned[f.Path]; !ok {
			t.Errorf("cached path %q not in scan", f.Path)
		}
	}

	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("cache file not persisted: %v", err)
	}
}

func TestLoadSeedError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	_, err := Load(path, func() ([]string, error) {
		return scanner.List(t.TempDir())
	}, quietLogger())
	if !errors.Is(err, apperr.ErrNoObservations) {
		t.Fatalf("err = %v, want ErrNoObservations", err)
	}
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	want := []models.Finding{models.NewFinding("/w/P20230615_223045_P.bmp")}
	data, _ := json.Marshal(want)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, func() ([]string, error) {
		t.Fatal("seed called for existing cache")
		return nil, nil
	}, quietLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, s.All()); diff != "" {
		t.Errorf("All mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, staticSeed(), quietLogger())
	if !errors.Is(err, apperr.ErrCorruptCache) {
		t.Fatalf("err = %v, want ErrCorruptCache", err)
	}
}

func TestAppendPersistsFullList(t *testing.T) {
	s, path := tempCache(t, "/w/P20230615_223045_P.bmp")

	f, err := s.Append("/w/P20230615_223110_P.bmp")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if f.Date != "2023-06-15" || f.Time != "22:31:10" {
		t.Errorf("finding = %+v", f)
	}
	if ok, _ := s.Contains(f.Path); !ok {
		t.Error("appended path not contained")
	}

	// Reload from disk and compare.
	reloaded, err := Load(path, staticSeed(), quietLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(s.All(), reloaded.All()); diff != "" {
		t.Errorf("persisted mismatch (-mem +disk):\n%s", diff)
	}
	if len(reloaded.All()) != 2 {
		t.Errorf("len = %d, want 2", len(reloaded.All()))
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".pfnbot-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestAppendDuplicate(t *testing.T) {
	s, _ := tempCache(t, "/w/P20230615_223045_P.bmp")
	_, err := s.Append("/w/P20230615_223045_P.bmp")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	if n := len(s.All()); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

func TestLookup(t *testing.T) {
	s, _ := tempCache(t, "/w/P20230615_223045_P.bmp", "/w/P20230615_223110_P.bmp")
	f := models.NewFinding("/w/P20230615_223045_P.bmp")

	got := s.Lookup(f.Ref)
	if diff := cmp.Diff([]models.Finding{f}, got); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}
	if got := s.Lookup("0000000000"); len(got) != 0 {
		t.Errorf("Lookup(unknown) = %v", got)
	}
}

func TestLookupCollision(t *testing.T) {
	s, _ := tempCache(t)
	f := models.NewFinding("/w/P20230615_223045_P.bmp")
	// Force a collision: two entries sharing a ref.
	s.findings = append(s.findings, f, models.Finding{Name: "other", Path: "/w/other", Ref: f.Ref})

	if got := s.Lookup(f.Ref); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestEmptySeedWritesEmptyArray(t *testing.T) {
	_, path := tempCache(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("content = %q, want []", data)
	}
}
