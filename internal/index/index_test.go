package index

import (
	"bytes"
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

func testDB(t *testing.T, seed ...string) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path, func() ([]string, error) { return seed, nil }, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestSchemaCreation(t *testing.T) {
	db, _ := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM findings`).Scan(&count); err != nil {
		t.Fatalf("findings table missing: %v", err)
	}
}

func TestOpenSeedsFromScan(t *testing.T) {
	dir := testutil.WatchDir(t)
	testutil.WriteFile(t, dir, "P20230615_223045_P.bmp", []byte("x"))
	testutil.WriteFile(t, dir, "P20230615_230001_P.bmp", []byte("x"))
	testutil.WriteFile(t, dir, "a/P20230616_013000_P.bmp", []byte("x"))

	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path, func() ([]string, error) { return scanner.List(dir) }, quietLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	want, _ := scanner.List(dir)
	var got []string
	for _, f := range db.All() {
		got = append(got, f.Path)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("seeded paths mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenExistingDoesNotReseed(t *testing.T) {
	db, path := testDB(t, "/w/P20230615_223045_P.bmp")
	db.Close()

	reopened, err := Open(path, func() ([]string, error) {
		t.Fatal("seed called for existing database")
		return nil, nil
	}, quietLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n := len(reopened.All()); n != 1 {
		t.Errorf("len = %d, want 1", n)
	}
}

func TestOpenSeedFailureRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	_, err := Open(path, func() ([]string, error) { return nil, apperr.ErrNoObservations }, quietLogger())
	if !errors.Is(err, apperr.ErrNoObservations) {
		t.Fatalf("err = %v, want ErrNoObservations", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("database file left behind: %v", statErr)
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(path, bytes.Repeat([]byte("not a sqlite database\n"), 200), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, func() ([]string, error) { return nil, nil }, quietLogger())
	if !errors.Is(err, apperr.ErrCorruptCache) {
		t.Fatalf("err = %v, want ErrCorruptCache", err)
	}
}

func TestAppendAndLookup(t *testing.T) {
	db, _ := testDB(t, "/w/P20230615_223045_P.bmp")

	f, err := db.Append("/w/P20230615_223110_P.bmp")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ok, err := db.Contains(f.Path); err != nil || !ok {
		t.Errorf("Contains(appended) = %v, %v", ok, err)
	}
	if ok, err := db.Contains("/w/missing_P.bmp"); err != nil || ok {
		t.Errorf("Contains(missing) = %v, %v", ok, err)
	}

	if diff := cmp.Diff([]models.Finding{f}, db.Lookup(f.Ref)); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}

	all := db.All()
	if len(all) != 2 || all[1].Path != f.Path {
		t.Errorf("All = %+v, want appended finding last", all)
	}
}

func TestAppendDuplicate(t *testing.T) {
	db, _ := testDB(t, "/w/P20230615_223045_P.bmp")
	_, err := db.Append("/w/P20230615_223045_P.bmp")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestLookupCollision(t *testing.T) {
	db, _ := testDB(t)
	_, err := db.conn.Exec(insertSQL, "/a", "a", "", "", "deadbeef00")
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.conn.Exec(insertSQL, "/b", "b", "", "", "deadbeef00")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(db.Lookup("deadbeef00")); n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
}

func TestContainsReportsQueryError(t *testing.T) {
	db, _ := testDB(t)
	db.Close()

	if _, err := db.Contains("/w/P20230615_223045_P.bmp"); err == nil {
		t.Error("Contains on a closed database should fail")
	}
}
