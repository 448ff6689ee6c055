package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("query %q: %v", query, err)
	}
	return n
}

func TestApplyRunsEachFileOnce(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	files := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"002_tags.sql":  &fstest.MapFile{Data: []byte("CREATE TABLE tags(id TEXT PRIMARY KEY);")},
		"README.md":     &fstest.MapFile{Data: []byte("not a migration")},
	}
	if err := Apply(ctx, db, files, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := Apply(ctx, db, files, ""); err != nil {
		t.Fatalf("expected replay to be a no-op: %v", err)
	}
	if got := count(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", got)
	}
	if got := count(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('items', 'tags')"); got != 2 {
		t.Fatalf("expected both tables to exist, got %d", got)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	db := openMemoryDB(t)
	files := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("CREATE TABLE broken(")},
	}
	if err := Apply(context.Background(), db, files, ""); err == nil {
		t.Fatalf("expected syntax error to fail the migration")
	}
	if got := count(t, db, "SELECT COUNT(*) FROM schema_migrations"); got != 0 {
		t.Fatalf("expected failed migration to stay unrecorded, got %d", got)
	}
}

func TestApplyRequiresDB(t *testing.T) {
	if err := Apply(context.Background(), nil, fstest.MapFS{}, ""); err == nil {
		t.Fatalf("expected nil db to be rejected")
	}
}

func TestUpSection(t *testing.T) {
	content := "-- header\n-- +migrate Up\nCREATE TABLE a(x);\n-- +migrate Down\nDROP TABLE a;"
	up := UpSection(content)
	if !strings.Contains(up, "CREATE TABLE a") || strings.Contains(up, "DROP TABLE") {
		t.Fatalf("unexpected up section %q", up)
	}
	if got := UpSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("expected unmarked file to be returned whole, got %q", got)
	}
}

func TestIsAlreadyExists(t *testing.T) {
	if !IsAlreadyExists(errors.New("table macros already exists")) {
		t.Fatalf("expected already exists to match")
	}
	if !IsAlreadyExists(errors.New("duplicate column name: loop")) {
		t.Fatalf("expected duplicate column to match")
	}
	if IsAlreadyExists(errors.New("syntax error")) || IsAlreadyExists(nil) {
		t.Fatalf("expected other errors not to match")
	}
}
