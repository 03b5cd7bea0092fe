package db

import (
	"path/filepath"
	"testing"
)

func TestResolveSQLiteDSNExplicit(t *testing.T) {
	t.Parallel()

	got, err := ResolveSQLiteDSN("  /tmp/custom.sqlite ", "")
	if err != nil {
		t.Fatalf("ResolveSQLiteDSN() error = %v", err)
	}
	if got != "/tmp/custom.sqlite" {
		t.Fatalf("ResolveSQLiteDSN() = %q, want %q", got, "/tmp/custom.sqlite")
	}
}

func TestResolveSQLiteDSNStateDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	got, err := ResolveSQLiteDSN("", dir)
	if err != nil {
		t.Fatalf("ResolveSQLiteDSN() error = %v", err)
	}
	if want := filepath.Join(dir, "greg.sqlite"); got != want {
		t.Fatalf("ResolveSQLiteDSN() = %q, want %q", got, want)
	}
}

func TestSQLiteDSNWithPragmas(t *testing.T) {
	t.Parallel()

	got := sqliteDSNWithPragmas("/data/greg.sqlite", SQLiteConfig{BusyTimeoutMs: 5000, WAL: true})
	if want := "/data/greg.sqlite?_busy_timeout=5000&_journal_mode=WAL"; got != want {
		t.Fatalf("sqliteDSNWithPragmas() = %q, want %q", got, want)
	}
	if got := sqliteDSNWithPragmas("file:x?mode=memory", SQLiteConfig{WAL: true}); got != "file:x?mode=memory" {
		t.Fatalf("sqliteDSNWithPragmas() rewrote explicit query: %q", got)
	}
}
