package handled

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quailyquaily/greg/db"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "greg.sqlite")
	store, err := OpenSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("OpenSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	want := NewSet("3", "1", "2")
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Saving again must not fail on the existing rows.
	if err := store.Save(ctx, NewSet("1", "4")); err != nil {
		t.Fatalf("Save(overlap) error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, got.Sorted()); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStoreSharedBetweenTrackers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestSQLite(t)

	a := Open(ctx, store, TrackerOptions{})
	b := Open(ctx, store, TrackerOptions{})

	a.MarkHandled(ctx, "1700000000.000100")
	if !b.Contains(ctx, "1700000000.000100") {
		t.Fatalf("sibling tracker did not observe insert")
	}
	if err := store.Insert(ctx, "1700000000.000100"); err != nil {
		t.Fatalf("Insert(duplicate) error = %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	ok, err := store.Has(ctx, "1700000000.000100")
	if err != nil || ok {
		t.Fatalf("Has() after reset = %v, %v; want false, nil", ok, err)
	}
}
