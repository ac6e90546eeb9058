package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/history"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissingRecord(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get("bmc_history")
	if !errors.Is(err, history.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestPutGetOverwrite(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Put("k", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put("k", []byte(`[2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := store.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[2]` {
		t.Errorf("expected [2], got %s", got)
	}
}

func TestInMemoryDatabase(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer store.Close()

	if err := store.Put("k", []byte(`v`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get("k")
	if err != nil || string(got) != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}
}

func TestHistoryRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	h := history.NewStore(store)
	h.Load()
	h.Record(canvas.Draft{ValuePropositions: "Solar kiosks"}, true)
	h.Record(canvas.Draft{KeyActivities: "Installation"}, false)
	_ = store.Close()

	if _, err := os.Stat(filepath.Join(dir, DatabaseFile)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	reopened, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	h2 := history.NewStore(reopened)
	h2.Load()
	items := h2.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Preview != "Installation" || items[1].Preview != "Solar kiosks" {
		t.Errorf("unexpected order: %q, %q", items[0].Preview, items[1].Preview)
	}
}

func TestCorruptRecordLoadsEmpty(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Put(history.RecordKey, []byte(`{not json`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	h := history.NewStore(store)
	h.Load()
	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d", h.Len())
	}
}
