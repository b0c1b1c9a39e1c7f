package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/metrics"
	"github.com/opencity-labs/ccat-memory-updater/store"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

func testLogger() *log.Logger {
	return log.NewLogger("crawl-1", "sess-1").WithOutput(io.Discard)
}

func seed(t *testing.T, s store.Store, entries ...store.Entry) {
	t.Helper()
	for _, e := range entries {
		if err := s.Put(t.Context(), e); err != nil {
			t.Fatalf("put %s: %v", e.ID, err)
		}
	}
}

func entry(id, source, command string) store.Entry {
	return store.Entry{ID: id, Source: source, Command: command, Session: "sess-0", Content: "chunk"}
}

func TestReconcile_DeletesOnlyStale(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		entry("e1", "u1", "crawl-1"),
		entry("e2", "u2", "crawl-1"),
		entry("e3", "u3", "crawl-1"),
	)

	r := NewReconciler(s, nil, nil, testLogger())
	removed, sources, _ := r.Reconcile(t.Context(), "crawl-1", types.NewItemSet("u1", "u3"), "sess-1")

	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if len(sources) != 1 || sources[0] != "u2" {
		t.Errorf("expected removed sources [u2], got %v", sources)
	}

	count, err := s.Count(t.Context(), store.Filter{Command: "crawl-1"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 surviving entries, got %d", count)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		entry("e1", "u1", "crawl-1"),
		entry("e2", "u2", "crawl-1"),
	)

	r := NewReconciler(s, nil, nil, testLogger())
	kept := types.NewItemSet("u1")

	removed, _, _ := r.Reconcile(t.Context(), "crawl-1", kept, "sess-1")
	if removed != 1 {
		t.Fatalf("expected 1 removal on first run, got %d", removed)
	}

	removed, sources, _ := r.Reconcile(t.Context(), "crawl-1", kept, "sess-1")
	if removed != 0 {
		t.Errorf("expected 0 removals on second run, got %d", removed)
	}
	if len(sources) != 0 {
		t.Errorf("expected no removed sources on second run, got %v", sources)
	}
}

func TestReconcile_NeverTouchesOtherCommands(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		entry("e1", "u1", "cmd-A"),
		entry("e2", "u1", "cmd-B"),
		entry("e3", "u9", "cmd-B"),
	)

	r := NewReconciler(s, nil, nil, testLogger())
	// u1 and u9 are both stale for cmd-A's run, but only cmd-A entries are
	// in scope.
	removed, _, _ := r.Reconcile(t.Context(), "cmd-A", types.NewItemSet(), "sess-1")

	if removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	count, err := s.Count(t.Context(), store.Filter{Command: "cmd-B"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("cmd-B entries must survive, got %d", count)
	}
}

func TestReconcile_EmptyCommandIsNoop(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, entry("e1", "u1", "crawl-1"))

	r := NewReconciler(s, nil, nil, testLogger())
	removed, sources, archived := r.Reconcile(t.Context(), "", types.NewItemSet(), "sess-1")

	if removed != 0 || len(sources) != 0 || archived != 0 {
		t.Errorf("expected full no-op, got removed=%d sources=%v archived=%d", removed, sources, archived)
	}
	if s.Len() != 1 {
		t.Errorf("store must be untouched, got %d entries", s.Len())
	}
}

// failingStore wraps MemoryStore and fails selected operations.
type failingStore struct {
	*store.MemoryStore
	failList   bool
	failDelete bool
}

func (f *failingStore) List(ctx context.Context, filter store.Filter, limit int) ([]store.Entry, error) {
	if f.failList {
		return nil, errors.New("store unavailable")
	}
	return f.MemoryStore.List(ctx, filter, limit)
}

func (f *failingStore) Delete(ctx context.Context, filter store.Filter) (int, error) {
	if f.failDelete {
		return 0, errors.New("store unavailable")
	}
	return f.MemoryStore.Delete(ctx, filter)
}

func TestReconcile_StoreFailureDegradesToNoop(t *testing.T) {
	for _, tc := range []struct {
		name string
		fs   *failingStore
	}{
		{"list fails", &failingStore{MemoryStore: store.NewMemoryStore(), failList: true}},
		{"delete fails", &failingStore{MemoryStore: store.NewMemoryStore(), failDelete: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			seed(t, tc.fs.MemoryStore, entry("e1", "u1", "crawl-1"))

			collector := metrics.NewCollector("memory")
			r := NewReconciler(tc.fs, nil, collector, testLogger())
			removed, _, _ := r.Reconcile(t.Context(), "crawl-1", types.NewItemSet(), "sess-1")

			if removed != 0 {
				t.Errorf("expected 0 removals on store failure, got %d", removed)
			}
			if snap := collector.Snapshot(); snap.StoreFailures != 1 {
				t.Errorf("expected 1 recorded store failure, got %d", snap.StoreFailures)
			}
		})
	}
}

// recordingArchiver captures archived entries.
type recordingArchiver struct {
	archived []store.Entry
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, _, _ string, entries []store.Entry) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	a.archived = append(a.archived, entries...)
	return len(entries), nil
}

func (a *recordingArchiver) Close() error { return nil }

func TestReconcile_ArchivesBeforeDelete(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s,
		entry("e1", "u1", "crawl-1"),
		entry("e2", "u2", "crawl-1"),
	)

	arch := &recordingArchiver{}
	r := NewReconciler(s, arch, nil, testLogger())
	removed, _, archived := r.Reconcile(t.Context(), "crawl-1", types.NewItemSet("u1"), "sess-1")

	if removed != 1 || archived != 1 {
		t.Errorf("expected removed=1 archived=1, got removed=%d archived=%d", removed, archived)
	}
	if len(arch.archived) != 1 || arch.archived[0].Source != "u2" {
		t.Errorf("expected u2 entry archived, got %v", arch.archived)
	}
}

func TestReconcile_ArchiveFailureDoesNotBlockDelete(t *testing.T) {
	s := store.NewMemoryStore()
	seed(t, s, entry("e1", "u1", "crawl-1"))

	arch := &recordingArchiver{err: errors.New("archive unavailable")}
	r := NewReconciler(s, arch, nil, testLogger())
	removed, _, archived := r.Reconcile(t.Context(), "crawl-1", types.NewItemSet(), "sess-1")

	if removed != 1 {
		t.Errorf("expected deletion despite archive failure, got removed=%d", removed)
	}
	if archived != 0 {
		t.Errorf("expected archived=0 on archive failure, got %d", archived)
	}
}
