package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/store"
)

func testLogger() *log.Logger {
	return log.NewLogger("crawl-1", "sess-1").WithOutput(io.Discard)
}

// staticFetcher returns fixed content for every item.
type staticFetcher struct {
	content string
	err     error
}

func (f *staticFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return f.content, f.err
}

func TestPipeline_IngestWritesChunkedEntries(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPipeline(s, &staticFetcher{content: strings.Repeat("a", 10)}, testLogger())

	meta := map[string]string{
		store.MetaCommand: "crawl-1",
		store.MetaSession: "sess-1",
	}
	if err := p.Ingest(t.Context(), "https://example.com/doc", 4, 0, meta); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	entries, err := s.List(t.Context(), store.Filter{Source: "https://example.com/doc"}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 chunk entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.ChunkIndex != i {
			t.Errorf("entry %d: expected chunk index %d, got %d", i, i, e.ChunkIndex)
		}
		if e.Command != "crawl-1" || e.Session != "sess-1" {
			t.Errorf("entry %d: unexpected metadata %+v", i, e)
		}
		if e.ID == "" {
			t.Errorf("entry %d: missing ID", i)
		}
	}
}

func TestPipeline_IngestEmptyItem(t *testing.T) {
	p := NewPipeline(store.NewMemoryStore(), &staticFetcher{}, testLogger())
	if err := p.Ingest(t.Context(), "", 0, 0, nil); err == nil {
		t.Error("expected error for empty item")
	}
}

func TestPipeline_FetchFailureWritesNothing(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPipeline(s, &staticFetcher{err: errors.New("connection refused")}, testLogger())

	err := p.Ingest(t.Context(), "https://example.com/doc", 0, 0, map[string]string{
		store.MetaCommand: "crawl-1",
	})
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if s.Len() != 0 {
		t.Errorf("expected no entries after fetch failure, got %d", s.Len())
	}
}

func TestPipeline_SourceDefaultsToItem(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPipeline(s, &staticFetcher{content: "short"}, testLogger())

	if err := p.Ingest(t.Context(), "https://example.com/a", 0, 0, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	entries, err := s.List(t.Context(), store.Filter{Source: "https://example.com/a"}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("page body"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, 0)
	got, err := f.Fetch(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != "page body" {
		t.Errorf("expected page body, got %q", got)
	}
}

func TestHTTPFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, 0)
	_, err := f.Fetch(t.Context(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusNotFound {
		t.Errorf("expected StatusError 404, got %v", err)
	}
}

func TestHTTPFetcher_SizeBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0, 100)
	got, err := f.Fetch(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(got))
	}
}
