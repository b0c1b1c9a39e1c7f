// Package ingest turns a raw item (a URL or document reference) into
// metadata-tagged entries in the persisted store.
//
// The pipeline fetches item content, splits it into overlapping chunks and
// writes one entry per chunk. It implements store.Ingestor and is the
// ingestion collaborator consumed by the retry engine and the replace
// workflow.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/store"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// DefaultFetchTimeout is the default per-fetch HTTP timeout.
const DefaultFetchTimeout = 30 * time.Second

// DefaultMaxFetchBytes bounds the fetched content size.
const DefaultMaxFetchBytes = 8 << 20 // 8 MiB

// Fetcher retrieves the raw content of an item.
type Fetcher interface {
	Fetch(ctx context.Context, item string) (string, error)
}

// HTTPFetcher fetches item content over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher with the given timeout and size bound.
// Zero values apply the package defaults.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFetchBytes
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, item string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: create request: %w", item, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", item, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: %w", item, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("fetch %s: read body: %w", item, err)
	}
	return string(body), nil
}

// Pipeline is the store-backed ingestion pipeline.
type Pipeline struct {
	store   store.Store
	fetcher Fetcher
	logger  *log.Logger
	now     func() time.Time // injectable for tests
}

// NewPipeline creates an ingestion pipeline. fetcher defaults to an
// HTTPFetcher with package defaults when nil.
func NewPipeline(s store.Store, fetcher Fetcher, logger *log.Logger) *Pipeline {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(0, 0)
	}
	return &Pipeline{
		store:   s,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Ingest implements store.Ingestor.
//
// Chunking parameters fall back to the project defaults when non-positive.
// The entry's source metadata defaults to the item itself when the caller
// did not supply one.
func (p *Pipeline) Ingest(ctx context.Context, item string, chunkSize, chunkOverlap int, metadata map[string]string) error {
	if item == "" {
		return errors.New("ingest: item must be non-empty")
	}
	if chunkSize <= 0 {
		chunkSize = types.DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = types.DefaultChunkOverlap
	}

	content, err := p.fetcher.Fetch(ctx, item)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	source := metadata[store.MetaSource]
	if source == "" {
		source = item
	}

	chunks := SplitChunks(content, chunkSize, chunkOverlap)
	createdAt := p.now().UTC()

	for i, chunk := range chunks {
		entry := store.Entry{
			ID:         uuid.NewString(),
			Source:     source,
			Command:    metadata[store.MetaCommand],
			Session:    metadata[store.MetaSession],
			ChunkIndex: i,
			Content:    chunk,
			CreatedAt:  createdAt,
		}
		if err := p.store.Put(ctx, entry); err != nil {
			return fmt.Errorf("ingest: persist chunk %d of %s: %w", i, item, err)
		}
	}

	p.logger.Info("ingested item", map[string]any{
		"item":   item,
		"chunks": len(chunks),
	})
	return nil
}

// Verify Pipeline implements the ingestor interface.
var _ store.Ingestor = (*Pipeline)(nil)
