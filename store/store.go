// Package store defines the persisted-entry store boundary.
//
// The reconciliation core only reads and deletes entries by metadata
// filter; entries are created by the ingestion pipeline. Two backends are
// provided: Redis (production) and in-memory (tests, ephemeral use).
package store

import (
	"context"
	"errors"
	"time"
)

// Metadata keys carried by every persisted entry.
const (
	MetaSource  = "source"
	MetaCommand = "command"
	MetaSession = "session"
)

// DefaultListLimit bounds List calls that pass limit <= 0.
const DefaultListLimit = 10000

// ErrEmptyFilter is returned when a filter has no match fields.
// An empty filter would address the whole collection; callers must scope
// every count/list/delete explicitly.
var ErrEmptyFilter = errors.New("store: filter has no match fields")

// Entry is one persisted knowledge-store entry.
type Entry struct {
	// ID is the unique entry identifier.
	ID string `msgpack:"id" json:"id"`
	// Source is the item identifier the entry was ingested from.
	Source string `msgpack:"source" json:"source"`
	// Command is the harvest command label the entry belongs to.
	Command string `msgpack:"command" json:"command"`
	// Session is the harvest session the entry was ingested in.
	Session string `msgpack:"session" json:"session"`
	// ChunkIndex is the 0-based position of this chunk within its source.
	ChunkIndex int `msgpack:"chunk_index" json:"chunk_index"`
	// Content is the chunk text payload.
	Content string `msgpack:"content" json:"content"`
	// CreatedAt is the ingestion timestamp (UTC).
	CreatedAt time.Time `msgpack:"created_at" json:"created_at"`
}

// Filter selects entries by exact metadata match. Zero-value fields are
// ignored. ExcludeSources removes entries whose source is listed, applied
// after the match fields.
type Filter struct {
	Source         string
	Command        string
	Session        string
	ExcludeSources []string
}

// Empty reports whether the filter has no match fields.
// ExcludeSources alone does not scope a filter.
func (f Filter) Empty() bool {
	return f.Source == "" && f.Command == "" && f.Session == ""
}

// Matches reports whether e satisfies the filter.
func (f Filter) Matches(e *Entry) bool {
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	if f.Command != "" && e.Command != f.Command {
		return false
	}
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	for _, excluded := range f.ExcludeSources {
		if e.Source == excluded {
			return false
		}
	}
	return true
}

// Store provides metadata-filtered access to persisted entries.
// Each call is independently atomic; no multi-call transaction spans
// count/list/delete.
type Store interface {
	// Put persists a single entry.
	Put(ctx context.Context, entry Entry) error

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// List returns up to limit entries matching the filter.
	// limit <= 0 applies DefaultListLimit.
	List(ctx context.Context, filter Filter, limit int) ([]Entry, error)

	// Delete removes all entries matching the filter and returns the
	// number of entries removed.
	Delete(ctx context.Context, filter Filter) (int, error)

	// Close releases store resources.
	Close() error
}

// Ingestor turns a raw item into persisted entries tagged with metadata.
// Implementations report failure via the returned error; retried calls for
// the same item must be safe (the caller erases prior entries or relies on
// reconciliation to remove duplicates from earlier sessions).
type Ingestor interface {
	Ingest(ctx context.Context, item string, chunkSize, chunkOverlap int, metadata map[string]string) error
}
