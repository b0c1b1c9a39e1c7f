// Package archive writes stale entries to a Lode dataset before the
// reconciler deletes them, giving deletions an auditable cold trail.
//
// Archival is strictly best effort: the reconciler proceeds with deletion
// whether or not the archive write succeeded.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/opencity-labs/ccat-memory-updater/store"
)

// DefaultDataset is the default Lode dataset ID for archived entries.
const DefaultDataset = "memupdater"

// recordKindStaleEntry discriminates archived records.
const recordKindStaleEntry = "stale_entry"

// Archiver persists entries about to be deleted.
type Archiver interface {
	// Archive writes the entries removed by one reconciliation run.
	// Returns the number of records written.
	Archive(ctx context.Context, command, session string, entries []store.Entry) (int, error)

	// Close releases archiver resources.
	Close() error
}

// DeriveDay computes the archive day partition from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// StaleEntryRecord is the storage format for one archived entry.
// Command and Day double as Hive partition keys.
type StaleEntryRecord struct {
	RecordKind string `json:"record_kind"`

	EntryID    string `json:"entry_id"`
	Source     string `json:"source"`
	Session    string `json:"session"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`

	// RemovedBySession is the session whose reconciliation removed the entry.
	RemovedBySession string `json:"removed_by_session"`
	RemovedAt        string `json:"removed_at"`

	// Partition keys (used by Lode HiveLayout)
	Command string `json:"command"`
	Day     string `json:"day"`
}

// LodeArchiver writes stale-entry records to a Lode dataset partitioned by
// command and day.
type LodeArchiver struct {
	dataset lode.Dataset
	now     func() time.Time // injectable for tests
}

// NewWithFactory creates an archiver with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewWithFactory(dataset string, factory lode.StoreFactory) (*LodeArchiver, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}

	ds, err := lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout("command", "day"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: create dataset: %w", err)
	}

	return &LodeArchiver{dataset: ds, now: time.Now}, nil
}

// NewFS creates an archiver with filesystem storage rooted at root.
func NewFS(dataset, root string) (*LodeArchiver, error) {
	return NewWithFactory(dataset, lode.NewFSFactory(root))
}

// Archive implements Archiver.
func (a *LodeArchiver) Archive(ctx context.Context, command, session string, entries []store.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	removedAt := a.now().UTC()
	day := DeriveDay(removedAt)

	records := make([]any, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		records = append(records, &StaleEntryRecord{
			RecordKind:       recordKindStaleEntry,
			EntryID:          e.ID,
			Source:           e.Source,
			Session:          e.Session,
			ChunkIndex:       e.ChunkIndex,
			Content:          e.Content,
			CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339Nano),
			RemovedBySession: session,
			RemovedAt:        removedAt.Format(time.RFC3339Nano),
			Command:          command,
			Day:              day,
		})
	}

	if _, err := a.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return 0, fmt.Errorf("archive: write records: %w", err)
	}
	return len(records), nil
}

// Close implements Archiver.
func (a *LodeArchiver) Close() error {
	return nil
}

// Verify LodeArchiver implements the archiver interface.
var _ Archiver = (*LodeArchiver)(nil)
