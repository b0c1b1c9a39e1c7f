// Package reconcile keeps the persisted store consistent with the latest
// harvest outcome: it retries failed items, deletes stale same-command
// entries and reports a deterministic summary.
package reconcile

import (
	"context"
	"sort"

	"github.com/opencity-labs/ccat-memory-updater/archive"
	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/metrics"
	"github.com/opencity-labs/ccat-memory-updater/store"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// Reconciler computes and removes stale entries for one command label.
// Stale: command metadata matches, source is not in the final kept set.
// Entries of other commands are never touched, whatever their source.
type Reconciler struct {
	store     store.Store
	archiver  archive.Archiver // nil disables archival
	collector *metrics.Collector
	logger    *log.Logger
}

// NewReconciler creates a reconciler. archiver may be nil and collector may
// be nil (metrics methods are nil-safe).
func NewReconciler(s store.Store, archiver archive.Archiver, collector *metrics.Collector, logger *log.Logger) *Reconciler {
	return &Reconciler{
		store:     s,
		archiver:  archiver,
		collector: collector,
		logger:    logger,
	}
}

// Reconcile deletes entries tagged with command whose source is not in
// kept. Returns the number of entries removed, their distinct sources in
// sorted order, and the number of entries archived before deletion.
//
// Store failures are absorbed: the affected step degrades to zero effect
// and is logged, never raised. Running twice with the same kept set and no
// intervening ingestion removes nothing the second time.
func (r *Reconciler) Reconcile(ctx context.Context, command string, kept *types.ItemSet, session string) (removed int, removedSources []string, archived int) {
	if command == "" {
		return 0, nil, 0
	}

	entries, err := r.store.List(ctx, store.Filter{Command: command}, 0)
	if err != nil {
		r.collector.IncStoreFailure()
		r.logger.Error("listing entries failed, skipping cleanup", map[string]any{
			"error": err.Error(),
		})
		return 0, nil, 0
	}

	var stale []store.Entry
	sources := make(map[string]struct{})
	for _, entry := range entries {
		if kept.Contains(entry.Source) {
			continue
		}
		stale = append(stale, entry)
		sources[entry.Source] = struct{}{}
	}
	if len(stale) == 0 {
		r.logger.Debug("no stale entries", map[string]any{
			"entries": len(entries),
		})
		return 0, nil, 0
	}

	// Best effort: a failed archive never blocks deletion.
	if r.archiver != nil {
		n, err := r.archiver.Archive(ctx, command, session, stale)
		if err != nil {
			r.logger.Warn("archiving stale entries failed (best effort)", map[string]any{
				"error": err.Error(),
			})
		} else {
			archived = n
			r.collector.AddEntriesArchived(int64(n))
		}
	}

	deleted, err := r.store.Delete(ctx, store.Filter{
		Command:        command,
		ExcludeSources: kept.Items(),
	})
	if err != nil {
		r.collector.IncStoreFailure()
		r.logger.Error("deleting stale entries failed, skipping cleanup", map[string]any{
			"error": err.Error(),
		})
		return 0, nil, archived
	}

	removedSources = make([]string, 0, len(sources))
	for source := range sources {
		removedSources = append(removedSources, source)
	}
	sort.Strings(removedSources)

	r.collector.AddEntriesRemoved(int64(deleted))
	r.logger.Info("removed stale entries", map[string]any{
		"removed": deleted,
		"sources": removedSources,
	})
	return deleted, removedSources, archived
}
