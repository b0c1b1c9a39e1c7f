package reconcile

import (
	"context"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/metrics"
	"github.com/opencity-labs/ccat-memory-updater/store"
)

// Eraser removes every entry with a given source label, independent of
// command or session. Used standalone for maintenance and as the first
// step of the replace workflow.
type Eraser struct {
	store     store.Store
	collector *metrics.Collector
	logger    *log.Logger
}

// NewEraser creates an eraser. collector may be nil.
func NewEraser(s store.Store, collector *metrics.Collector, logger *log.Logger) *Eraser {
	return &Eraser{
		store:     s,
		collector: collector,
		logger:    logger,
	}
}

// EraseBySource deletes all entries whose source equals source and returns
// the pre-delete count. An empty source returns 0 without contacting the
// store, as do store failures (logged, never raised).
func (e *Eraser) EraseBySource(ctx context.Context, source string) int {
	if source == "" {
		e.logger.Warn("no source provided for erase", nil)
		return 0
	}

	filter := store.Filter{Source: source}

	count, err := e.store.Count(ctx, filter)
	if err != nil {
		e.collector.IncStoreFailure()
		e.logger.Error("counting entries failed", map[string]any{
			"source": source,
			"error":  err.Error(),
		})
		return 0
	}
	e.logger.Info("found entries for source", map[string]any{
		"source": source,
		"count":  count,
	})
	if count == 0 {
		return 0
	}

	if _, err := e.store.Delete(ctx, filter); err != nil {
		e.collector.IncStoreFailure()
		e.logger.Error("deleting entries failed", map[string]any{
			"source": source,
			"error":  err.Error(),
		})
		return 0
	}

	e.collector.AddEntriesErased(int64(count))
	e.logger.Info("erased entries for source", map[string]any{
		"source": source,
		"count":  count,
	})
	return count
}
