package reconcile

import (
	"context"
	"time"

	"github.com/opencity-labs/ccat-memory-updater/archive"
	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/metrics"
	"github.com/opencity-labs/ccat-memory-updater/retry"
	"github.com/opencity-labs/ccat-memory-updater/store"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// Config carries the reconciliation policy for one run. Values are
// validated by the configuration layer before a run starts; an immutable
// copy is passed in at construction time.
type Config struct {
	// Enabled gates the whole reconciliation feature.
	Enabled bool
	// RetryFailed enables the retry engine over the failed set.
	RetryFailed bool
	// MaxRetryAttempts bounds retry attempts per item, in [1,10].
	MaxRetryAttempts int
	// RetryDelay is the suspension between retry attempts, in [0,60]s.
	RetryDelay time.Duration
}

// Coordinator sequences retry then reconciliation for one
// harvest-completion event. It is the sole entry point invoked by the
// event boundary and never raises: every internal failure degrades to
// "no cleanup performed this run" inside the returned summary.
type Coordinator struct {
	store     store.Store
	ingestor  store.Ingestor // nil disables retry
	archiver  archive.Archiver
	collector *metrics.Collector
	config    Config
}

// NewCoordinator creates a coordinator. ingestor, archiver and collector
// may each be nil; a nil ingestor degrades retry to a pass-through.
func NewCoordinator(s store.Store, ingestor store.Ingestor, archiver archive.Archiver, collector *metrics.Collector, cfg Config) *Coordinator {
	return &Coordinator{
		store:     s,
		ingestor:  ingestor,
		archiver:  archiver,
		collector: collector,
		config:    cfg,
	}
}

// Run reconciles the store against one harvest outcome.
//
// Sequence: feature/liveness gate, retry engine over the failed set,
// stale-entry deletion scoped to the post-retry kept set, summary
// assembly. Items promoted by retry are protected from deletion even
// though the harvester did not report them as kept.
func (c *Coordinator) Run(ctx context.Context, outcome types.HarvestOutcome) types.Summary {
	start := time.Now()
	logger := log.NewLogger(outcome.Command, outcome.Session)

	if !c.config.Enabled || c.store == nil {
		c.collector.IncRunNoop()
		logger.Debug("reconciliation inactive, skipping run", nil)
		return types.NoopSummary()
	}

	if err := outcome.Validate(); err != nil {
		c.collector.IncRunNoop()
		logger.Warn("malformed harvest outcome, skipping run", map[string]any{
			"error": err.Error(),
		})
		return types.NoopSummary()
	}

	c.collector.IncRunStarted()
	logger.Info("starting reconciliation run", map[string]any{
		"kept":   len(outcome.Kept),
		"failed": len(outcome.Failed),
	})

	summary := types.Summary{}

	kept := types.NewItemSet(outcome.Kept...)
	failedCount := len(outcome.Failed)

	if c.config.RetryFailed && failedCount > 0 && c.ingestor != nil {
		result := retry.Run(ctx, outcome.Kept, outcome.Failed, retry.Config{
			MaxAttempts: c.config.MaxRetryAttempts,
			Delay:       c.config.RetryDelay,
		}, c.ingestFunc(outcome), logger)

		kept = result.Kept
		failedCount = result.Failed.Len()
		summary.RetrySuccessCount = result.SuccessCount
		summary.RetryErrors = result.Errors

		c.collector.AddRetryAttempts(int64(result.SuccessCount + len(result.Errors)))
		c.collector.AddRetrySuccesses(int64(result.SuccessCount))
		c.collector.AddRetryFailures(int64(failedCount))
	}
	summary.RetryFailedCount = failedCount

	reconciler := NewReconciler(c.store, c.archiver, c.collector, logger)
	removed, removedSources, archived := reconciler.Reconcile(ctx, outcome.Command, kept, outcome.Session)
	summary.RemovedCount = removed
	summary.RemovedSources = removedSources
	summary.ArchivedCount = archived

	summary.Duration = time.Since(start)
	c.collector.IncRunCompleted()
	logger.Info("reconciliation run completed", map[string]any{
		"removed":       summary.RemovedCount,
		"retry_success": summary.RetrySuccessCount,
		"retry_failed":  summary.RetryFailedCount,
		"duration":      summary.Duration.String(),
	})
	return summary
}

// ingestFunc adapts the ingestion collaborator for the retry engine,
// tagging retried items with the outcome's metadata.
func (c *Coordinator) ingestFunc(outcome types.HarvestOutcome) retry.IngestFunc {
	return func(ctx context.Context, item string) error {
		return c.ingestor.Ingest(ctx, item, outcome.ChunkSize, outcome.ChunkOverlap, map[string]string{
			store.MetaSource:  item,
			store.MetaCommand: outcome.Command,
			store.MetaSession: outcome.Session,
		})
	}
}
