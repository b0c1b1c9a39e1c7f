// Package retry drives bounded, delayed retry attempts over the failed
// item set of a harvest outcome, promoting items to the kept set on
// successful ingestion.
package retry

import (
	"context"
	"time"

	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// IngestFunc attempts ingestion of one item. A nil error promotes the item
// to the kept set.
type IngestFunc func(ctx context.Context, item string) error

// SleepFunc suspends between attempts. Implementations must honor context
// cancellation. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config bounds the retry loop. Bounds are validated by the configuration
// layer before a run starts; the engine only guards against non-positive
// values.
type Config struct {
	// MaxAttempts is the attempt bound per item, in [1,10] by policy.
	MaxAttempts int
	// Delay is the suspension between attempts.
	Delay time.Duration
	// Sleep overrides the delay mechanism. Nil uses a context-aware wait.
	Sleep SleepFunc
}

// Result is the deterministic end state of a retry run.
// Kept and Failed partition the input items: every item ends in exactly
// one of the two sets.
type Result struct {
	// Kept is the final kept set, input kept plus promoted items.
	Kept *types.ItemSet
	// Failed is the final failed set.
	Failed *types.ItemSet
	// SuccessCount is the number of items promoted by this run.
	SuccessCount int
	// Errors lists every failed attempt in order.
	Errors []types.RetryError
}

// sleep waits for d or until the context is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes the retry loop over failed, promoting successes into kept.
//
// Each attempt snapshots the failed set first, so an item succeeding within
// an attempt is not re-tried in the same attempt. Items are attempted in
// the order they entered the failed set. Per-item ingestion failures are
// recorded and never abort the loop. The loop ends early once the failed
// set is empty (no trailing delay) or when the context is canceled during
// an attempt or a delay; interrupted items simply stay failed.
func Run(ctx context.Context, kept, failed []string, cfg Config, ingest IngestFunc, logger *log.Logger) Result {
	keptSet := types.NewItemSet(kept...)
	failedSet := types.NewItemSet(failed...)

	result := Result{Kept: keptSet, Failed: failedSet}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	doSleep := cfg.Sleep
	if doSleep == nil {
		doSleep = sleep
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if failedSet.Len() == 0 {
			break
		}

		snapshot := failedSet.Items()
		logger.Info("retrying failed items", map[string]any{
			"attempt":   attempt,
			"remaining": len(snapshot),
		})

		for _, item := range snapshot {
			if ctx.Err() != nil {
				logger.Warn("retry interrupted", map[string]any{
					"attempt": attempt,
					"error":   ctx.Err().Error(),
				})
				return result
			}

			if err := ingest(ctx, item); err != nil {
				result.Errors = append(result.Errors, types.RetryError{
					Item:    item,
					Attempt: attempt,
					Error:   err.Error(),
				})
				logger.Warn("retry attempt failed", map[string]any{
					"item":    item,
					"attempt": attempt,
					"error":   err.Error(),
				})
				continue
			}

			failedSet.Remove(item)
			keptSet.Add(item)
			result.SuccessCount++
			logger.Info("retry succeeded", map[string]any{
				"item":    item,
				"attempt": attempt,
			})
		}

		if failedSet.Len() == 0 || attempt == cfg.MaxAttempts {
			break
		}
		if err := doSleep(ctx, cfg.Delay); err != nil {
			logger.Warn("retry interrupted during delay", map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return result
		}
	}

	return result
}
