// Package metrics provides per-process metrics collection for
// reconciliation runs.
//
// The Collector accumulates counters across runs. It is a leaf package
// with no internal dependencies. All increment methods are nil-receiver
// safe so callers never need to guard against a missing collector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64 `json:"runs_started"`
	RunsCompleted int64 `json:"runs_completed"`
	RunsNoop      int64 `json:"runs_noop"`

	// Retry engine
	RetryAttempts  int64 `json:"retry_attempts"`
	RetrySuccesses int64 `json:"retry_successes"`
	RetryFailures  int64 `json:"retry_failures"`

	// Reconciliation
	EntriesRemoved  int64 `json:"entries_removed"`
	EntriesArchived int64 `json:"entries_archived"`
	EntriesErased   int64 `json:"entries_erased"`

	// Store gateway
	StoreFailures int64 `json:"store_failures"`

	// Dimensions (informational, set at construction)
	Backend string `json:"backend"`
}

// Collector accumulates reconciliation metrics.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsCompleted int64
	runsNoop      int64

	retryAttempts  int64
	retrySuccesses int64
	retryFailures  int64

	entriesRemoved  int64
	entriesArchived int64
	entriesErased   int64

	storeFailures int64

	backend string
}

// NewCollector creates a Collector with the store backend dimension label.
func NewCollector(backend string) *Collector {
	return &Collector{backend: backend}
}

// IncRunStarted records a reconciliation run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunCompleted records a run that performed reconciliation work.
func (c *Collector) IncRunCompleted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCompleted++
	c.mu.Unlock()
}

// IncRunNoop records a run skipped without side effects.
func (c *Collector) IncRunNoop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsNoop++
	c.mu.Unlock()
}

// AddRetryAttempts records n ingestion attempts made by the retry engine.
func (c *Collector) AddRetryAttempts(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retryAttempts += n
	c.mu.Unlock()
}

// AddRetrySuccesses records n items promoted to kept by retry.
func (c *Collector) AddRetrySuccesses(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retrySuccesses += n
	c.mu.Unlock()
}

// AddRetryFailures records n items still failed after retry.
func (c *Collector) AddRetryFailures(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retryFailures += n
	c.mu.Unlock()
}

// AddEntriesRemoved records n stale entries deleted by the reconciler.
func (c *Collector) AddEntriesRemoved(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entriesRemoved += n
	c.mu.Unlock()
}

// AddEntriesArchived records n entries archived before deletion.
func (c *Collector) AddEntriesArchived(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entriesArchived += n
	c.mu.Unlock()
}

// AddEntriesErased records n entries deleted by the source-scoped eraser.
func (c *Collector) AddEntriesErased(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entriesErased += n
	c.mu.Unlock()
}

// IncStoreFailure records a failed store gateway call.
func (c *Collector) IncStoreFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.storeFailures++
	c.mu.Unlock()
}

// Snapshot returns an immutable view of all counters.
// Nil-receiver safe: returns a zero snapshot.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		RunsStarted:     c.runsStarted,
		RunsCompleted:   c.runsCompleted,
		RunsNoop:        c.runsNoop,
		RetryAttempts:   c.retryAttempts,
		RetrySuccesses:  c.retrySuccesses,
		RetryFailures:   c.retryFailures,
		EntriesRemoved:  c.entriesRemoved,
		EntriesArchived: c.entriesArchived,
		EntriesErased:   c.entriesErased,
		StoreFailures:   c.storeFailures,
		Backend:         c.backend,
	}
}
