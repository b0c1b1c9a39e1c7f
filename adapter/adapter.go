// Package adapter defines the notification boundary for reconciliation
// results.
//
// Adapters publish run summaries to downstream systems. The host owns
// adapter lifecycle; users provide configuration only. The counts carried
// by an event always match the reconciliation summary exactly.
package adapter

import (
	"context"
	"time"

	"github.com/opencity-labs/ccat-memory-updater/types"
)

// EventType is the discriminator carried by every published event.
const EventType = "reconcile_completed"

// ReconcileCompletedEvent is the payload published when a reconciliation
// run finishes.
type ReconcileCompletedEvent struct {
	ContractVersion   string   `json:"contract_version"`
	EventType         string   `json:"event_type"` // always "reconcile_completed"
	Command           string   `json:"command"`
	Session           string   `json:"session"`
	RemovedCount      int      `json:"removed_count"`
	RemovedSources    []string `json:"removed_sources,omitempty"`
	RetrySuccessCount int      `json:"retry_success_count"`
	RetryFailedCount  int      `json:"retry_failed_count"`
	ArchivedCount     int      `json:"archived_count"`
	Noop              bool     `json:"noop"`
	Timestamp         string   `json:"timestamp"` // ISO 8601
	DurationMs        int64    `json:"duration_ms"`
}

// NewEvent builds the completion event for one run's summary.
func NewEvent(outcome types.HarvestOutcome, summary types.Summary, ts time.Time) *ReconcileCompletedEvent {
	return &ReconcileCompletedEvent{
		ContractVersion:   types.Version,
		EventType:         EventType,
		Command:           outcome.Command,
		Session:           outcome.Session,
		RemovedCount:      summary.RemovedCount,
		RemovedSources:    summary.RemovedSources,
		RetrySuccessCount: summary.RetrySuccessCount,
		RetryFailedCount:  summary.RetryFailedCount,
		ArchivedCount:     summary.ArchivedCount,
		Noop:              summary.Noop,
		Timestamp:         ts.UTC().Format(time.RFC3339),
		DurationMs:        summary.Duration.Milliseconds(),
	}
}

// Adapter publishes reconciliation completion events to a downstream
// system. Implementations must be safe for single-use per run.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ReconcileCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
